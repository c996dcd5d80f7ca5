package views

import (
	"context"
	"fmt"

	"cabconnect/internal/client/application/ports/in"
	"cabconnect/internal/client/application/ports/out"
)

type AvailabilityView struct {
	deps Deps
}

func newAvailabilityView(r *Router) View { return &AvailabilityView{deps: r.deps} }

func (v *AvailabilityView) Mount()   {}
func (v *AvailabilityView) Unmount() {}

func (v *AvailabilityView) Set(ctx context.Context, available bool, location string) (*in.SetAvailabilityOutput, error) {
	res, err := v.deps.SetAvailability.Execute(ctx, in.SetAvailabilityInput{Available: available, Location: location})
	if err != nil {
		v.deps.notifyErr(err)
		return nil, err
	}
	state := "unavailable"
	if res.Available {
		state = "available"
	}
	v.deps.Notifier.Notify(out.LevelSuccess, fmt.Sprintf("You are now %s at %s", state, res.Location))
	return res, nil
}
