package views

import (
	"context"
	"errors"
	"sync"

	"cabconnect/internal/client/application/ports/in"
	"cabconnect/internal/client/application/ports/out"
)

var ErrNoQuote = errors.New("request a quote before confirming")

// BookRideView: форма бронирования: сначала оценка, потом подтверждение.
type BookRideView struct {
	router *Router
	deps   Deps

	mu    sync.Mutex
	quote *in.QuoteRideOutput
}

func newBookRideView(r *Router) View { return &BookRideView{router: r, deps: r.deps} }

func (v *BookRideView) Mount()   {}
func (v *BookRideView) Unmount() {}

// Quote checks the route and cab availability and remembers the result for Confirm.
func (v *BookRideView) Quote(ctx context.Context, pickup, destination string) (*in.QuoteRideOutput, error) {
	q, err := v.deps.QuoteRide.Execute(ctx, in.QuoteRideInput{Pickup: pickup, Destination: destination})
	if err != nil {
		v.deps.notifyErr(err)
		return nil, err
	}
	v.mu.Lock()
	v.quote = q
	v.mu.Unlock()
	return q, nil
}

// Confirm books the quoted ride and moves to My Rides if this view is still shown.
func (v *BookRideView) Confirm(ctx context.Context) (*in.BookRideOutput, error) {
	v.mu.Lock()
	q := v.quote
	v.mu.Unlock()
	if q == nil {
		return nil, ErrNoQuote
	}

	res, err := v.deps.BookRide.Execute(ctx, in.BookRideInput{
		Pickup:      q.Quote.Pickup,
		Destination: q.Quote.Destination,
	})
	if err != nil {
		v.deps.notifyErr(err)
		return nil, err
	}

	v.mu.Lock()
	v.quote = nil
	v.mu.Unlock()

	v.deps.Notifier.Notify(out.LevelSuccess, res.Message)
	err = v.deps.Loop.Call(context.WithoutCancel(ctx), func() {
		if v.router.Current() == View(v) {
			v.router.Navigate(PathMyRides)
		}
	})
	return res, err
}

// Cancel drops the pending quote.
func (v *BookRideView) Cancel() {
	v.mu.Lock()
	v.quote = nil
	v.mu.Unlock()
}
