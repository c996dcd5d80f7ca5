package views

import (
	"context"

	"cabconnect/internal/client/application/ports/out"
	"cabconnect/internal/client/domain"
)

// LoginView does not navigate itself: the router reacts to the session change.
type LoginView struct {
	deps Deps
}

func newLoginView(r *Router) View { return &LoginView{deps: r.deps} }

func (v *LoginView) Mount()   {}
func (v *LoginView) Unmount() {}

func (v *LoginView) Login(ctx context.Context, username, password string) (*domain.Session, error) {
	sess, err := v.deps.Sessions.Login(ctx, username, password)
	if err != nil {
		v.deps.notifyErr(err)
		return nil, err
	}
	v.deps.Notifier.Notify(out.LevelSuccess, "Login successful!")
	return sess, nil
}

type RegisterView struct {
	router *Router
	deps   Deps
}

func newRegisterView(r *Router) View { return &RegisterView{router: r, deps: r.deps} }

func (v *RegisterView) Mount()   {}
func (v *RegisterView) Unmount() {}

// Register creates the account and sends the user to the login page.
func (v *RegisterView) Register(ctx context.Context, reg domain.Registration) (string, error) {
	msg, err := v.deps.Sessions.Register(ctx, reg)
	if err != nil {
		v.deps.notifyErr(err)
		return "", err
	}
	v.deps.Notifier.Notify(out.LevelSuccess, msg+". Please log in.")
	err = v.deps.Loop.Call(context.WithoutCancel(ctx), func() {
		if v.router.Current() == View(v) {
			v.router.Navigate(PathLogin)
		}
	})
	return msg, err
}
