// Package guard decides whether a view may render for the current session.
package guard

import (
	"fmt"
	"sync"

	"cabconnect/internal/client/application/ports/out"
	"cabconnect/internal/client/domain"
)

type Requirement int

const (
	None Requirement = iota
	Authenticated
	Rider
	Driver
	// Guest pages (login, register) send signed-in users home.
	Guest
)

func (r Requirement) String() string {
	switch r {
	case Authenticated:
		return "authenticated"
	case Rider:
		return "rider"
	case Driver:
		return "driver"
	case Guest:
		return "guest"
	default:
		return "none"
	}
}

func (r Requirement) role() (domain.Role, bool) {
	switch r {
	case Rider:
		return domain.RoleRider, true
	case Driver:
		return domain.RoleDriver, true
	}
	return "", false
}

type Outcome int

const (
	Render Outcome = iota
	// Wait: session still loading, show a neutral placeholder.
	Wait
	RedirectToLogin
	RedirectToHome
)

func (o Outcome) String() string {
	switch o {
	case Wait:
		return "wait"
	case RedirectToLogin:
		return "redirect_login"
	case RedirectToHome:
		return "redirect_home"
	default:
		return "render"
	}
}

type Decision struct {
	Outcome Outcome
	// Warning is set only for role mismatches.
	Warning string
}

// Decide is a pure function of the session state and the requirement.
func Decide(state domain.SessionState, req Requirement) Decision {
	if state.Status == domain.StatusLoading {
		return Decision{Outcome: Wait}
	}
	authed := state.Status == domain.StatusAuthenticated && state.Session != nil

	if req == Guest {
		if authed {
			return Decision{Outcome: RedirectToHome}
		}
		return Decision{Outcome: Render}
	}
	if req == None {
		return Decision{Outcome: Render}
	}
	if !authed {
		return Decision{Outcome: RedirectToLogin}
	}
	if want, ok := req.role(); ok && state.Session.Role != want {
		return Decision{
			Outcome: RedirectToHome,
			Warning: fmt.Sprintf("This page is only accessible to %s", want.Plural()),
		}
	}
	return Decision{Outcome: Render}
}

// Guard wraps Decide and emits the role warning once per transition into a
// warned redirect, per key (usually the route path). Re-checks of the same
// navigation, such as after a session change, stay quiet until Forget.
type Guard struct {
	notifier out.Notifier

	mu   sync.Mutex
	last map[string]Outcome
}

func New(notifier out.Notifier) *Guard {
	return &Guard{notifier: notifier, last: map[string]Outcome{}}
}

func (g *Guard) Check(key string, state domain.SessionState, req Requirement) Decision {
	d := Decide(state, req)

	g.mu.Lock()
	prev, seen := g.last[key]
	g.last[key] = d.Outcome
	g.mu.Unlock()

	if d.Warning != "" && (!seen || prev != RedirectToHome) && g.notifier != nil {
		g.notifier.Notify(out.LevelWarning, d.Warning)
	}
	return d
}

// Forget drops the history for key so the next Check is treated as a new
// navigation.
func (g *Guard) Forget(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.last, key)
}

// Reset forgets per-key history, e.g. after the session ends.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	clear(g.last)
}
