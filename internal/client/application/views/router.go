package views

import (
	"context"
	"slices"
	"sync"

	"cabconnect/internal/client/application/guard"
	"cabconnect/internal/client/domain"
	"cabconnect/internal/shared/logger"
)

// Location is where the router currently is.
type Location struct {
	Path    string
	Outcome guard.Outcome
}

// Router mounts one view at a time. Everything except Location, Go and
// Subscribe must run on the event loop.
type Router struct {
	deps   Deps
	guard  *guard.Guard
	routes map[string]Route

	view    View
	path    string
	waiting string
	unsub   func()

	mu        sync.RWMutex
	loc       Location
	observers []func(Location)
}

func NewRouter(deps Deps, g *guard.Guard) *Router {
	r := &Router{deps: deps, guard: g, routes: map[string]Route{}}
	for _, rt := range Routes() {
		r.routes[rt.Path] = rt
	}
	return r
}

// Start follows session changes. Safe from any goroutine.
func (r *Router) Start() {
	r.unsub = r.deps.Sessions.Subscribe(r.onSessionChange)
}

// Close unmounts the current view. Loop only.
func (r *Router) Close() {
	if r.unsub != nil {
		r.unsub()
		r.unsub = nil
	}
	r.unmount()
}

// Go navigates from outside the loop and returns the view that ended up
// mounted, which may differ from the one requested.
func (r *Router) Go(ctx context.Context, path string) (View, Location, error) {
	var (
		v   View
		loc Location
	)
	err := r.deps.Loop.Call(ctx, func() {
		r.Navigate(path)
		v, loc = r.view, r.Location()
	})
	return v, loc, err
}

// Navigate unmounts the current view before mounting the next one. Each call
// is a fresh attempt: a role warning for path is shown again even if the
// previous attempt was refused the same way.
func (r *Router) Navigate(path string) {
	r.guard.Forget(path)
	r.navigate(path, 0)
}

func (r *Router) navigate(path string, depth int) {
	route, ok := r.routes[path]
	if !ok {
		r.deps.Log.Debug(logger.Entry{
			Action:     "route_not_found",
			Message:    path,
			Additional: map[string]any{"redirect": PathHome},
		})
		path = PathHome
		route = r.routes[path]
	}
	if depth > 3 {
		r.deps.Log.Error(logger.Entry{Action: "route_redirect_loop", Message: path})
		return
	}

	d := r.guard.Check(path, r.deps.Sessions.State(), route.Requirement)
	switch d.Outcome {
	case guard.Wait:
		r.unmount()
		r.waiting = path
		r.setLocation(Location{Path: path, Outcome: guard.Wait})
	case guard.RedirectToLogin:
		r.navigate(PathLogin, depth+1)
	case guard.RedirectToHome:
		r.navigate(PathHome, depth+1)
	case guard.Render:
		r.waiting = ""
		if r.view != nil && r.path == path {
			return
		}
		r.unmount()
		r.view = route.New(r)
		r.path = path
		r.view.Mount()
		r.deps.Log.Debug(logger.Entry{Action: "view_mounted", Message: path})
		r.setLocation(Location{Path: path, Outcome: guard.Render})
	}
}

func (r *Router) unmount() {
	if r.view == nil {
		return
	}
	r.view.Unmount()
	r.deps.Log.Debug(logger.Entry{Action: "view_unmounted", Message: r.path})
	r.view, r.path = nil, ""
}

// onSessionChange runs on the loop right after the store changed state. On
// logout or expiry the view is torn down before the redirect to login.
func (r *Router) onSessionChange(ch domain.SessionChange) {
	if ch.Ended() {
		r.unmount()
		r.guard.Reset()
		r.navigate(PathLogin, 0)
		return
	}
	target := r.waiting
	if target == "" {
		target = r.path
	}
	if target == "" {
		target = PathHome
	}
	r.navigate(target, 0)
}

// Current returns the mounted view. Loop only.
func (r *Router) Current() View { return r.view }

// Location may be read from any goroutine.
func (r *Router) Location() Location {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loc
}

// Subscribe registers fn for location changes; fn runs on the loop.
func (r *Router) Subscribe(fn func(Location)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

func (r *Router) setLocation(loc Location) {
	r.mu.Lock()
	r.loc = loc
	obs := slices.Clone(r.observers)
	r.mu.Unlock()
	for _, fn := range obs {
		fn(loc)
	}
}

// Menu lists navigation entries for the signed-in user.
func (r *Router) Menu() []MenuItem {
	sess, ok := r.deps.Sessions.Current()
	if !ok {
		return nil
	}
	return Menu(sess.Role)
}
