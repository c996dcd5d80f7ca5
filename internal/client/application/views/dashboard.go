package views

import "cabconnect/internal/client/domain"

// DashboardView is the landing page. It has nothing to poll.
type DashboardView struct {
	router *Router
}

func newDashboardView(r *Router) View { return &DashboardView{router: r} }

func (v *DashboardView) Mount()   {}
func (v *DashboardView) Unmount() {}

func (v *DashboardView) Session() (domain.Session, bool) {
	return v.router.deps.Sessions.Current()
}

func (v *DashboardView) Menu() []MenuItem { return v.router.Menu() }
