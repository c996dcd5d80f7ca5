package views

import (
	"time"

	"cabconnect/internal/client/application/scheduler"
	"cabconnect/internal/client/domain"
)

// StatsView polls the system snapshot and the load balancer's backend table,
// both every 30 s by default. The two polls fail independently.
type StatsView struct {
	cache    *Cache[domain.Snapshot]
	sched    *scheduler.Scheduler[*domain.Snapshot]
	balancer *Cache[domain.BalancerStats]
	lbSched  *scheduler.Scheduler[*domain.BalancerStats]
}

func newStatsView(r *Router) View {
	d := r.deps
	v := &StatsView{cache: NewCache[domain.Snapshot](), balancer: NewCache[domain.BalancerStats]()}
	v.sched = scheduler.New(d.Loop, d.Gateway.GetSystemSnapshot,
		func(s *domain.Snapshot) { v.cache.Replace(*s) },
		v.cache.Fail,
		d.schedOptions("system_stats", d.Sync.Stats()))
	v.lbSched = scheduler.New(d.Loop, d.Gateway.GetBalancerStats,
		func(s *domain.BalancerStats) { v.balancer.Replace(*s) },
		v.balancer.Fail,
		d.schedOptions("balancer_stats", d.Sync.Stats()))
	return v
}

func (v *StatsView) Mount() {
	v.sched.Start()
	v.lbSched.Start()
}

func (v *StatsView) Unmount() {
	v.sched.Stop()
	v.lbSched.Stop()
}

func (v *StatsView) Snapshot() (domain.Snapshot, bool) { return v.cache.Get() }
func (v *StatsView) Err() error                        { return v.cache.Err() }
func (v *StatsView) Ready() <-chan struct{}            { return v.cache.Ready() }
func (v *StatsView) Updated() time.Time                { return v.cache.Updated() }

// Balancer is the latest backend table; ok is false until one arrived.
func (v *StatsView) Balancer() (domain.BalancerStats, bool) { return v.balancer.Get() }
func (v *StatsView) BalancerErr() error                     { return v.balancer.Err() }
func (v *StatsView) BalancerReady() <-chan struct{}         { return v.balancer.Ready() }
