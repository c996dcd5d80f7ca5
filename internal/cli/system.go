package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cabconnect/internal/client/application/guard"
	"cabconnect/internal/client/application/views"
	"cabconnect/internal/client/bootstrap"
	"cabconnect/internal/client/domain"
)

func (r *root) availabilityCmd() *cobra.Command {
	var available bool
	var location string
	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Go on or off duty at a location (drivers only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				v, err := open[*views.AvailabilityView](ctx, app, views.PathAvailability)
				if err != nil {
					return err
				}
				_, err = v.Set(ctx, available, location)
				return reported(err)
			})
		},
	}
	cmd.Flags().BoolVar(&available, "available", true, "accept ride requests")
	cmd.Flags().StringVar(&location, "location", "", "where you are waiting")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}

func (r *root) driversCmd() *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "drivers",
		Short: "List available drivers near a location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := domain.NormalizeLocation(location)
			if err != nil {
				return err
			}
			return r.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				if _, ok := app.Sessions.Current(); !ok {
					return errNotLoggedIn
				}
				drivers, err := app.Gateway.ListAvailableDrivers(ctx, loc)
				if err != nil {
					return err
				}
				printDrivers(cmd.OutOrStdout(), drivers)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "pickup location")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}

func (r *root) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show system statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				v, err := open[*views.StatsView](ctx, app, views.PathStats)
				if err != nil {
					return err
				}
				if err := waitLoaded(ctx, v, app.Config.Gateway.Timeout()); err != nil {
					return err
				}
				snap, _ := v.Snapshot()
				printSnapshot(cmd.OutOrStdout(), snap)

				// the backend table is optional: print it only if it arrives in time
				select {
				case <-v.BalancerReady():
					if lb, ok := v.Balancer(); ok {
						printBalancer(cmd.OutOrStdout(), lb)
					}
				case <-time.After(app.Config.Gateway.Timeout()):
				case <-ctx.Done():
				}
				return nil
			})
		},
	}
}

func (r *root) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the gateway is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				h, err := app.Gateway.Health(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Gateway %s, backend %s (leader: %t)\n", h.Status, h.ServerID, h.IsLeader)
				return nil
			})
		},
	}
}

func (r *root) clockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clock",
		Short: "Show the backend's wall clock and logical clocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				c, err := app.Gateway.GetServerClock(ctx)
				if err != nil {
					return err
				}
				printClock(cmd.OutOrStdout(), *c)
				return nil
			})
		},
	}
}

// watchCmd keeps a page mounted and reprints it whenever its data changes,
// the way the browser keeps a tab open.
func (r *root) watchCmd() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Keep a page open and print its updates (Ctrl-C to stop)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := views.PathHome
			if len(args) == 1 {
				path = args[0]
			}
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return r.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				if metricsAddr == "" {
					metricsAddr = app.Config.Metrics.Addr
				}
				w := cmd.OutOrStdout()
				app.Router.Subscribe(func(loc views.Location) {
					if loc.Outcome == guard.Render {
						fmt.Fprintf(w, "-- %s\n", loc.Path)
					}
				})
				if _, _, err := app.Router.Go(ctx, path); err != nil {
					return err
				}

				done := make(chan error, 1)
				go func() { done <- app.Run(ctx, metricsAddr) }()

				ticker := time.NewTicker(500 * time.Millisecond)
				defer ticker.Stop()
				var last time.Time
				for {
					select {
					case err := <-done:
						if errors.Is(err, context.Canceled) {
							return nil
						}
						return err
					case <-ticker.C:
						last = r.renderCurrent(ctx, app, last)
					}
				}
			})
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9102")
	return cmd
}

// renderCurrent prints the mounted view if its cache changed since last.
func (r *root) renderCurrent(ctx context.Context, app *bootstrap.App, last time.Time) time.Time {
	var v views.View
	if err := app.Loop.Call(ctx, func() { v = app.Router.Current() }); err != nil {
		return last
	}
	w := r.opts.Out
	switch cur := v.(type) {
	case *views.MyRidesView:
		if u := cur.Updated(); u.After(last) {
			printRides(w, cur.Rides(), cur.Pending)
			return u
		}
	case *views.AvailableRidesView:
		if u := cur.Updated(); u.After(last) {
			printRides(w, cur.Rides(), cur.Pending)
			return u
		}
	case *views.StatsView:
		if u := cur.Updated(); u.After(last) {
			if snap, ok := cur.Snapshot(); ok {
				printSnapshot(w, snap)
			}
			return u
		}
	}
	return last
}
