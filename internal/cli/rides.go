package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cabconnect/internal/client/application/views"
	"cabconnect/internal/client/bootstrap"
	"cabconnect/internal/client/domain"
)

func (r *root) bookCmd() *cobra.Command {
	var pickup, destination string
	var yes bool
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book a ride (riders only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				v, err := open[*views.BookRideView](ctx, app, views.PathBookRide)
				if err != nil {
					return err
				}
				q, err := v.Quote(ctx, pickup, destination)
				if err != nil {
					return reported(err)
				}
				printQuote(cmd.OutOrStdout(), q.Quote, q.Drivers)
				if !yes && !r.confirm(cmd, fmt.Sprintf("Book this ride for %.2f?", q.Quote.Fare)) {
					fmt.Fprintln(cmd.OutOrStdout(), "Booking aborted.")
					return nil
				}
				res, err := v.Confirm(ctx)
				if err != nil {
					return reported(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Ride %s is %s\n", res.Ride.ID, res.Ride.Status)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&pickup, "pickup", "", "pickup location")
	f.StringVar(&destination, "destination", "", "destination")
	f.BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("pickup")
	_ = cmd.MarkFlagRequired("destination")
	return cmd
}

func (r *root) ridesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rides",
		Short: "List your rides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				v, err := open[*views.MyRidesView](ctx, app, views.PathMyRides)
				if err != nil {
					return err
				}
				if err := waitLoaded(ctx, v, app.Config.Gateway.Timeout()); err != nil {
					return err
				}
				printRides(cmd.OutOrStdout(), v.Rides(), v.Pending)
				return nil
			})
		},
	}
}

func (r *root) cancelCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "cancel <ride-id>",
		Short: "Cancel one of your rides",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				v, err := open[*views.MyRidesView](ctx, app, views.PathMyRides)
				if err != nil {
					return err
				}
				if err := waitLoaded(ctx, v, app.Config.Gateway.Timeout()); err != nil {
					return err
				}
				preview, err := v.PreviewCancel(args[0])
				if err != nil {
					return err
				}
				prompt := fmt.Sprintf("Cancel ride %s (%s)? Your rating will drop by %s.",
					preview.Ride.ID, preview.Ride.Status, domain.FormatPenalty(preview.Penalty))
				if !yes && !r.confirm(cmd, prompt) {
					fmt.Fprintln(cmd.OutOrStdout(), "Ride kept.")
					return nil
				}
				_, err = v.Cancel(ctx, args[0])
				return reported(err)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func (r *root) availableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "available",
		Short: "List unassigned ride requests (drivers only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				v, err := open[*views.AvailableRidesView](ctx, app, views.PathAvailableRides)
				if err != nil {
					return err
				}
				if err := waitLoaded(ctx, v, app.Config.Gateway.Timeout()); err != nil {
					return err
				}
				printRides(cmd.OutOrStdout(), v.Rides(), v.Pending)
				return nil
			})
		},
	}
}

func (r *root) acceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept <ride-id>",
		Short: "Accept a ride request (drivers only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				v, err := open[*views.AvailableRidesView](ctx, app, views.PathAvailableRides)
				if err != nil {
					return err
				}
				if err := waitLoaded(ctx, v, app.Config.Gateway.Timeout()); err != nil {
					return err
				}
				res, err := v.Accept(ctx, args[0])
				if err != nil {
					return reported(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Ride %s: %s → %s, rider %s\n",
					res.Ride.ID, res.Ride.Pickup, res.Ride.Destination, res.Ride.RiderName)
				return nil
			})
		},
	}
}

// advanceCmd builds start and complete: both move the driver's own ride one
// step along its lifecycle.
func (r *root) advanceCmd(use, short string, to domain.RideStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <ride-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				v, err := open[*views.MyRidesView](ctx, app, views.PathMyRides)
				if err != nil {
					return err
				}
				if err := waitLoaded(ctx, v, app.Config.Gateway.Timeout()); err != nil {
					return err
				}
				_, err = v.Advance(ctx, args[0], to)
				return reported(err)
			})
		},
	}
}

func (r *root) activeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "List every ride that has not finished yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				if _, ok := app.Sessions.Current(); !ok {
					return errNotLoggedIn
				}
				rides, err := app.Gateway.ListActiveRides(ctx)
				if err != nil {
					return err
				}
				printRides(cmd.OutOrStdout(), rides, nil)
				return nil
			})
		},
	}
}
