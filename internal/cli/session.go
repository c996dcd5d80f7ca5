package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cabconnect/internal/client/application/views"
	"cabconnect/internal/client/bootstrap"
	"cabconnect/internal/client/domain"
)

func (r *root) loginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and remember the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = r.readLine(cmd, "Password: ")
			}
			return r.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				if sess, ok := app.Sessions.Current(); ok {
					return fmt.Errorf("already logged in as %s, run `cabconnect logout` first", sess.Username)
				}
				v, err := open[*views.LoginView](ctx, app, views.PathLogin)
				if err != nil {
					return err
				}
				sess, err := v.Login(ctx, args[0], password)
				if err != nil {
					return reported(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s (%s)\n", sess.DisplayName(), sess.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func (r *root) registerCmd() *cobra.Command {
	var reg domain.Registration
	var role string
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create a rider or driver account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg.Username = args[0]
			parsed, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			reg.Role = parsed
			if reg.Password == "" {
				reg.Password = r.readLine(cmd, "Password: ")
				reg.ConfirmPassword = r.readLine(cmd, "Confirm password: ")
			}
			return r.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				v, err := open[*views.RegisterView](ctx, app, views.PathRegister)
				if err != nil {
					if errors.Is(err, errForbidden) {
						return errors.New("log out before registering a new account")
					}
					return err
				}
				_, err = v.Register(ctx, reg)
				return reported(err)
			})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&reg.Password, "password", "p", "", "password (prompted when omitted)")
	f.StringVar(&reg.ConfirmPassword, "confirm-password", "", "repeat the password")
	f.StringVar(&role, "role", string(domain.RoleRider), "RIDER or DRIVER")
	f.StringVar(&reg.Name, "name", "", "full name")
	f.StringVar(&reg.Email, "email", "", "email")
	f.StringVar(&reg.Phone, "phone", "", "phone")
	return cmd
}

func (r *root) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				if _, ok := app.Sessions.Current(); !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
					return nil
				}
				if err := app.Sessions.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
				return nil
			})
		},
	}
}

func (r *root) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				sess, ok := app.Sessions.Current()
				if !ok {
					return errNotLoggedIn
				}
				printSession(cmd.OutOrStdout(), sess)
				return nil
			})
		},
	}
}

func (r *root) menuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Show the navigation menu for your account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				v, err := open[*views.DashboardView](ctx, app, views.PathHome)
				if err != nil {
					return err
				}
				sess, _ := v.Session()
				fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s!\n", sess.DisplayName())
				for _, item := range v.Menu() {
					fmt.Fprintf(cmd.OutOrStdout(), "  %-18s %s\n", item.Title, item.Path)
				}
				return nil
			})
		},
	}
}
