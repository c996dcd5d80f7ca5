// Package cli is the cabconnect terminal front end. Every command navigates
// the router exactly as a page visit would, so the guard applies the same way.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cabconnect/internal/client/application/guard"
	"cabconnect/internal/client/application/views"
	"cabconnect/internal/client/bootstrap"
	"cabconnect/internal/client/domain"
	"cabconnect/internal/shared/config"
	"cabconnect/internal/shared/logger"
)

// Options wires the command tree to its surroundings; zero values mean the
// process stdio.
type Options struct {
	Out    io.Writer
	In     io.Reader
	LogOut io.Writer
}

// Reported marks an error the user has already been shown as a notification.
type Reported struct{ Err error }

func (r Reported) Error() string { return r.Err.Error() }
func (r Reported) Unwrap() error { return r.Err }

var (
	errNotLoggedIn = errors.New("not logged in: run `cabconnect login <username>` first")
	errForbidden   = errors.New("this page is not available for your account type")
)

type root struct {
	opts      Options
	configDir string
	in        *bufio.Reader
}

func NewRootCommand(opts Options) *cobra.Command {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	r := &root{opts: opts, in: bufio.NewReader(opts.In)}

	cmd := &cobra.Command{
		Use:           "cabconnect",
		Short:         "CabConnect rider and driver client",
		Long:          "cabconnect books, tracks and accepts cab rides through the CabConnect API gateway.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(opts.Out)
	cmd.SetIn(opts.In)
	cmd.PersistentFlags().StringVar(&r.configDir, "config", "", "directory holding client.yaml (default $CONFIG_DIR or ./config)")

	cmd.AddCommand(
		r.loginCmd(),
		r.registerCmd(),
		r.logoutCmd(),
		r.whoamiCmd(),
		r.menuCmd(),
		r.bookCmd(),
		r.ridesCmd(),
		r.cancelCmd(),
		r.availableCmd(),
		r.acceptCmd(),
		r.advanceCmd("start", "Pick up the rider of an accepted ride (drivers only)", domain.StatusInProgress),
		r.advanceCmd("complete", "Finish a ride in progress (drivers only)", domain.StatusCompleted),
		r.activeCmd(),
		r.availabilityCmd(),
		r.driversCmd(),
		r.statsCmd(),
		r.healthCmd(),
		r.clockCmd(),
		r.watchCmd(),
	)
	return cmd
}

func (r *root) loadConfig() (config.Config, error) {
	if r.configDir != "" {
		return config.LoadDir(r.configDir)
	}
	return config.Load()
}

func (r *root) newLogger(cfg config.Config) (*logger.Logger, error) {
	return logger.New("cabconnect", logger.Options{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Dir:    cfg.Log.Dir,
		Out:    r.opts.LogOut,
	})
}

// withApp builds and starts the client for one command and tears it down after.
func (r *root) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App) error) error {
	cfg, err := r.loadConfig()
	if err != nil {
		return err
	}
	log, err := r.newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	app, err := bootstrap.Build(cfg, log, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	return fn(ctx, app)
}

// open navigates to path and returns the view if the guard let it render.
func open[V views.View](ctx context.Context, app *bootstrap.App, path string) (V, error) {
	var zero V
	v, loc, err := app.Router.Go(ctx, path)
	if err != nil {
		return zero, err
	}
	if loc.Outcome == guard.Render && loc.Path == path {
		if typed, ok := v.(V); ok {
			return typed, nil
		}
	}
	switch loc.Path {
	case views.PathLogin:
		return zero, errNotLoggedIn
	case views.PathHome:
		return zero, Reported{errForbidden}
	}
	return zero, fmt.Errorf("cannot open %s (landed on %s)", path, loc.Path)
}

type loader interface {
	Ready() <-chan struct{}
	Err() error
}

// waitLoaded blocks until a polling view has its first result.
func waitLoaded(ctx context.Context, v loader, timeout time.Duration) error {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-v.Ready():
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return errors.New("timed out waiting for the gateway")
	}
	return v.Err()
}

func reported(err error) error {
	if err == nil {
		return nil
	}
	return Reported{err}
}

func (r *root) confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	line, _ := r.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (r *root) readLine(cmd *cobra.Command, prompt string) string {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, _ := r.in.ReadString('\n')
	return strings.TrimSpace(line)
}
