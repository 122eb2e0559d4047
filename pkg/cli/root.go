// Package cli is the tasktree command line.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/tasktree/pkg/app"
	"github.com/harrisonrobin/tasktree/pkg/config"
	"github.com/harrisonrobin/tasktree/pkg/model"
)

var rootCmd = &cobra.Command{
	Use:   "tasktree",
	Short: "Hierarchical task manager with a day planner",
	Long: `tasktree keeps a tree of tasks and sections, flagged by priority and
revisit date, and a 15-minute day planner. Tasks are stored through the
REST API served by 'tasktree serve', with a local fallback when the API is
unreachable.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// withApp loads config, starts the app, runs fn and saves on the way out.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a, err := app.New(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.Start(ctx); err != nil {
		return err
	}

	runErr := fn(ctx, a)
	if err := a.Close(ctx); err != nil && runErr == nil {
		runErr = fmt.Errorf("saving: %w", err)
	}
	return runErr
}

// parseDay reads a YYYY-MM-DD flag value; empty means today.
func parseDay(s string) (time.Time, error) {
	if s == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local), nil
	}
	t, err := time.ParseInLocation(model.DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}
