package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/tasktree/pkg/app"
	"github.com/harrisonrobin/tasktree/pkg/google"
	"github.com/harrisonrobin/tasktree/pkg/index"
	"github.com/harrisonrobin/tasktree/pkg/schedule"
)

var hoursCmd = &cobra.Command{
	Use:   "hours",
	Short: "Plan the day in 15-minute blocks",
}

var hoursShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the day timeline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			tasks := a.Schedule.Tasks()
			fmt.Fprint(cmd.OutOrStdout(), schedule.Render(tasks))
			for _, t := range tasks {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		})
	},
}

var hoursAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a block",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := clockFlag(cmd, "start")
		if err != nil {
			return err
		}
		duration, _ := cmd.Flags().GetInt("duration")
		return mutateSchedule(cmd, func(s *schedule.Scheduler) (schedule.Task, error) {
			return s.Create(args[0], start, duration)
		})
	},
}

var hoursMoveCmd = &cobra.Command{
	Use:   "move <id>",
	Short: "Move a block to a new start time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := blockID(args[0])
		if err != nil {
			return err
		}
		start, err := clockFlag(cmd, "start")
		if err != nil {
			return err
		}
		return mutateSchedule(cmd, func(s *schedule.Scheduler) (schedule.Task, error) {
			return s.MoveToMinutes(id, start)
		})
	},
}

var hoursResizeCmd = &cobra.Command{
	Use:   "resize <id>",
	Short: "Change the length of a block",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := blockID(args[0])
		if err != nil {
			return err
		}
		duration, _ := cmd.Flags().GetInt("duration")
		return mutateSchedule(cmd, func(s *schedule.Scheduler) (schedule.Task, error) {
			return s.ResizeToMinutes(id, duration)
		})
	},
}

var hoursEditCmd = &cobra.Command{
	Use:   "edit <id> <title>",
	Short: "Rename a block",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := blockID(args[0])
		if err != nil {
			return err
		}
		return mutateSchedule(cmd, func(s *schedule.Scheduler) (schedule.Task, error) {
			return s.EditTitle(id, args[1])
		})
	},
}

var hoursRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a block",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := blockID(args[0])
		if err != nil {
			return err
		}
		yes, _ := cmd.Flags().GetBool("yes")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Schedule.Delete(id, yes); err != nil {
				if errors.Is(err, schedule.ErrUnconfirmed) {
					return fmt.Errorf("%w: pass --yes to delete block %d", err, id)
				}
				return err
			}
			return a.SaveSchedule()
		})
	},
}

var hoursExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Copy the day's blocks to Google Calendar",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dateFlag, _ := cmd.Flags().GetString("date")
		day, err := parseDay(dateFlag)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			idx, err := index.Open(a.Config.IndexPath)
			if err != nil {
				return fmt.Errorf("opening event index: %w", err)
			}
			client, err := google.NewClient(ctx, a.Config.Calendar, idx)
			if err != nil {
				return err
			}
			events, exportErr := client.ExportDay(ctx, day, a.Schedule.Tasks())
			if err := idx.Save(); err != nil {
				return fmt.Errorf("saving event index: %w", err)
			}
			if exportErr != nil {
				return exportErr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d blocks to %s\n", len(events), a.Config.Calendar)
			return nil
		})
	},
}

// mutateSchedule applies change, saves the schedule and prints the block.
func mutateSchedule(cmd *cobra.Command, change func(*schedule.Scheduler) (schedule.Task, error)) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		t, err := change(a.Schedule)
		if err != nil {
			return err
		}
		if err := a.SaveSchedule(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), t)
		return nil
	})
}

func clockFlag(cmd *cobra.Command, name string) (int, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return 0, fmt.Errorf("--%s is required", name)
	}
	return schedule.ParseClock(v)
}

func blockID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid block id %q", s)
	}
	return id, nil
}

func init() {
	hoursAddCmd.Flags().String("start", "", "Start time (HH:MM)")
	hoursAddCmd.Flags().Int("duration", 60, "Length in minutes")
	hoursMoveCmd.Flags().String("start", "", "New start time (HH:MM)")
	hoursResizeCmd.Flags().Int("duration", 60, "New length in minutes")
	hoursRmCmd.Flags().Bool("yes", false, "Confirm the deletion")
	hoursExportCmd.Flags().String("date", "", "Day to export (YYYY-MM-DD, default today)")

	hoursCmd.AddCommand(hoursShowCmd, hoursAddCmd, hoursMoveCmd, hoursResizeCmd, hoursEditCmd, hoursRmCmd, hoursExportCmd)
	rootCmd.AddCommand(hoursCmd)
}
