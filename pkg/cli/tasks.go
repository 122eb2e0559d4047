package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harrisonrobin/tasktree/pkg/app"
	"github.com/harrisonrobin/tasktree/pkg/model"
	"github.com/harrisonrobin/tasktree/pkg/orgmode"
	"github.com/harrisonrobin/tasktree/pkg/tree"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List and change tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the task tree",
	Long: `Print the task tree. --filter narrows it to today, tomorrow or triage;
sections are always shown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, _ := cmd.Flags().GetString("filter")
		criterion, err := model.ParseCriterion(filter)
		if err != nil {
			return err
		}
		dateFlag, _ := cmd.Flags().GetString("date")
		ref, err := parseDay(dateFlag)
		if err != nil {
			return err
		}
		showIDs, _ := cmd.Flags().GetBool("ids")

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			roots := a.Tree.Snapshot()
			visible := a.Tree.Filter(criterion, ref)
			if showIDs {
				a.Tree.Walk(func(n *model.TaskNode, depth int) {
					if visible[n.ID] {
						fmt.Fprintf(cmd.OutOrStdout(), "%*s%s  %s\n", depth*2, "", n.ID, n.Content)
					}
				})
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), tree.Render(roots, visible))
			if a.Adapter.Pending() {
				fmt.Fprintln(cmd.ErrOrStderr(), "Local changes are waiting to be synced.")
			}
			return nil
		})
	},
}

var tasksAddCmd = &cobra.Command{
	Use:   "add <content>",
	Short: "Add a task or section",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, _ := cmd.Flags().GetString("parent")
		section, _ := cmd.Flags().GetBool("section")
		date, _ := cmd.Flags().GetString("date")
		estimate, _ := cmd.Flags().GetFloat64("estimate")
		flagNames, _ := cmd.Flags().GetStringSlice("flag")

		data := model.TaskNode{
			Content:      args[0],
			IsSection:    section,
			RevisitDate:  date,
			TimeEstimate: estimate,
		}
		if date != "" {
			if _, ok := model.ParseDate(date); !ok {
				return fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
			}
		}
		for _, name := range flagNames {
			f, err := model.ParseFlag(name)
			if err != nil {
				return err
			}
			data.SetFlag(f, true)
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			id, ok := a.Tree.Add(parent, data)
			if !ok {
				return fmt.Errorf("cannot add %q under %s", args[0], parent)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", id)
			return nil
		})
	},
}

var tasksEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of one task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch model.TaskPatch
		flags := cmd.Flags()
		if flags.Changed("content") {
			v, _ := flags.GetString("content")
			patch.Content = &v
		}
		if flags.Changed("date") {
			v, _ := flags.GetString("date")
			if _, ok := model.ParseDate(v); v != "" && !ok {
				return fmt.Errorf("invalid date %q, want YYYY-MM-DD", v)
			}
			patch.RevisitDate = &v
		}
		if flags.Changed("estimate") {
			v, _ := flags.GetFloat64("estimate")
			if v < 0 {
				return fmt.Errorf("estimate must not be negative")
			}
			patch.TimeEstimate = &v
		}
		if flags.Changed("overview") {
			v, _ := flags.GetString("overview")
			patch.Overview = &v
		}
		if flags.Changed("details") {
			v, _ := flags.GetString("details")
			patch.Details = &v
		}
		if flags.Changed("scheduled") {
			v, _ := flags.GetString("scheduled")
			patch.ScheduledTime = &v
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.UpdateTask(ctx, args[0], patch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", args[0])
			return nil
		})
	},
}

var tasksDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		undo, _ := cmd.Flags().GetBool("undo")
		completed := !undo
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return a.UpdateTask(ctx, args[0], model.TaskPatch{Completed: &completed})
		})
	},
}

var tasksFlagCmd = &cobra.Command{
	Use:   "flag <id> <fire|fast|flow|fear|first>",
	Short: "Toggle a priority flag",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := model.ParseFlag(args[1])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			on, err := a.ToggleFlag(ctx, args[0], f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %t\n", args[0], f, on)
			return nil
		})
	},
}

var tasksMoveCmd = &cobra.Command{
	Use:   "move <id>",
	Short: "Move a task under another parent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, _ := cmd.Flags().GetString("parent")
		index, _ := cmd.Flags().GetInt("index")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if !a.Tree.Move(args[0], parent, index) {
				return fmt.Errorf("cannot move %s under %q", args[0], parent)
			}
			return nil
		})
	},
}

var tasksRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a task and its subtasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return a.DeleteTask(ctx, args[0])
		})
	},
}

var tasksSortCmd = &cobra.Command{
	Use:   "sort <section-id>",
	Short: "Order a section's open tasks by priority score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if !a.Tree.SortByPriority(args[0]) {
				return fmt.Errorf("%s is not a section", args[0])
			}
			return nil
		})
	},
}

var tasksImportCmd = &cobra.Command{
	Use:   "import <file.org>",
	Short: "Import tasks from an Org-mode file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roots, err := orgmode.ParseFile(args[0], func() string { return uuid.New().String() })
		if err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks\n", a.Import(roots))
			return nil
		})
	},
}

var tasksSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push locally saved changes to the API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Adapter.Sync(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "In sync.")
			return nil
		})
	},
}

func init() {
	tasksListCmd.Flags().String("filter", "all", "all, today, tomorrow or triage")
	tasksListCmd.Flags().String("date", "", "Reference date for the filter (YYYY-MM-DD, default today)")
	tasksListCmd.Flags().Bool("ids", false, "Print ids instead of the styled tree")

	tasksAddCmd.Flags().String("parent", "", "Parent task or section id (default root)")
	tasksAddCmd.Flags().Bool("section", false, "Add a section instead of a task")
	tasksAddCmd.Flags().String("date", "", "Revisit date (YYYY-MM-DD)")
	tasksAddCmd.Flags().Float64("estimate", 0, "Time estimate in hours")
	tasksAddCmd.Flags().StringSlice("flag", nil, "Priority flags to set")

	tasksEditCmd.Flags().String("content", "", "New title")
	tasksEditCmd.Flags().String("date", "", "Revisit date (YYYY-MM-DD, empty clears)")
	tasksEditCmd.Flags().Float64("estimate", 0, "Time estimate in hours")
	tasksEditCmd.Flags().String("overview", "", "One-line overview")
	tasksEditCmd.Flags().String("details", "", "Free-form details")
	tasksEditCmd.Flags().String("scheduled", "", "Scheduled time")

	tasksDoneCmd.Flags().Bool("undo", false, "Mark the task open again")

	tasksMoveCmd.Flags().String("parent", "", "New parent id (default root)")
	tasksMoveCmd.Flags().Int("index", -1, "Position among the new siblings (default last)")

	tasksCmd.AddCommand(tasksListCmd, tasksAddCmd, tasksEditCmd, tasksDoneCmd, tasksFlagCmd,
		tasksMoveCmd, tasksRmCmd, tasksSortCmd, tasksImportCmd, tasksSyncCmd)
	rootCmd.AddCommand(tasksCmd)
}

