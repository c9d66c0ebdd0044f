package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/classweek-backend/internal/app"
)

var repairCmd = &cobra.Command{
	Use:   "repair [student-id]",
	Short: "Rebuild week pointers from the progress ledger",
	Long:  "Rebuilds current_week and completed_weeks for one student, or every student with --all.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if all == (len(args) == 1) {
			return fmt.Errorf("pass exactly one of a student id or --all")
		}
		return withApp(cmd, app.RoleTool, func(ctx context.Context, a *app.App) error {
			log := commandLogger(a, "repair")
			if !all {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid student id: %w", err)
				}
				res, err := a.Services.Repair.RecomputeStudent(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "student %s: week %d -> %d (completed %d, changed=%t)\n",
					res.StudentID, res.PreviousWeek, res.CurrentWeek, res.CompletedWeeks, res.Changed)
				return nil
			}
			if concurrency <= 0 {
				concurrency = a.Cfg.RepairConcurrency
			}
			results, err := a.Services.Repair.RecomputeAll(ctx, concurrency)
			changed := 0
			for _, r := range results {
				if r.Changed {
					changed++
				}
			}
			log.Info("Repair finished", "students", len(results), "changed", changed)
			fmt.Fprintf(cmd.OutOrStdout(), "repaired %d students, %d changed\n", len(results), changed)
			return err
		})
	},
}

func init() {
	repairCmd.Flags().Bool("all", false, "Repair every student")
	repairCmd.Flags().Int("concurrency", 0, "Parallel students when --all is set (default REPAIR_CONCURRENCY)")
}
