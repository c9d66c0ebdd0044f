package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/classweek-backend/internal/app"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal worker for pointer advances and guardian notices",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, app.RoleWorker, func(ctx context.Context, a *app.App) error {
			return a.RunWorker(ctx)
		})
	},
}
