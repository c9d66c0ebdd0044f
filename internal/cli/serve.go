package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/classweek-backend/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, app.RoleAPI, func(ctx context.Context, a *app.App) error {
			return a.Serve(ctx)
		})
	},
}
