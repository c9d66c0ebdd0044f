package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/classweek-backend/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update tables (relational) or indexes (mongo) and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		// app.New migrates while opening the store.
		if err := os.Setenv("DB_AUTO_MIGRATE", "true"); err != nil {
			return err
		}
		return withApp(cmd, app.RoleTool, func(ctx context.Context, a *app.App) error {
			commandLogger(a, "migrate").Info("Migration complete", "store", a.Cfg.Store)
			return nil
		})
	},
}
