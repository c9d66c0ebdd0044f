package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/classweek-backend/internal/app"
	"github.com/yungbote/classweek-backend/internal/data/seed"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
)

var seedCmd = &cobra.Command{
	Use:   "seed-weeks <file.yaml>",
	Short: "Upsert weeks and their contents from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := seed.LoadFile(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, app.RoleTool, func(ctx context.Context, a *app.App) error {
			seeder := seed.NewSeeder(a.Log, a.Store.Repos.Weeks, a.Store.Repos.WeekContent)
			res, err := seeder.Apply(dbctx.With(ctx), f)
			if err != nil {
				return err
			}
			commandLogger(a, "seed-weeks").Info("Seed applied", "file", args[0], "weeks", res.Weeks, "contents", res.Contents)
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d weeks, %d contents\n", res.Weeks, res.Contents)
			return nil
		})
	},
}
