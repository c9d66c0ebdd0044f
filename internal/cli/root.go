// Package cli holds the classweek command tree.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/classweek-backend/internal/app"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

var rootCmd = &cobra.Command{
	Use:           "classweek",
	Short:         "Weekly course progress backend",
	Long:          "classweek serves weekly course materials, tracks student progress, unlocks weeks and collects homework.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(tokenCmd)
}

// withApp builds the app for role, runs fn with a signal-aware context, then closes it.
func withApp(cmd *cobra.Command, role app.Role, fn func(ctx context.Context, a *app.App) error) error {
	log, err := app.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, log, role)
	if err != nil {
		log.Error("Startup failed", "error", err)
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func commandLogger(a *app.App, name string) *logger.Logger {
	return a.Log.With("command", name)
}
