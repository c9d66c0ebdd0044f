package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/classweek-backend/internal/app"
	"github.com/yungbote/classweek-backend/internal/domain/user"
	httpMW "github.com/yungbote/classweek-backend/internal/http/middleware"
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Mint a bearer token for local testing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}
		roleFlag, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		role := user.Role(strings.ToLower(roleFlag))
		switch role {
		case user.RoleStudent, user.RoleTeacher, user.RoleAdmin:
		default:
			return fmt.Errorf("unknown role %q", roleFlag)
		}

		log, err := app.NewLogger()
		if err != nil {
			return err
		}
		defer log.Sync()
		cfg, err := app.LoadConfig(log)
		if err != nil {
			return err
		}
		if cfg.Environment == "production" {
			return fmt.Errorf("token minting is disabled in production")
		}
		tok, err := httpMW.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer).Sign(id, role, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("role", string(user.RoleStudent), "student, teacher or admin")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
}
