package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ege-manyasli/manyasligida/internal/config"
	"github.com/ege-manyasli/manyasligida/internal/database"
	"github.com/ege-manyasli/manyasligida/internal/repository/postgres"
	"github.com/ege-manyasli/manyasligida/internal/service"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := database.Connect(cmd.Context(), &cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(cmd.Context(), db.DB); err != nil {
				return err
			}
			logrus.Info("migrations applied")
			return nil
		},
	}
}

func newCleanupSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-sessions",
		Short: "Deactivate every expired session once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := database.Connect(cmd.Context(), &cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			sessions := service.NewSessionManager(
				postgres.NewSessionRepository(db),
				postgres.NewUserRepository(db),
				nil,
				&config.SessionConfig{TTL: cfg.Session.TTL},
			)

			n, err := sessions.CleanupExpiredSessions(cmd.Context())
			if err != nil {
				return err
			}
			logrus.WithField("count", n).Info("expired sessions deactivated")
			return nil
		},
	}
}
