// Package migrate provides the migrate sub-command.
package migrate

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/thiagomk/eventdesk/internal/store/postgres"
	"github.com/urfave/cli/v3"
)

// Command returns the migrate sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database schema migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "db-url",
				Sources:  cli.EnvVars("EVENTDESK_DB_URL"),
				Usage:    "Postgres connection URL",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log.Info("Running migrations...")
			if err := postgres.Migrate(ctx, cmd.String("db-url")); err != nil {
				return err
			}
			log.Info("All migrations completed successfully")
			return nil
		},
	}
}
