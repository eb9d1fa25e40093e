package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/sealdrop/cmd/app/commands"
	"github.com/allisson/sealdrop/internal/app"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:     "server",
			Category: categoryOperations,
			Usage:    "Serve the sender, recipient and admin API",
			Action: func(ctx context.Context, _ *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:     "migrate",
			Category: categoryOperations,
			Usage:    "Apply pending schema migrations for the configured DB_DRIVER",
			Action: withContainer(func(_ context.Context, _ *cli.Command, c *app.Container) error {
				cfg := c.Config()
				return commands.RunMigrations(c.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			}),
		},
		{
			Name:     "clean-audit-logs",
			Category: categoryOperations,
			Usage:    "Purge audit entries past the retention window",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:     "days",
					Aliases:  []string{"d"},
					Required: true,
					Usage:    "Retention window in days",
				},
				dryRunFlag("Count matching entries without deleting them"),
				formatFlag(),
			},
			Action: withContainer(func(ctx context.Context, cmd *cli.Command, c *app.Container) error {
				auditLogUseCase, err := c.AuditLogUseCase()
				if err != nil {
					return err
				}
				return commands.RunCleanAuditLogs(
					ctx,
					auditLogUseCase,
					c.Logger(),
					os.Stdout,
					int(cmd.Int("days")),
					cmd.Bool("dry-run"),
					cmd.String("format"),
				)
			}),
		},
	}
}
