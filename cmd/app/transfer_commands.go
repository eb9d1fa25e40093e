package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/sealdrop/cmd/app/commands"
	"github.com/allisson/sealdrop/internal/app"
)

func getTransferCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:     "unlock-transfer",
			Category: categoryTransfers,
			Usage:    "Clear the failed-code counter of a locked transfer URL",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "token",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Transfer URL token",
				},
				actorFlag(),
				formatFlag(),
			},
			Action: withContainer(func(ctx context.Context, cmd *cli.Command, c *app.Container) error {
				authUseCase, err := c.AuthUseCase()
				if err != nil {
					return err
				}
				return commands.RunUnlockTransfer(
					ctx,
					authUseCase,
					c.Logger(),
					os.Stdout,
					cmd.String("token"),
					cmd.String("actor-id"),
					cmd.String("format"),
				)
			}),
		},
		{
			Name:     "force-delete-transfer",
			Category: categoryTransfers,
			Usage:    "Remove a transfer's wrapped key and stored object and tombstone it",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Transfer ID (UUID)",
				},
				actorFlag(),
				formatFlag(),
			},
			Action: withContainer(func(ctx context.Context, cmd *cli.Command, c *app.Container) error {
				broker, err := c.DownloadBroker()
				if err != nil {
					return err
				}
				return commands.RunForceDeleteTransfer(
					ctx,
					broker,
					c.Logger(),
					os.Stdout,
					cmd.String("id"),
					cmd.String("actor-id"),
					cmd.String("format"),
				)
			}),
		},
		{
			Name:     "expire-transfers",
			Category: categoryTransfers,
			Usage:    "Expire past-due transfers and purge their keys and objects (run from cron)",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"l"},
					Value:   100,
					Usage:   "Maximum number of transfers to expire",
				},
				dryRunFlag("Count past-due transfers without expiring them"),
				formatFlag(),
			},
			Action: withContainer(func(ctx context.Context, cmd *cli.Command, c *app.Container) error {
				broker, err := c.DownloadBroker()
				if err != nil {
					return err
				}
				return commands.RunExpireTransfers(
					ctx,
					broker,
					c.Logger(),
					os.Stdout,
					int(cmd.Int("limit")),
					cmd.Bool("dry-run"),
					cmd.String("format"),
				)
			}),
		},
	}
}
