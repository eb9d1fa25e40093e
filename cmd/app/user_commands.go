package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/sealdrop/cmd/app/commands"
	"github.com/allisson/sealdrop/internal/app"
)

func getUserCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:     "create-user",
			Category: categoryAccounts,
			Usage:    "Create an account and enrol it in TOTP",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "email",
					Aliases:  []string{"e"},
					Required: true,
					Usage:    "Email address (only its hash is stored)",
				},
				&cli.StringFlag{
					Name:     "name",
					Required: true,
					Usage:    "Display name shown to recipients",
				},
				&cli.StringFlag{
					Name:    "password",
					Aliases: []string{"p"},
					Usage:   "Account password (omit to generate one)",
				},
				&cli.BoolFlag{
					Name:  "admin",
					Usage: "Grant access to the admin endpoints",
				},
				formatFlag(),
			},
			Action: withContainer(func(ctx context.Context, cmd *cli.Command, c *app.Container) error {
				userUseCase, err := c.UserUseCase()
				if err != nil {
					return err
				}
				return commands.RunCreateUser(
					ctx,
					userUseCase,
					c.Logger(),
					os.Stdout,
					cmd.String("email"),
					cmd.String("name"),
					cmd.String("password"),
					cmd.Bool("admin"),
					cmd.String("format"),
				)
			}),
		},
	}
}
