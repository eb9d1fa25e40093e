package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/allisson/sealdrop/internal/app"
	"github.com/allisson/sealdrop/internal/config"
)

const (
	categoryOperations = "operations"
	categoryAccounts   = "accounts"
	categoryTransfers  = "transfers"
)

func getCommands(version string) []*cli.Command {
	var cmds []*cli.Command
	cmds = append(cmds, getSystemCommands(version)...)
	cmds = append(cmds, getUserCommands()...)
	cmds = append(cmds, getTransferCommands()...)
	return cmds
}

// withContainer loads configuration, builds the DI container for one command
// invocation and shuts it down afterwards.
func withContainer(fn func(ctx context.Context, cmd *cli.Command, c *app.Container) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg := config.Load()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		container := app.NewContainer(cfg)
		defer func() { _ = container.Shutdown(ctx) }()
		return fn(ctx, cmd, container)
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func actorFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "actor-id",
		Usage: "User ID recorded as the actor in the audit log",
	}
}

func dryRunFlag(usage string) cli.Flag {
	return &cli.BoolFlag{
		Name:    "dry-run",
		Aliases: []string{"n"},
		Usage:   usage,
	}
}
