// Package main provides the CLI entry point for the paginator bot, a
// Discord service that turns multi-page content into live messages
// navigated with reaction or button controls.
//
// # Basic Usage
//
// Start the bot:
//
//	paginator serve --config paginator.yaml
//
// # Environment Variables
//
//   - DISCORD_BOT_TOKEN: bot token, overrides discord.bot_token in the
//     config file
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
//
// Example build command:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD)"
var (
	version = "dev"
	commit  = "none"
)

func main() {
	root := &cobra.Command{
		Use:          "paginator",
		Short:        "Discord pagination session bot",
		SilenceUsage: true,
	}

	root.AddCommand(buildServeCmd())
	root.AddCommand(buildVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildVersionCmd creates the "version" command.
func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("paginator %s (%s)\n", version, commit)
		},
	}
}
