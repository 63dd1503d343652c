package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	expandcmd "github.com/walteh/emmetls/cmd/emmetls/expand"
	replaycmd "github.com/walteh/emmetls/cmd/emmetls/replay"
	serve_lsp "github.com/walteh/emmetls/cmd/emmetls/serve-lsp"
	stdio_proxy "github.com/walteh/emmetls/cmd/emmetls/stdio-proxy"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:   "emmetls",
		Short: "Emmet abbreviation tracking for editors",
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)
	rootCmd.AddCommand(serve_lsp.NewServeLSPCommand())
	rootCmd.AddCommand(expandcmd.NewExpandCommand())
	rootCmd.AddCommand(replaycmd.NewReplayCommand())
	rootCmd.AddCommand(stdio_proxy.NewStdioProxyCommand())

	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}
