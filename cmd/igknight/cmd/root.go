package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/park285/IgKnight-client/internal/clientbuilder"
	appcfg "github.com/park285/IgKnight-client/internal/config"
	"github.com/park285/IgKnight-client/internal/obslog"
)

// deps is populated by the root pre-run hook for every subcommand.
var deps *clientbuilder.Deps

var rootCmd = &cobra.Command{
	Use:   "igknight",
	Short: "IgKnight is a terminal client for two-player chess sessions",
	Long: `Play, watch and manage chess sessions hosted by an IgKnight server.
Settings come from the environment (IGK_API_URL, IGK_TOKEN, ...) or a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := appcfg.Load()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		if err := obslog.InitFromEnv(); err != nil {
			return fmt.Errorf("logger init: %w", err)
		}
		deps, err = clientbuilder.New(cfg, obslog.L())
		if err != nil {
			return fmt.Errorf("client init: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		defer obslog.Sync()
		if deps == nil {
			return nil
		}
		return deps.Close(context.Background())
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
