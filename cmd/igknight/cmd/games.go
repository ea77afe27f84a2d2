package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/park285/IgKnight-client/pkg/gamedto"
)

var (
	createBase  time.Duration
	createInc   time.Duration
	createRated bool
	createPlay  bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a session and wait for an opponent as white",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), deps.Config.HTTPTimeout)
		defer cancel()
		g, err := deps.API.CreateSession(ctx, createBase, createInc, createRated)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), deps.Formatter.Listing([]gamedto.GameResponse{*g}))
		if !createPlay {
			return nil
		}
		return playSession(cmd, g.ID.String())
	},
}

var joinCmd = &cobra.Command{
	Use:   "join <session-id>",
	Short: "Take the black seat of a waiting session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), deps.Config.HTTPTimeout)
		defer cancel()
		g, err := deps.API.JoinSession(ctx, args[0])
		if err != nil {
			return fmt.Errorf("join session: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), deps.Catalog.Text("notice.joined", map[string]any{"ID": g.ID.String()}))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions the acting user takes part in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), deps.Config.HTTPTimeout)
		defer cancel()
		games, err := deps.API.ListOwnSessions(ctx)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), deps.Formatter.Listing(games))
		return nil
	},
}

var activeCmd = &cobra.Command{
	Use:   "active",
	Short: "List sessions currently in progress on the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), deps.Config.HTTPTimeout)
		defer cancel()
		games, err := deps.API.ListActiveSessions(ctx)
		if err != nil {
			return fmt.Errorf("list active sessions: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), deps.Formatter.Listing(games))
		return nil
	},
}

func init() {
	createCmd.Flags().DurationVar(&createBase, "base", 10*time.Minute, "base time per side (0 for untimed)")
	createCmd.Flags().DurationVar(&createInc, "inc", 0, "increment added after each move")
	createCmd.Flags().BoolVar(&createRated, "rated", false, "create a rated session")
	createCmd.Flags().BoolVar(&createPlay, "play", false, "open the session right away")

	rootCmd.AddCommand(createCmd, joinCmd, listCmd, activeCmd)
}
