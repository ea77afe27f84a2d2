package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	snapshotOut  string
	snapshotText bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <session-id>",
	Short: "Render the current board of a session to a PNG file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		v, err := deps.NewSnapshotView(id)
		if err != nil {
			return err
		}
		if err := v.Open(cmd.Context()); err != nil {
			return fmt.Errorf("open session %s: %w", id, err)
		}
		defer func() { _ = v.Close(context.Background()) }()

		fr, err := v.Frame(cmd.Context())
		if err != nil {
			return err
		}
		png, err := deps.Renderer.RenderFrame(fr)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		out := snapshotOut
		if out == "" {
			out = "igknight-" + id + ".png"
		}
		if err := os.WriteFile(out, png, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		if snapshotText {
			fmt.Fprint(cmd.OutOrStdout(), deps.Formatter.Board(fr))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(png))
		return nil
	},
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotOut, "output", "o", "", "output file (default igknight-<id>.png)")
	snapshotCmd.Flags().BoolVar(&snapshotText, "text", false, "also print the text board")
	rootCmd.AddCommand(snapshotCmd)
}
