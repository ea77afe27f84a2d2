package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/park285/IgKnight-client/internal/session"
)

var recentLimit int

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List sessions recently viewed by the acting user from the local cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if deps.User.ID.IsZero() {
			return errors.New("recent needs a known user (set IGK_USER_ID or IGK_TOKEN)")
		}
		ctx := cmd.Context()
		ids, err := deps.Cache.Recent(ctx, deps.User.ID.String(), recentLimit)
		if err != nil {
			return fmt.Errorf("read recent sessions: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "no cached sessions")
			return nil
		}
		for _, id := range ids {
			st, err := deps.Cache.Load(ctx, id)
			if err != nil || st == nil {
				fmt.Fprintf(out, "#%s  (expired)\n", id)
				continue
			}
			fmt.Fprintln(out, recentLine(st))
		}
		return nil
	},
}

func recentLine(st *session.State) string {
	name := func(p *session.Player) string {
		if p == nil || p.Username == "" {
			return deps.Catalog.Text("listing.nobody", nil)
		}
		return p.Username
	}
	when := "-"
	if !st.UpdatedAt.IsZero() {
		when = humanize.Time(st.UpdatedAt)
	}
	return fmt.Sprintf("#%s  %s  %s vs %s  %d moves  %s",
		st.ID, strings.ToLower(string(st.Status)), name(st.White), name(st.Black), len(st.Moves), when)
}

func init() {
	recentCmd.Flags().IntVarP(&recentLimit, "limit", "n", 10, "maximum number of sessions")
	rootCmd.AddCommand(recentCmd)
}
