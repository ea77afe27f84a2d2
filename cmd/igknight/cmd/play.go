package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/park285/IgKnight-client/internal/adapter/framepresenter"
	"github.com/park285/IgKnight-client/internal/board"
	"github.com/park285/IgKnight-client/internal/gameview"
	"github.com/park285/IgKnight-client/internal/obslog"
)

const selectionPoll = 25 * time.Millisecond

var (
	errNotSelectable = errors.New("no movable piece of yours on that square")
	errIllegalMove   = errors.New("illegal move")
)

var (
	playPNG   string
	playClock bool
)

var playCmd = &cobra.Command{
	Use:   "play <session-id>",
	Short: "Open a session: play when seated, watch otherwise",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return playSession(cmd, args[0])
	},
}

func init() {
	playCmd.Flags().StringVar(&playPNG, "png", "", "also write every redraw as a PNG to this file")
	playCmd.Flags().BoolVar(&playClock, "clock", false, "redraw on every clock tick")
	rootCmd.AddCommand(playCmd)
}

func playSession(cmd *cobra.Command, id string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	logger := obslog.L().With(zap.String("session", id))

	v, err := deps.NewView(id)
	if err != nil {
		return err
	}
	if err := v.Open(ctx); err != nil {
		return fmt.Errorf("open session %s: %w", id, err)
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), deps.Config.HTTPTimeout)
		defer cancel()
		if err := v.Close(cctx); err != nil {
			logger.Warn("view_close_failed", zap.Error(err))
		}
	}()

	var mu sync.Mutex
	sendText := func(s string) error {
		mu.Lock()
		defer mu.Unlock()
		_, err := fmt.Fprint(out, "\n"+s)
		return err
	}
	var sendImage func([]byte) error
	if playPNG != "" {
		sendImage = func(b []byte) error { return os.WriteFile(playPNG, b, 0o644) }
	}
	p := deps.Presenter(sendText, sendImage)
	draw := func(extra string) {
		fr, err := v.Frame(ctx)
		if err != nil {
			return
		}
		if err := p.Frame(fr, extra); err != nil {
			logger.Warn("draw_failed", zap.Error(err))
		}
	}
	draw("")

	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			select {
			case <-quit:
				return
			case <-ctx.Done():
				return
			case u := <-v.Updates():
				if tickOnly(u) && !playClock {
					continue
				}
				draw(deps.Formatter.Cues(u.Cues))
			}
		}
	}()

	lines := readLines(cmd.InOrStdin())
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			c, err := parseCommand(line)
			if errors.Is(err, errEmptyCommand) {
				continue
			}
			if err != nil {
				_ = sendText(err.Error() + "\n")
				continue
			}
			if c.name == "quit" {
				return nil
			}
			if err := runCommand(ctx, v, p, c, sendText); err != nil {
				_ = sendText(err.Error() + "\n")
			}
		}
	}
}

func runCommand(ctx context.Context, v *gameview.View, p *framepresenter.Presenter, c command, say func(string) error) error {
	switch c.name {
	case "move":
		return playMove(ctx, v, c.args[0], c.args[1])
	case "click":
		v.Click(c.args[0])
	case "drag":
		v.DragStart(c.args[0])
	case "drop":
		v.Drop(c.args[0])
	case "cancel":
		v.CancelDrag()
	case "prev":
		if !v.Prev() {
			return errors.New("already at the first move")
		}
	case "next":
		v.Next()
	case "show":
		return v.Show(c.index)
	case "live":
		v.ReturnToLive()
	case "resign":
		return v.Resign(ctx)
	case "say":
		return v.Chat(ctx, c.args[0])
	case "board":
		fr, err := v.Frame(ctx)
		if err != nil {
			return err
		}
		return p.Frame(fr, "")
	case "png":
		fr, err := v.Frame(ctx)
		if err != nil {
			return err
		}
		png, err := deps.Renderer.RenderFrame(fr)
		if err != nil {
			return err
		}
		return os.WriteFile(c.args[0], png, 0o644)
	case "help":
		return say(playHelp + "\n")
	}
	return nil
}

// playMove drives the click flow: select the origin, wait for the legal
// destinations, then click the destination.
func playMove(ctx context.Context, v *gameview.View, from, to string) error {
	v.Click(from)
	sel, err := awaitDestinations(ctx, v, from)
	if err != nil {
		return err
	}
	v.Click(to)
	if !slices.Contains(sel.Destinations, to) {
		return fmt.Errorf("%w: %s%s", errIllegalMove, from, to)
	}
	return nil
}

func awaitDestinations(ctx context.Context, v *gameview.View, from string) (board.Selection, error) {
	ctx, cancel := context.WithTimeout(ctx, deps.Config.HTTPTimeout)
	defer cancel()
	t := time.NewTicker(selectionPoll)
	defer t.Stop()
	for {
		fr, err := v.Frame(ctx)
		if err != nil {
			return board.Selection{}, err
		}
		sel := fr.Selection
		if fr.Disabled || sel.Phase != board.Selected || sel.Square != from {
			return board.Selection{}, errNotSelectable
		}
		if !sel.Pending {
			return sel, nil
		}
		select {
		case <-ctx.Done():
			return board.Selection{}, ctx.Err()
		case <-t.C:
		}
	}
}

func tickOnly(u gameview.Update) bool {
	return u.Tick && u.Changes == 0 && len(u.Cues) == 0 && u.Notice == "" && u.Chat == nil
}

func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
}
