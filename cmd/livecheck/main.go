package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/park285/IgKnight-client/internal/clientbuilder"
	appcfg "github.com/park285/IgKnight-client/internal/config"
	"github.com/park285/IgKnight-client/internal/livefeed"
	"github.com/park285/IgKnight-client/internal/obslog"
)

// livecheck checks the REST endpoint and the push channel for one session
// and prints what arrives during a short observation window.
func main() {
	sessionID := os.Getenv("IGK_SESSION_ID")
	if len(os.Args) > 1 {
		sessionID = os.Args[1]
	}
	if sessionID == "" {
		log.Fatal("usage: livecheck <session-id> (or IGK_SESSION_ID)")
	}
	window := 10 * time.Second
	if raw := os.Getenv("IGK_CHECK_WINDOW"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			window = d
		}
	}

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Printf("logger init: %v", err)
	}
	defer obslog.Sync()

	deps, err := clientbuilder.New(cfg, obslog.L())
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer func() { _ = deps.Close(context.Background()) }()

	log.Printf("user: id=%q name=%q", deps.User.ID, deps.User.Username)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	g, err := deps.API.FetchSession(ctx, sessionID)
	if err != nil {
		log.Printf("REST fetch error: %v", err)
	} else {
		log.Printf("REST ok: id=%s status=%s turn=%s moves=%d fen=%s", g.ID, g.Status, g.CurrentTurn, len(g.Moves), g.FENPosition)
	}

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	h, err := deps.Feed.Open(cctx, sessionID, cfg.Token)
	if errors.Is(err, livefeed.ErrMissingCredential) {
		log.Println("IGK_TOKEN not set; skipping push check")
		return
	}
	if err != nil {
		log.Printf("push open error: %v", err)
		return
	}
	defer func() { _ = h.Close(context.Background()) }()

	h.OnState(func(s livefeed.State) {
		log.Printf("push state: %s", s)
	})
	logEvent := func(ev livefeed.Event) {
		fmt.Printf("push %s session=%s at=%s\n", ev.Kind, ev.SessionID, ev.ReceivedAt.Format(time.RFC3339))
		obslog.L().Debug("livecheck_event", zap.Stringer("kind", ev.Kind))
	}
	for _, k := range []livefeed.Kind{
		livefeed.KindFullState,
		livefeed.KindMove,
		livefeed.KindEnd,
		livefeed.KindStart,
		livefeed.KindChat,
		livefeed.KindPlayerJoined,
	} {
		h.Register(k, logEvent)
	}
	log.Printf("push state: %s", h.State())

	// Observe for a short window
	t := time.NewTimer(window)
	<-t.C
}
