package gameapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/IgKnight-client/pkg/gamedto"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func newTestClient(t *testing.T, h fasthttp.RequestHandler, opts ...Option) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: h}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })
	base := []Option{WithDial(func(string) (net.Conn, error) { return ln.Dial() }), WithTimeout(2 * time.Second)}
	return NewClient("http://igknight.test/api", append(base, opts...)...)
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	b, _ := json.Marshal(v)
	ctx.SetBody(b)
}

func TestFetchSessionSendsBearer(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/api/games/7" {
			writeJSON(ctx, 404, map[string]string{"error": "nope"})
			return
		}
		if got := string(ctx.Request.Header.Peek("Authorization")); got != "Bearer tok" {
			writeJSON(ctx, 401, map[string]string{"error": "auth"})
			return
		}
		if len(ctx.Request.Header.Peek("X-Request-Id")) == 0 {
			writeJSON(ctx, 400, nil)
			return
		}
		w, b := 300, 299
		writeJSON(ctx, 200, gamedto.GameResponse{ID: "7", Status: "IN_PROGRESS", WhiteTimeRemaining: &w, BlackTimeRemaining: &b})
	}, WithTokenProvider(func() string { return "tok" }))

	g, err := c.FetchSession(context.Background(), "7")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if g.ID != "7" || *g.WhiteTimeRemaining != 300 {
		t.Fatalf("got %+v", g)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		if hits.Add(1) < 3 {
			writeJSON(ctx, 503, map[string]string{"error": "busy"})
			return
		}
		writeJSON(ctx, 200, gamedto.GameResponse{ID: "7"})
	})
	if _, err := c.FetchSession(context.Background(), "7"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("hits=%d", hits.Load())
	}
}

func TestFetchRetriesTransportErrors(t *testing.T) {
	var dials atomic.Int32
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		writeJSON(ctx, 200, gamedto.GameResponse{ID: "7"})
	}, WithDial(func(string) (net.Conn, error) {
		dials.Add(1)
		return nil, errors.New("connection refused")
	}))
	_, err := c.FetchSession(context.Background(), "7")
	if err == nil || !strings.Contains(err.Error(), "request failed") {
		t.Fatalf("err=%v", err)
	}
	if dials.Load() < 3 {
		t.Fatalf("dials=%d", dials.Load())
	}

	var once atomic.Int32
	single := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		once.Add(1)
		writeJSON(ctx, 503, map[string]string{"error": "busy"})
	}, WithRetry(1))
	if _, err := single.FetchSession(context.Background(), "7"); StatusOf(err) != 503 {
		t.Fatalf("err=%v", err)
	}
	if once.Load() != 1 {
		t.Fatalf("hits=%d", once.Load())
	}
}

func TestSubmitMoveRejection(t *testing.T) {
	var hits atomic.Int32
	var body gamedto.MoveIntent
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		hits.Add(1)
		_ = json.Unmarshal(ctx.PostBody(), &body)
		writeJSON(ctx, 400, map[string]string{"error": "Illegal move"})
	})
	_, err := c.SubmitMove(context.Background(), "7", "e2", "e5", "")
	if !errors.Is(err, ErrMoveRejected) {
		t.Fatalf("want ErrMoveRejected, got %v", err)
	}
	if StatusOf(err) != 400 {
		t.Fatalf("status=%d", StatusOf(err))
	}
	if hits.Load() != 1 {
		t.Fatalf("writes must not retry, hits=%d", hits.Load())
	}
	if body.From != "e2" || body.To != "e5" || body.Promotion != nil {
		t.Fatalf("body=%+v", body)
	}
}

func TestSubmitMoveSendsPromotion(t *testing.T) {
	var raw []byte
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		raw = append([]byte(nil), ctx.PostBody()...)
		writeJSON(ctx, 200, gamedto.GameResponse{ID: "7"})
	})
	if _, err := c.SubmitMove(context.Background(), "7", "e7", "e8", "Q"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if string(raw) != `{"from":"e7","to":"e8","promotion":"Q"}` {
		t.Fatalf("body=%s", raw)
	}
}

func TestLegalDestinationsAndNotFound(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/api/games/7/legal-moves/e2":
			writeJSON(ctx, 200, gamedto.LegalMovesResponse{From: "e2", LegalMoves: []string{"e3", "e4"}})
		default:
			writeJSON(ctx, 404, map[string]string{"error": "Game not found"})
		}
	})
	dests, err := c.LegalDestinations(context.Background(), "7", "E2")
	if err != nil || len(dests) != 2 {
		t.Fatalf("dests=%v err=%v", dests, err)
	}

	_, err = c.FetchSession(context.Background(), "8")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestCreateSessionUntimed(t *testing.T) {
	var req gamedto.CreateGameRequest
	var raw string
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		raw = string(ctx.PostBody())
		_ = json.Unmarshal(ctx.PostBody(), &req)
		writeJSON(ctx, 200, gamedto.GameResponse{ID: "9", Status: "WAITING"})
	})
	g, err := c.CreateSession(context.Background(), 0, 0, true)
	if err != nil || g.ID != "9" {
		t.Fatalf("create: %v %+v", err, g)
	}
	if req.TimeControl != nil || !req.IsRated {
		t.Fatalf("req=%s", raw)
	}
}
