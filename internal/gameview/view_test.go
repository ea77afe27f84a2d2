package gameview_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/IgKnight-client/internal/board"
	"github.com/park285/IgKnight-client/internal/gameapi"
	"github.com/park285/IgKnight-client/internal/gameview"
	"github.com/park285/IgKnight-client/internal/history"
	"github.com/park285/IgKnight-client/internal/identity"
	"github.com/park285/IgKnight-client/internal/livefeed"
	"github.com/park285/IgKnight-client/internal/livefeed/livefeedtest"
	"github.com/park285/IgKnight-client/internal/position"
	"github.com/park285/IgKnight-client/internal/session"
	"github.com/park285/IgKnight-client/pkg/gamedto"
)

const (
	gameID  = "42"
	afterE4 = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	afterE5 = "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2"
)

func intp(n int) *int { return &n }

func inProgress() *gamedto.GameResponse {
	return &gamedto.GameResponse{
		ID:                 gameID,
		WhitePlayer:        &gamedto.PlayerInfo{ID: "1", Username: "alice"},
		BlackPlayer:        &gamedto.PlayerInfo{ID: "2", Username: "bob"},
		FENPosition:        position.StartFEN,
		CurrentTurn:        "WHITE",
		Status:             "IN_PROGRESS",
		WhiteTimeRemaining: intp(600),
		BlackTimeRemaining: intp(598),
		TimeControl:        intp(600),
		TimeIncrement:      intp(0),
	}
}

func withMoves(g *gamedto.GameResponse) *gamedto.GameResponse {
	g.Moves = []gamedto.MoveInfo{
		{MoveNumber: 1, From: "e2", To: "e4", SAN: "e4", ResultingFEN: afterE4},
		{MoveNumber: 2, From: "e7", To: "e5", SAN: "e5", ResultingFEN: afterE5},
	}
	g.FENPosition = afterE5
	return g
}

type fakeAPI struct {
	mu        sync.Mutex
	game      *gamedto.GameResponse
	afterMove *gamedto.GameResponse
	fetchErr  error
	moveErr   error
	legal     map[string][]string

	fetches, joins, resigns, queries int
	moves                            []string
}

func (f *fakeAPI) copyGame(g *gamedto.GameResponse) *gamedto.GameResponse {
	cp := *g
	cp.Moves = append([]gamedto.MoveInfo(nil), g.Moves...)
	return &cp
}

func (f *fakeAPI) FetchSession(context.Context, string) (*gamedto.GameResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.copyGame(f.game), nil
}

func (f *fakeAPI) JoinSession(context.Context, string) (*gamedto.GameResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins++
	f.game.BlackPlayer = &gamedto.PlayerInfo{ID: "2", Username: "bob"}
	f.game.Status = "IN_PROGRESS"
	return f.copyGame(f.game), nil
}

func (f *fakeAPI) SubmitMove(_ context.Context, _, from, to, promo string) (*gamedto.GameResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, from+to+promo)
	if f.moveErr != nil {
		return nil, f.moveErr
	}
	if f.afterMove != nil {
		f.game = f.afterMove
	}
	return f.copyGame(f.game), nil
}

func (f *fakeAPI) LegalDestinations(_ context.Context, _, square string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	return f.legal[square], nil
}

func (f *fakeAPI) Resign(context.Context, string) (*gamedto.GameResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resigns++
	return nil, nil
}

func (f *fakeAPI) count(p *int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *p
}

func (f *fakeAPI) submitted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.moves...)
}

type harness struct {
	view      *gameview.View
	api       *fakeAPI
	clock     *clockwork.FakeClock
	broker    *livefeedtest.Broker
	feedClock *clockwork.FakeClock
}

type opt func(*gameview.Config, *gameview.Deps)

func withFeed(b *livefeedtest.Broker, clk clockwork.Clock) opt {
	return func(_ *gameview.Config, d *gameview.Deps) {
		cfg := livefeed.DefaultConfig()
		cfg.Heartbeat = 0
		d.Feed = livefeed.NewManager(b, livefeed.WithConfig(cfg), livefeed.WithClock(clk))
	}
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func newHarness(t *testing.T, api *fakeAPI, user string, opts ...opt) *harness {
	t.Helper()
	h := &harness{api: api, clock: clockwork.NewFakeClock()}
	cfg := gameview.Config{
		SessionID:  gameID,
		User:       identity.User{ID: gamedto.ID(user)},
		Credential: "secret",
		EgressMode: "http",
		AutoJoin:   true,
	}
	deps := gameview.Deps{API: api, Clock: h.clock}
	for _, o := range opts {
		o(&cfg, &deps)
	}
	v, err := gameview.New(cfg, deps)
	require.NoError(t, err)
	h.view = v
	t.Cleanup(func() {
		_ = v.Close(context.Background())
		if deps.Feed != nil {
			_ = deps.Feed.Close(context.Background())
		}
	})
	return h
}

func (h *harness) frame(t *testing.T) gameview.Frame {
	t.Helper()
	f, err := h.view.Frame(testCtx(t))
	require.NoError(t, err)
	return f
}

func TestOpenBuildsFrame(t *testing.T) {
	h := newHarness(t, &fakeAPI{game: inProgress()}, "1")
	require.NoError(t, h.view.Open(testCtx(t)))

	f := h.frame(t)
	assert.True(t, f.Loaded)
	assert.True(t, f.Live)
	assert.Equal(t, gamedto.White, f.Seat)
	assert.Equal(t, gamedto.White, f.Orientation)
	assert.Equal(t, session.StatusInProgress, f.Status)
	assert.Equal(t, "Your move (White)", f.StatusText)
	assert.False(t, f.Disabled)
	assert.True(t, f.Clocks.Known)
	assert.Equal(t, 600*time.Second, f.Clocks.White)
	assert.Equal(t, 598*time.Second, f.Clocks.Black)
	assert.Equal(t, "10:00", f.BaseTime)
}

func TestSpectatorIsDisabledAndOriented(t *testing.T) {
	h := newHarness(t, &fakeAPI{game: inProgress(), legal: map[string][]string{"e2": {"e3", "e4"}}}, "9")
	require.NoError(t, h.view.Open(testCtx(t)))

	f := h.frame(t)
	assert.Empty(t, f.Seat)
	assert.True(t, f.Disabled)
	assert.Equal(t, "White to move", f.StatusText)

	h.view.Click("e2")
	assert.Equal(t, 0, h.api.count(&h.api.queries))
}

func TestClickToCommitOverREST(t *testing.T) {
	next := inProgress()
	next.FENPosition = afterE4
	next.CurrentTurn = "BLACK"
	next.Moves = []gamedto.MoveInfo{{MoveNumber: 1, From: "e2", To: "e4", SAN: "e4", ResultingFEN: afterE4}}
	api := &fakeAPI{game: inProgress(), afterMove: next, legal: map[string][]string{"e2": {"e4", "e3"}}}
	h := newHarness(t, api, "1")
	require.NoError(t, h.view.Open(testCtx(t)))

	h.view.Click("e2")
	require.Eventually(t, func() bool {
		s := h.frame(t).Selection
		return s.Phase == board.Selected && len(s.Destinations) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"e3", "e4"}, h.frame(t).Selection.Destinations)

	h.view.Click("e4")
	assert.Equal(t, board.Idle, h.frame(t).Selection.Phase)
	require.Eventually(t, func() bool { return len(h.frame(t).Moves) == 1 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"e2e4"}, api.submitted())
	f := h.frame(t)
	assert.Equal(t, afterE4, f.Position)
	assert.True(t, f.Disabled, "black to move")
	require.NotNil(t, f.LastMove)
	assert.Equal(t, "e4", f.LastMove.Destination)
}

func TestMoveRejectedShowsNotice(t *testing.T) {
	rejected := fmt.Errorf("%w: %w", gameapi.ErrMoveRejected, gamedto.DomainError{Message: "illegal"})
	api := &fakeAPI{game: inProgress(), moveErr: rejected, legal: map[string][]string{"e2": {"e4"}}}
	h := newHarness(t, api, "1")
	require.NoError(t, h.view.Open(testCtx(t)))

	h.view.DragStart("e2")
	require.Eventually(t, func() bool { return len(h.frame(t).Selection.Destinations) == 1 }, 2*time.Second, 5*time.Millisecond)
	h.view.Drop("e4")

	require.Eventually(t, func() bool { return h.frame(t).Notice != "" }, 2*time.Second, 5*time.Millisecond)
	f := h.frame(t)
	assert.Equal(t, "Move e2e4 was rejected: illegal", f.Notice)
	assert.Equal(t, position.StartFEN, f.Position)
	assert.Equal(t, board.Idle, f.Selection.Phase)

	h.clock.Advance(5 * time.Second)
	assert.Empty(t, h.frame(t).Notice)
}

func TestClockTicksOnLoop(t *testing.T) {
	h := newHarness(t, &fakeAPI{game: inProgress()}, "1")
	require.NoError(t, h.view.Open(testCtx(t)))

	h.clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool { return h.frame(t).Clocks.White == 595*time.Second }, 2*time.Second, 5*time.Millisecond)
	f := h.frame(t)
	assert.Equal(t, 598*time.Second, f.Clocks.Black)
	assert.Equal(t, "9:55", f.Clocks.Text(gamedto.White))
}

func TestHistoryShadowsLivePosition(t *testing.T) {
	api := &fakeAPI{game: withMoves(inProgress()), legal: map[string][]string{"d2": {"d4"}}}
	h := newHarness(t, api, "1")
	require.NoError(t, h.view.Open(testCtx(t)))

	require.NoError(t, h.view.Show(0))
	f := h.frame(t)
	assert.False(t, f.Live)
	assert.Equal(t, 0, f.ViewingIndex)
	assert.Equal(t, afterE4, f.Position)
	assert.True(t, f.Disabled)
	assert.Equal(t, "Viewing move 1 of 2 (live play paused)", f.Notice)

	h.view.Click("d2")
	assert.Equal(t, 0, api.count(&api.queries))

	assert.True(t, h.view.Next())
	assert.Equal(t, afterE5, h.frame(t).Position)
	assert.True(t, h.view.Next(), "stepping past the newest move returns to live")
	assert.True(t, h.frame(t).Live)

	assert.ErrorIs(t, h.view.Show(5), history.ErrIndexOutOfRange)
	h.view.ReturnToLive()
	assert.False(t, h.frame(t).Disabled)
}

func TestOpenFailureClosesView(t *testing.T) {
	api := &fakeAPI{game: inProgress(), fetchErr: errors.New("boom")}
	h := newHarness(t, api, "1")
	err := h.view.Open(testCtx(t))
	require.Error(t, err)
	assert.ErrorContains(t, err, "boom")

	_, ferr := h.view.Frame(testCtx(t))
	assert.ErrorIs(t, ferr, gameview.ErrClosed)
	h.view.Click("e2")
	assert.NoError(t, h.view.Close(context.Background()))
}

func TestCacheSeedSurvivesFetchFailure(t *testing.T) {
	cache := session.NewMemoryCache()
	require.NoError(t, cache.Save(context.Background(), session.FromDTO(withMoves(inProgress()))))
	api := &fakeAPI{game: inProgress(), fetchErr: errors.New("offline")}
	h := newHarness(t, api, "1", func(_ *gameview.Config, d *gameview.Deps) { d.Cache = cache })
	require.NoError(t, h.view.Open(testCtx(t)))

	f := h.frame(t)
	assert.True(t, f.Loaded)
	assert.Len(t, f.Moves, 2)
	assert.False(t, f.Clocks.Known, "cached clocks are not trusted")
}

func TestAutoJoinWaitingSession(t *testing.T) {
	g := inProgress()
	g.Status = "WAITING"
	g.BlackPlayer = nil
	api := &fakeAPI{game: g}
	h := newHarness(t, api, "2")
	require.NoError(t, h.view.Open(testCtx(t)))

	assert.Equal(t, 1, api.count(&api.joins))
	f := h.frame(t)
	assert.Equal(t, gamedto.Black, f.Seat)
	assert.Equal(t, gamedto.Black, f.Orientation)
	assert.Equal(t, "Joined game 42 as black", f.Notice)
}

func TestAbandonWaitingOnClose(t *testing.T) {
	g := inProgress()
	g.Status = "WAITING"
	g.BlackPlayer = nil
	api := &fakeAPI{game: g}
	h := newHarness(t, api, "1", func(c *gameview.Config, _ *gameview.Deps) { c.AbandonWaiting = true })
	require.NoError(t, h.view.Open(testCtx(t)))
	assert.Equal(t, "Waiting for an opponent...", h.frame(t).StatusText)

	require.NoError(t, h.view.Close(testCtx(t)))
	assert.Equal(t, 1, api.count(&api.resigns))
	assert.Equal(t, 0, api.count(&api.joins))
	require.NoError(t, h.view.Close(testCtx(t)))
	assert.Equal(t, 1, api.count(&api.resigns))
}

func TestMissingCredentialFallsBackToREST(t *testing.T) {
	b := livefeedtest.NewBroker()
	api := &fakeAPI{game: inProgress()}
	h := newHarness(t, api, "1", withFeed(b, clockwork.NewFakeClock()), func(c *gameview.Config, _ *gameview.Deps) { c.Credential = "" })
	require.NoError(t, h.view.Open(testCtx(t)))

	assert.Equal(t, "Live updates are off (no credential); refreshing over REST", h.frame(t).Notice)
	assert.Equal(t, 0, b.Dials())
}

func openLive(t *testing.T, api *fakeAPI, user string, opts ...opt) (*harness, *livefeedtest.Conn) {
	t.Helper()
	b := livefeedtest.NewBroker()
	clk := clockwork.NewFakeClock()
	h := newHarness(t, api, user, append([]opt{withFeed(b, clk)}, opts...)...)
	h.broker = b
	h.feedClock = clk
	ctx := testCtx(t)
	require.NoError(t, h.view.Open(ctx))
	conn, err := b.NextConn(ctx)
	require.NoError(t, err)
	_, err = conn.WaitSubscriptions(ctx, 6)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.frame(t).Connection == livefeed.StateConnected }, 2*time.Second, 5*time.Millisecond)
	return h, conn
}

func TestPushedMoveAppendsWithoutMovingPosition(t *testing.T) {
	api := &fakeAPI{game: inProgress()}
	h, conn := openLive(t, api, "2")

	note := gamedto.MoveNotification{From: "e2", To: "e4", SAN: "e4", FEN: afterE4, CurrentTurn: "BLACK", MoveNumber: 1,
		WhiteTimeRemaining: intp(597), BlackTimeRemaining: intp(598)}
	require.NoError(t, conn.Push("/topic/game/42/move", note))
	require.NoError(t, conn.Push("/topic/game/42/move", note))
	require.Eventually(t, func() bool { return len(h.frame(t).Moves) == 1 }, 2*time.Second, 5*time.Millisecond)

	f := h.frame(t)
	assert.Equal(t, position.StartFEN, f.Position, "position waits for the full state")
	assert.Equal(t, 597*time.Second, f.Clocks.White)
	assert.Equal(t, gamedto.Black, f.Clocks.Running)

	full := inProgress()
	full.FENPosition = afterE4
	full.CurrentTurn = "BLACK"
	full.Moves = []gamedto.MoveInfo{{MoveNumber: 1, From: "e2", To: "e4", SAN: "e4", ResultingFEN: afterE4}}
	require.NoError(t, conn.Push("/topic/game/42", full))
	require.Eventually(t, func() bool { return h.frame(t).Position == afterE4 }, 2*time.Second, 5*time.Millisecond)

	f = h.frame(t)
	assert.Len(t, f.Moves, 1)
	assert.False(t, f.Disabled, "black to move and we are black")
	assert.Equal(t, "Your move (Black)", f.StatusText)
}

func TestMoveGapTriggersResync(t *testing.T) {
	api := &fakeAPI{game: inProgress()}
	h, conn := openLive(t, api, "1")
	require.Equal(t, 1, api.count(&api.fetches))

	api.mu.Lock()
	api.game = withMoves(inProgress())
	api.mu.Unlock()
	require.NoError(t, conn.Push("/topic/game/42/move", gamedto.MoveNotification{From: "g1", To: "f3", MoveNumber: 3}))

	require.Eventually(t, func() bool { return len(h.frame(t).Moves) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, api.count(&api.fetches))
	assert.Equal(t, afterE5, h.frame(t).Position)
}

func TestReconnectResyncsAndDropsReplayedMove(t *testing.T) {
	api := &fakeAPI{game: withMoves(inProgress())}
	h, conn := openLive(t, api, "1")
	require.Equal(t, 1, api.count(&api.fetches))
	require.Len(t, h.frame(t).Moves, 2)
	ctx := testCtx(t)

	conn.Drop()
	require.Eventually(t, func() bool { return h.frame(t).Connection == livefeed.StateReconnecting }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, h.feedClock.BlockUntilContext(ctx, 1))
	h.feedClock.Advance(livefeed.DefaultConfig().ReconnectDelay)

	again, err := h.broker.NextConn(ctx)
	require.NoError(t, err)
	_, err = again.WaitSubscriptions(ctx, 6)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.frame(t).Connection == livefeed.StateConnected }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return api.count(&api.fetches) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, h.broker.Dials())

	// ply 2 delivered again on the new connection, then a chat line as a marker
	replay := gamedto.MoveNotification{From: "e7", To: "e5", SAN: "e5", FEN: afterE5, CurrentTurn: "WHITE", MoveNumber: 2}
	require.NoError(t, again.Push("/topic/game/42/move", replay))
	require.NoError(t, again.Push("/topic/game/42/chat", gamedto.ChatMessage{Username: "bob", Text: "back"}))
	require.Eventually(t, func() bool { return len(h.frame(t).Chat) == 1 }, 2*time.Second, 5*time.Millisecond)

	f := h.frame(t)
	assert.Len(t, f.Moves, 2)
	assert.Equal(t, afterE5, f.Position)
	assert.Equal(t, 2, api.count(&api.fetches))
}

func TestEndAndChatEvents(t *testing.T) {
	api := &fakeAPI{game: inProgress()}
	h, conn := openLive(t, api, "1")

	require.NoError(t, conn.Push("/topic/game/42/chat", gamedto.ChatMessage{Username: "bob", Text: "gl"}))
	require.NoError(t, conn.Push("/topic/game/42/end", gamedto.SessionEnd{Status: "RESIGNATION", WinnerID: "2", ResignedUserID: "1"}))
	require.Eventually(t, func() bool { return h.frame(t).Status == session.StatusResigned }, 2*time.Second, 5*time.Millisecond)

	f := h.frame(t)
	assert.Equal(t, "bob wins by resignation", f.StatusText)
	assert.Equal(t, []string{"[bob] gl"}, f.Chat)
	assert.True(t, f.Disabled)
	assert.ErrorIs(t, h.view.Resign(testCtx(t)), gameview.ErrNotPlaying)
}

func TestResignOverPush(t *testing.T) {
	api := &fakeAPI{game: inProgress()}
	h, conn := openLive(t, api, "1", func(c *gameview.Config, _ *gameview.Deps) { c.EgressMode = "auto" })
	ctx := testCtx(t)

	require.NoError(t, h.view.Resign(ctx))
	f, err := conn.NextSend(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/app/game/42/resign", f.Header.Get(frame.Destination))
	assert.Equal(t, 0, api.count(&api.resigns))

	require.NoError(t, h.view.Close(ctx))
	assert.ErrorIs(t, h.view.Resign(ctx), gameview.ErrClosed)
}
