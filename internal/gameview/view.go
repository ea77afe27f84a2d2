// Package gameview owns every piece of client state for one session and
// runs all mutations on a single cooperative loop.
package gameview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/park285/IgKnight-client/internal/board"
	"github.com/park285/IgKnight-client/internal/clock"
	"github.com/park285/IgKnight-client/internal/cues"
	"github.com/park285/IgKnight-client/internal/history"
	"github.com/park285/IgKnight-client/internal/identity"
	"github.com/park285/IgKnight-client/internal/livefeed"
	"github.com/park285/IgKnight-client/internal/msgcat"
	"github.com/park285/IgKnight-client/internal/session"
	"github.com/park285/IgKnight-client/pkg/gamedto"
)

var (
	ErrClosed     = errors.New("view closed")
	ErrNotOpen    = errors.New("view not open")
	ErrNotPlaying = errors.New("acting user is not a player in this session")
)

const (
	defaultRequestTimeout = 10 * time.Second
	noticeTTL             = 4 * time.Second
	chatBacklog           = 50
	taskQueue             = 256
	updateQueue           = 64
)

// API is the REST surface the view needs. *gameapi.Client satisfies it.
type API interface {
	FetchSession(ctx context.Context, id string) (*gamedto.GameResponse, error)
	JoinSession(ctx context.Context, id string) (*gamedto.GameResponse, error)
	SubmitMove(ctx context.Context, id, from, to, promotion string) (*gamedto.GameResponse, error)
	LegalDestinations(ctx context.Context, id, square string) ([]string, error)
	Resign(ctx context.Context, id string) (*gamedto.GameResponse, error)
}

type Config struct {
	SessionID      string
	User           identity.User
	Credential     string
	Tick           time.Duration
	EgressMode     string
	AutoJoin       bool
	AbandonWaiting bool
	RequestTimeout time.Duration
}

// Deps are the collaborators. Feed and Cache may be nil.
type Deps struct {
	API     API
	Feed    *livefeed.Manager
	Cache   session.Cache
	Clock   clockwork.Clock
	Catalog *msgcat.Catalog
	Logger  *zap.Logger
}

// Update is pushed after every loop step that changed something visible.
type Update struct {
	Changes    session.Change
	Cues       []cues.Cue
	Notice     string
	Chat       *gamedto.ChatMessage
	Connection livefeed.State
	Tick       bool
}

// View is safe for concurrent use; every exported method hops onto the loop.
type View struct {
	cfg    Config
	api    API
	feed   *livefeed.Manager
	cache  session.Cache
	clk    clockwork.Clock
	cat    *msgcat.Catalog
	logger *zap.Logger

	// loop-owned
	store          *session.Store
	rec            *clock.Reconciler
	ctrl           *board.Controller
	nav            *history.Navigator
	egress         livefeed.Egress
	conn           livefeed.State
	connects       int
	resyncing      bool
	createdWaiting bool
	notice         string
	noticeAt       time.Time
	chat           []gamedto.ChatMessage

	handle  *livefeed.Handle
	obsIDs  []int
	ticker  clockwork.Ticker
	tasks   chan func()
	updates chan Update
	stop    chan struct{}
	done    chan struct{}
	workers sync.WaitGroup

	mu      sync.Mutex
	started bool
	closed  bool
}

func New(cfg Config, deps Deps) (*View, error) {
	if cfg.SessionID == "" {
		return nil, errors.New("session id is required")
	}
	if deps.API == nil {
		return nil, errors.New("api client is required")
	}
	if cfg.Tick <= 0 {
		cfg.Tick = clock.DefaultTick
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Catalog == nil {
		deps.Catalog = msgcat.Default()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	logger := deps.Logger.With(zap.String("session", cfg.SessionID))
	v := &View{
		cfg:     cfg,
		api:     deps.API,
		feed:    deps.Feed,
		cache:   deps.Cache,
		clk:     deps.Clock,
		cat:     deps.Catalog,
		logger:  logger,
		store:   session.NewStore(logger),
		rec:     clock.NewReconciler(deps.Clock),
		conn:    livefeed.StateDisconnected,
		tasks:   make(chan func(), taskQueue),
		updates: make(chan Update, updateQueue),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	v.nav = history.NewNavigator(v.store)
	v.ctrl = board.NewController(boardEnv{v}, querier{v}, committer{v}, board.WithLogger(logger))
	v.egress = livefeed.NewEgress(cfg.EgressMode, cfg.SessionID, nil, deps.API, logger)
	return v, nil
}

// Updates delivers change notifications. Slow readers miss updates, never
// block the loop; Frame always reflects the latest state.
func (v *View) Updates() <-chan Update { return v.updates }

// Open seeds from the cache, loads the session over REST, joins it when
// it is waiting for an opponent, and attaches the live feed. On error the
// view is closed before returning.
func (v *View) Open(ctx context.Context) (err error) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	if v.started {
		v.mu.Unlock()
		return nil
	}
	v.started = true
	v.ticker = v.clk.NewTicker(v.cfg.Tick)
	v.mu.Unlock()
	go v.loop()

	defer func() {
		if err != nil {
			_ = v.Close(context.WithoutCancel(ctx))
		}
	}()

	id := v.cfg.SessionID
	seeded := false
	if v.cache != nil {
		st, lerr := v.cache.Load(ctx, id)
		switch {
		case lerr != nil:
			v.logger.Debug("cache_load_failed", zap.Error(lerr))
		case st != nil:
			if err := v.call(ctx, func() {
				seeded = v.apply(session.Message{Kind: session.KindFullState, Source: session.SourceCache, Cached: st}).Applied
			}); err != nil {
				return err
			}
		}
	}

	g, ferr := v.api.FetchSession(ctx, id)
	if ferr != nil {
		if !seeded {
			return fmt.Errorf("fetch session %s: %w", id, ferr)
		}
		v.logger.Warn("session_fetch_failed", zap.Error(ferr))
	} else if err := v.call(ctx, func() { v.applyResponse(g) }); err != nil {
		return err
	}

	var joinable bool
	if err := v.call(ctx, func() {
		st := v.store.Snapshot()
		if st == nil {
			return
		}
		seat := st.ColorOf(v.cfg.User.ID.String())
		v.createdWaiting = st.Status == session.StatusAwaiting && seat == gamedto.White
		joinable = v.cfg.AutoJoin && st.Status == session.StatusAwaiting && seat == "" && !v.cfg.User.ID.IsZero()
	}); err != nil {
		return err
	}
	if joinable {
		v.join(ctx)
	}

	if v.feed == nil {
		return nil
	}
	h, herr := v.feed.Open(ctx, id, v.cfg.Credential)
	switch {
	case errors.Is(herr, livefeed.ErrMissingCredential):
		v.logger.Info("live_disabled", zap.Error(herr))
		return v.call(ctx, func() { v.setNotice("notice.live_disabled", nil) })
	case herr != nil:
		return fmt.Errorf("open live feed: %w", herr)
	}
	v.attach(h)
	return v.call(ctx, func() {
		v.egress = livefeed.NewEgress(v.cfg.EgressMode, id, h, v.api, v.logger)
	})
}

func (v *View) join(ctx context.Context) {
	id := v.cfg.SessionID
	g, err := v.api.JoinSession(ctx, id)
	if err != nil {
		v.logger.Warn("session_join_failed", zap.Error(err))
		_ = v.call(ctx, func() { v.setNotice("notice.join_failed", map[string]any{"ID": id}) })
		return
	}
	v.logger.Info("session_joined")
	_ = v.call(ctx, func() {
		v.applyResponse(g)
		v.setNotice("notice.joined", map[string]any{"ID": id})
	})
}

// attach registers observers. Handlers run on the feed's read goroutine
// and only post onto the loop, which keeps arrival order.
func (v *View) attach(h *livefeed.Handle) {
	v.mu.Lock()
	v.handle = h
	v.mu.Unlock()

	on := func(ev livefeed.Event) { v.post(func() { v.onEvent(ev) }) }
	ids := []int{
		h.Register(livefeed.KindFullState, on),
		h.Register(livefeed.KindMove, on),
		h.Register(livefeed.KindEnd, on),
		h.Register(livefeed.KindStart, on),
		h.Register(livefeed.KindChat, on),
		h.Register(livefeed.KindPlayerJoined, on),
		h.OnState(func(s livefeed.State) { v.post(func() { v.onConnState(s) }) }),
	}
	v.mu.Lock()
	v.obsIDs = ids
	v.mu.Unlock()
	v.post(func() { v.onConnState(h.State()) })
}

// Close stops the ticker and releases the live feed. It is idempotent and
// safe on a view whose Open failed.
func (v *View) Close(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	started := v.started
	h, ids := v.handle, v.obsIDs
	v.handle, v.obsIDs = nil, nil
	v.mu.Unlock()

	if !started {
		return nil
	}

	var abandon bool
	var final *session.State
	_ = v.call(ctx, func() {
		final = v.store.Snapshot()
		abandon = v.cfg.AbandonWaiting && v.createdWaiting && v.store.Status() == session.StatusAwaiting
	})

	var errs []error
	if h != nil {
		for _, id := range ids {
			h.Unregister(id)
		}
		if err := h.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close live feed: %w", err))
		}
	}
	v.ticker.Stop()
	close(v.stop)
	<-v.done
	v.workers.Wait()

	if abandon {
		rctx, cancel := context.WithTimeout(ctx, v.cfg.RequestTimeout)
		if _, err := v.api.Resign(rctx, v.cfg.SessionID); err != nil {
			v.logger.Warn("abandon_waiting_failed", zap.Error(err))
		} else {
			v.logger.Info("abandon_waiting")
		}
		cancel()
	}
	if v.cache != nil && final != nil {
		if err := v.cache.Save(ctx, final); err != nil {
			v.logger.Debug("cache_save_failed", zap.Error(err))
		}
	}
	return errors.Join(errs...)
}

func (v *View) loop() {
	defer close(v.done)
	for {
		select {
		case <-v.stop:
			return
		case fn := <-v.tasks:
			fn()
		case <-v.ticker.Chan():
			v.tick()
		}
	}
}

// post enqueues fn on the loop. It reports false once the view is closed.
func (v *View) post(fn func()) bool {
	select {
	case <-v.stop:
		return false
	default:
	}
	select {
	case v.tasks <- fn:
		return true
	case <-v.stop:
		return false
	}
}

// call runs fn on the loop and waits for it.
func (v *View) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !v.post(func() { fn(); close(finished) }) {
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-v.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run starts a worker whose result is posted back onto the loop.
func (v *View) run(work func(ctx context.Context) func()) {
	select {
	case <-v.stop:
		return
	default:
	}
	v.workers.Add(1)
	go func() {
		defer v.workers.Done()
		ctx, cancel := context.WithTimeout(context.Background(), v.cfg.RequestTimeout)
		defer cancel()
		go func() {
			select {
			case <-v.stop:
				cancel()
			case <-ctx.Done():
			}
		}()
		if then := work(ctx); then != nil {
			v.post(then)
		}
	}()
}

func (v *View) emit(u Update) {
	select {
	case v.updates <- u:
	default:
		v.logger.Debug("view_update_dropped")
	}
}

func (v *View) tick() {
	if !v.rec.Active() {
		return
	}
	v.rec.Tick()
	v.emit(Update{Tick: true})
}

func (v *View) setNotice(key string, data any) {
	v.notice = v.cat.Text(key, data)
	v.noticeAt = v.clk.Now()
	v.emit(Update{Notice: v.notice})
}
