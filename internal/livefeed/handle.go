package livefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/park285/IgKnight-client/pkg/gamedto"
	"go.uber.org/zap"
)

// Handle is the live connection for one session. Each Manager.Open must
// be paired with exactly one Close.
type Handle struct {
	sessionID  string
	credential string
	cfg        Config
	transport  Transport
	clock      clockwork.Clock
	logger     *zap.Logger
	headers    HeaderProvider
	release    func(*Handle) bool

	obs   observers
	kinds map[string]Kind

	conn  Conn
	connM sync.RWMutex
	// writeM serializes frame writes between publishers and the heartbeat.
	writeM sync.Mutex

	state  State
	stateM sync.RWMutex

	lastRead atomic.Int64

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func newHandle(m *Manager, sessionID, credential string) *Handle {
	h := &Handle{
		sessionID:  sessionID,
		credential: credential,
		cfg:        m.cfg,
		transport:  m.transport,
		clock:      m.clock,
		logger:     m.logger.With(zap.String("session", sessionID)),
		headers:    m.headers,
		release:    m.release,
		kinds:      make(map[string]Kind),
		state:      StateDisconnected,
		stopCh:     make(chan struct{}),
	}
	for _, t := range topics(sessionID) {
		h.kinds[t.destination] = t.kind
	}
	h.rootCtx, h.rootCancel = context.WithCancel(context.Background())
	return h
}

func (h *Handle) start() {
	h.wg.Add(1)
	go h.run()
}

func (h *Handle) SessionID() string { return h.sessionID }

// Register adds an event handler and returns its id.
func (h *Handle) Register(kind Kind, fn Handler) int { return h.obs.add(kind, fn) }

// OnState adds a connection state handler and returns its id.
func (h *Handle) OnState(fn StateHandler) int { return h.obs.addState(fn) }

// Unregister removes a handler added by Register or OnState.
func (h *Handle) Unregister(id int) { h.obs.remove(id) }

func (h *Handle) State() State {
	h.stateM.RLock()
	defer h.stateM.RUnlock()
	return h.state
}

func (h *Handle) Connected() bool { return h.State() == StateConnected }

func (h *Handle) PublishMove(ctx context.Context, origin, destination, promotion string) error {
	body, err := json.Marshal(gamedto.MoveIntent{From: origin, To: destination, Promotion: gamedto.PromotionPtr(promotion)})
	if err != nil {
		return err
	}
	return h.publish(ctx, "move", body)
}

func (h *Handle) PublishResign(ctx context.Context) error {
	return h.publish(ctx, "resign", []byte("{}"))
}

func (h *Handle) PublishChat(ctx context.Context, text string) error {
	body, err := json.Marshal(gamedto.ChatIntent{Text: text})
	if err != nil {
		return err
	}
	return h.publish(ctx, "chat", body)
}

func (h *Handle) publish(ctx context.Context, action string, body []byte) error {
	if h.isStopping() {
		return ErrClosed
	}
	if !h.Connected() {
		return ErrNotConnected
	}
	return h.writeFrame(ctx, sendFrame(appDestination(h.sessionID, action), body))
}

// Close releases this caller's reference. The socket and every loop are
// torn down once the last reference is gone.
func (h *Handle) Close(ctx context.Context) error {
	if h.release != nil && !h.release(h) {
		return nil
	}
	return h.shutdown(ctx)
}

func (h *Handle) shutdown(ctx context.Context) error {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.Connected() {
			dctx, cancel := context.WithTimeout(ctx, time.Second)
			_ = h.writeFrame(dctx, disconnectFrame())
			cancel()
		}
		h.rootCancel()
		h.closeConn("close")
		h.setState(StateClosed)
	})

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (h *Handle) run() {
	defer h.wg.Done()
	h.setState(StateConnecting)
	for {
		err := h.connectOnce()
		if h.isStopping() {
			return
		}
		h.logger.Warn("live_disconnected", zap.Error(err))
		h.setState(StateReconnecting)
		h.logger.Info("live_reconnect_wait", zap.Duration("delay", h.cfg.ReconnectDelay))
		select {
		case <-h.stopCh:
			return
		case <-h.clock.After(h.cfg.ReconnectDelay):
		}
	}
}

// connectOnce runs one connection from dial to failure.
func (h *Handle) connectOnce() error {
	dialCtx, cancel := context.WithTimeout(h.rootCtx, h.cfg.DialTimeout)
	conn, err := h.transport.Dial(dialCtx, h.buildHeaders())
	cancel()
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	h.setConn(conn)
	defer h.dropConn(conn)

	send, expect, err := h.handshake(conn)
	if err != nil {
		return err
	}
	for _, t := range topics(h.sessionID) {
		id := "sub-" + uuid.NewString()
		if err := h.writeFrame(h.rootCtx, subscribeFrame(id, t.destination)); err != nil {
			return fmt.Errorf("subscribe %s: %w", t.destination, err)
		}
	}
	if h.isStopping() {
		return ErrClosed
	}
	h.setState(StateConnected)
	h.logger.Info("live_connect", zap.Duration("heartbeat_out", send), zap.Duration("heartbeat_in", expect))

	ctx, stop := context.WithCancel(h.rootCtx)
	defer stop()
	h.lastRead.Store(h.clock.Now().UnixNano())
	if send > 0 {
		h.wg.Add(1)
		go h.heartbeatLoop(ctx, send)
	}
	var silent atomic.Bool
	if expect > 0 {
		h.wg.Add(1)
		go h.watchdog(ctx, conn, expect, &silent)
	}
	err = h.readLoop(ctx, conn)
	if silent.Load() {
		return fmt.Errorf("heartbeat silence: %w", err)
	}
	return err
}

func (h *Handle) handshake(conn Conn) (send, expect time.Duration, err error) {
	if err := h.writeFrame(h.rootCtx, connectFrame(h.cfg.Host, h.credential, h.cfg.Heartbeat)); err != nil {
		return 0, 0, fmt.Errorf("connect frame: %w", err)
	}
	// CONNECTED must arrive within DialTimeout.
	ctx, cancel := context.WithCancel(h.rootCtx)
	defer cancel()
	var expired atomic.Bool
	t := h.clock.AfterFunc(h.cfg.DialTimeout, func() {
		expired.Store(true)
		cancel()
	})
	defer t.Stop()
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			if expired.Load() {
				return 0, 0, fmt.Errorf("await connected: %w", ErrHandshakeTimeout)
			}
			return 0, 0, fmt.Errorf("await connected: %w", err)
		}
		frames, err := decodeFrames(data)
		if err != nil {
			return 0, 0, fmt.Errorf("await connected: %w", err)
		}
		for _, f := range frames {
			switch f.Command {
			case frame.CONNECTED:
				send, expect = negotiateHeartbeat(h.cfg.Heartbeat, f.Header.Get(frame.HeartBeat))
				return send, expect, nil
			case frame.ERROR:
				return 0, 0, frameError(f)
			}
		}
	}
}

// readLoop dispatches messages in arrival order on this goroutine.
func (h *Handle) readLoop(ctx context.Context, conn Conn) error {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		h.lastRead.Store(h.clock.Now().UnixNano())
		frames, err := decodeFrames(data)
		if err != nil {
			h.logger.Warn("live_frame_invalid", zap.Error(err))
			continue
		}
		for _, f := range frames {
			switch f.Command {
			case frame.MESSAGE:
				h.deliver(f)
			case frame.ERROR:
				return frameError(f)
			}
		}
	}
}

func (h *Handle) deliver(f *frame.Frame) {
	dest := f.Header.Get(frame.Destination)
	kind, ok := h.kinds[dest]
	if !ok {
		h.logger.Debug("live_unknown_destination", zap.String("destination", dest))
		return
	}
	ev, err := decodeEvent(kind, h.sessionID, f.Body, h.clock.Now())
	if err != nil {
		h.logger.Warn("live_decode_failed", zap.String("kind", kind.String()), zap.Error(err))
		return
	}
	h.obs.dispatch(ev)
}

func (h *Handle) heartbeatLoop(ctx context.Context, every time.Duration) {
	defer h.wg.Done()
	t := h.clock.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			if err := h.writeFrame(ctx, nil); err != nil {
				h.logger.Debug("live_heartbeat_failed", zap.Error(err))
			}
		}
	}
}

// watchdog closes the socket when the server has been silent too long,
// which unblocks the read loop.
func (h *Handle) watchdog(ctx context.Context, conn Conn, expect time.Duration, silent *atomic.Bool) {
	defer h.wg.Done()
	limit := 2*expect + h.cfg.Grace
	t := h.clock.NewTicker(expect)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			last := time.Unix(0, h.lastRead.Load())
			if h.clock.Since(last) > limit {
				silent.Store(true)
				h.logger.Warn("live_heartbeat_silence", zap.Duration("limit", limit))
				_ = conn.Close("heartbeat silence")
				return
			}
		}
	}
}

// writeFrame writes f, or a heartbeat newline when f is nil.
func (h *Handle) writeFrame(ctx context.Context, f *frame.Frame) error {
	var data []byte
	if f == nil {
		data = []byte("\n")
	} else {
		var err error
		if data, err = encodeFrame(f); err != nil {
			return err
		}
	}
	conn := h.currentConn()
	if conn == nil {
		return ErrNotConnected
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	h.writeM.Lock()
	defer h.writeM.Unlock()
	return conn.Write(ctx, data)
}

func (h *Handle) setConn(c Conn) {
	h.connM.Lock()
	h.conn = c
	h.connM.Unlock()
}

func (h *Handle) currentConn() Conn {
	h.connM.RLock()
	defer h.connM.RUnlock()
	return h.conn
}

func (h *Handle) dropConn(c Conn) {
	h.connM.Lock()
	if h.conn == c {
		h.conn = nil
	}
	h.connM.Unlock()
	_ = c.Close("reconnect")
}

func (h *Handle) closeConn(reason string) {
	h.connM.Lock()
	c := h.conn
	h.conn = nil
	h.connM.Unlock()
	if c != nil {
		_ = c.Close(reason)
	}
}

func (h *Handle) setState(s State) {
	h.stateM.Lock()
	if h.state == s || h.state == StateClosed {
		h.stateM.Unlock()
		return
	}
	h.state = s
	h.stateM.Unlock()
	h.obs.dispatchState(s)
}

func (h *Handle) isStopping() bool {
	select {
	case <-h.stopCh:
		return true
	default:
		return false
	}
}

func (h *Handle) buildHeaders() http.Header {
	hdr := http.Header{}
	if h.credential != "" {
		hdr.Set("Authorization", "Bearer "+h.credential)
	}
	if h.headers == nil {
		return hdr
	}
	for k, v := range h.headers() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
