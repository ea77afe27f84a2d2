// Package livefeed keeps a STOMP-over-WebSocket subscription to one
// session's topics and publishes player intents on it.
package livefeed

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// HeaderProvider injects extra handshake headers.
type HeaderProvider func() map[string]string

type Config struct {
	ReconnectDelay time.Duration
	// Heartbeat is both the outgoing interval and the incoming interval
	// offered to the server. Zero disables heartbeats.
	Heartbeat   time.Duration
	Grace       time.Duration
	DialTimeout time.Duration
	Host        string
}

func DefaultConfig() Config {
	return Config{
		ReconnectDelay: 5 * time.Second,
		Heartbeat:      4 * time.Second,
		Grace:          time.Second,
		DialTimeout:    10 * time.Second,
		Host:           "/",
	}
}

// Manager owns at most one Handle per session id.
type Manager struct {
	transport Transport
	cfg       Config
	clock     clockwork.Clock
	logger    *zap.Logger
	headers   HeaderProvider

	mu      sync.Mutex
	handles map[string]*Handle
	refs    map[*Handle]int
}

type Option func(*Manager)

func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.cfg = cfg }
}

func WithClock(c clockwork.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithHeaderProvider(p HeaderProvider) Option {
	return func(m *Manager) { m.headers = p }
}

func NewManager(t Transport, opts ...Option) *Manager {
	m := &Manager{
		transport: t,
		cfg:       DefaultConfig(),
		clock:     clockwork.NewRealClock(),
		logger:    zap.NewNop(),
		handles:   make(map[string]*Handle),
		refs:      make(map[*Handle]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cfg.ReconnectDelay <= 0 {
		m.cfg.ReconnectDelay = DefaultConfig().ReconnectDelay
	}
	if m.cfg.DialTimeout <= 0 {
		m.cfg.DialTimeout = DefaultConfig().DialTimeout
	}
	if m.cfg.Host == "" {
		m.cfg.Host = "/"
	}
	return m
}

// Open returns the session's handle, starting it if needed. Connecting
// happens in the background; watch OnState for progress. A session that
// is already open under another credential is refused.
func (m *Manager) Open(ctx context.Context, sessionID, credential string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(credential) == "" {
		return nil, ErrMissingCredential
	}
	m.mu.Lock()
	if h, ok := m.handles[sessionID]; ok {
		if h.credential != credential {
			m.mu.Unlock()
			m.logger.Warn("live_credential_mismatch", zap.String("session", sessionID))
			return nil, ErrCredentialMismatch
		}
		m.refs[h]++
		m.mu.Unlock()
		return h, nil
	}
	h := newHandle(m, sessionID, credential)
	m.handles[sessionID] = h
	m.refs[h] = 1
	m.mu.Unlock()

	h.start()
	return h, nil
}

// release drops one reference and reports whether it was the last.
func (m *Manager) release(h *Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.refs[h]
	if !ok {
		return true
	}
	if n > 1 {
		m.refs[h] = n - 1
		return false
	}
	delete(m.refs, h)
	if m.handles[h.sessionID] == h {
		delete(m.handles, h.sessionID)
	}
	return true
}

// Active is the number of open sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

// Close tears down every handle regardless of references.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	hs := make([]*Handle, 0, len(m.handles))
	for _, h := range m.handles {
		hs = append(hs, h)
	}
	m.handles = make(map[string]*Handle)
	m.refs = make(map[*Handle]int)
	m.mu.Unlock()

	var firstErr error
	for _, h := range hs {
		if err := h.shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
