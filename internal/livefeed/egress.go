package livefeed

import (
	"context"
	"errors"

	"github.com/park285/IgKnight-client/pkg/gamedto"
	"go.uber.org/zap"
)

// Egress sends player intents for one session over the push channel or
// the REST API. A nil response means the intent went out on the push
// channel and the result will arrive as events.
type Egress interface {
	Move(ctx context.Context, origin, destination, promotion string) (*gamedto.GameResponse, error)
	Resign(ctx context.Context) (*gamedto.GameResponse, error)
	Chat(ctx context.Context, text string) error
}

// Publisher is the push side, normally a *Handle.
type Publisher interface {
	Connected() bool
	PublishMove(ctx context.Context, origin, destination, promotion string) error
	PublishResign(ctx context.Context) error
	PublishChat(ctx context.Context, text string) error
}

// REST is the request/response side, normally a *gameapi.Client.
type REST interface {
	SubmitMove(ctx context.Context, id, from, to, promotion string) (*gamedto.GameResponse, error)
	Resign(ctx context.Context, id string) (*gamedto.GameResponse, error)
}

type transportMode string

const (
	transportHTTP transportMode = "http"
	transportWS   transportMode = "ws"
	transportAuto transportMode = "auto"
)

// NewEgress picks a strategy. Auto prefers the push channel when it is
// connected and falls back to REST once on failure.
func NewEgress(mode, sessionID string, pub Publisher, rest REST, logger *zap.Logger) Egress {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &httpEgress{id: sessionID, rest: rest}
	w := &wsEgress{pub: pub}
	switch transportMode(mode) {
	case transportWS:
		return w
	case transportHTTP:
		return h
	default:
		return &autoEgress{ws: w, http: h, logger: logger.With(zap.String("session", sessionID))}
	}
}

type httpEgress struct {
	id   string
	rest REST
}

func (h *httpEgress) Move(ctx context.Context, origin, destination, promotion string) (*gamedto.GameResponse, error) {
	if h.rest == nil {
		return nil, errors.New("http egress not available")
	}
	return h.rest.SubmitMove(ctx, h.id, origin, destination, promotion)
}

func (h *httpEgress) Resign(ctx context.Context) (*gamedto.GameResponse, error) {
	if h.rest == nil {
		return nil, errors.New("http egress not available")
	}
	return h.rest.Resign(ctx, h.id)
}

func (h *httpEgress) Chat(context.Context, string) error {
	return errors.New("chat requires the live feed")
}

type wsEgress struct {
	pub Publisher
}

func (w *wsEgress) ready() bool { return w.pub != nil && w.pub.Connected() }

func (w *wsEgress) Move(ctx context.Context, origin, destination, promotion string) (*gamedto.GameResponse, error) {
	if !w.ready() {
		return nil, ErrNotConnected
	}
	return nil, w.pub.PublishMove(ctx, origin, destination, promotion)
}

func (w *wsEgress) Resign(ctx context.Context) (*gamedto.GameResponse, error) {
	if !w.ready() {
		return nil, ErrNotConnected
	}
	return nil, w.pub.PublishResign(ctx)
}

func (w *wsEgress) Chat(ctx context.Context, text string) error {
	if !w.ready() {
		return ErrNotConnected
	}
	return w.pub.PublishChat(ctx, text)
}

type autoEgress struct {
	ws     *wsEgress
	http   *httpEgress
	logger *zap.Logger
}

func (a *autoEgress) Move(ctx context.Context, origin, destination, promotion string) (*gamedto.GameResponse, error) {
	if a.ws.ready() {
		if _, err := a.ws.Move(ctx, origin, destination, promotion); err == nil {
			return nil, nil
		} else {
			a.logger.Warn("egress_fallback", zap.String("type", "move"), zap.Error(err))
		}
	}
	return a.http.Move(ctx, origin, destination, promotion)
}

func (a *autoEgress) Resign(ctx context.Context) (*gamedto.GameResponse, error) {
	if a.ws.ready() {
		if _, err := a.ws.Resign(ctx); err == nil {
			return nil, nil
		} else {
			a.logger.Warn("egress_fallback", zap.String("type", "resign"), zap.Error(err))
		}
	}
	return a.http.Resign(ctx)
}

func (a *autoEgress) Chat(ctx context.Context, text string) error {
	return a.ws.Chat(ctx, text)
}
