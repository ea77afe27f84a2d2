package gameapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/park285/IgKnight-client/pkg/gamedto"
	"github.com/valyala/fasthttp"
)

// CreateSession opens a new session. A zero base means untimed.
func (c *Client) CreateSession(ctx context.Context, base, increment time.Duration, rated bool) (*gamedto.GameResponse, error) {
	req := gamedto.CreateGameRequest{TimeIncrement: int(increment / time.Second), IsRated: rated}
	if base > 0 {
		secs := int(base / time.Second)
		req.TimeControl = &secs
	}
	var out gamedto.GameResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/games", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) JoinSession(ctx context.Context, id string) (*gamedto.GameResponse, error) {
	var out gamedto.GameResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "join"), nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FetchSession(ctx context.Context, id string) (*gamedto.GameResponse, error) {
	var out gamedto.GameResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(id), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOwnSessions returns the open session listing.
func (c *Client) ListOwnSessions(ctx context.Context) ([]gamedto.GameResponse, error) {
	var out []gamedto.GameResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/games", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// ListActiveSessions returns the caller's in-progress sessions.
func (c *Client) ListActiveSessions(ctx context.Context) ([]gamedto.GameResponse, error) {
	var out []gamedto.GameResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/games/active", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitMove posts a move. Server refusals wrap ErrMoveRejected.
func (c *Client) SubmitMove(ctx context.Context, id, from, to, promotion string) (*gamedto.GameResponse, error) {
	body := gamedto.MoveIntent{From: from, To: to, Promotion: gamedto.PromotionPtr(promotion)}
	var out gamedto.GameResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "moves"), body, &out, false); err != nil {
		if status := StatusOf(err); isRejection(status) {
			return nil, fmt.Errorf("%w: %w", ErrMoveRejected, err)
		}
		return nil, err
	}
	return &out, nil
}

// LegalDestinations lists the squares the piece on square may move to.
func (c *Client) LegalDestinations(ctx context.Context, id, square string) ([]string, error) {
	var out gamedto.LegalMovesResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(id, "legal-moves", strings.ToLower(square)), nil, &out, true); err != nil {
		return nil, err
	}
	return out.LegalMoves, nil
}

func (c *Client) Resign(ctx context.Context, id string) (*gamedto.GameResponse, error) {
	var out gamedto.GameResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "resign"), nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func gamePath(id string, parts ...string) string {
	var b strings.Builder
	b.WriteString("/games/")
	b.WriteString(url.PathEscape(id))
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}
