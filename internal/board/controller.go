// Package board implements the select / drag / commit state machine for
// local move input. Legality is always asked of the server.
package board

import (
	"sort"
	"strings"

	"github.com/park285/IgKnight-client/internal/position"
	"github.com/park285/IgKnight-client/pkg/gamedto"
	"go.uber.org/zap"
)

// Phase is the controller's state.
type Phase int

const (
	Idle Phase = iota
	Selected
	Dragging
)

func (p Phase) String() string {
	switch p {
	case Selected:
		return "selected"
	case Dragging:
		return "dragging"
	}
	return "idle"
}

// Move is a committed intent.
type Move struct {
	Origin      string
	Destination string
	Promotion   string
}

func (m Move) UCI() string {
	return m.Origin + m.Destination + strings.ToLower(m.Promotion)
}

// Selection is the read-only view of the controller for rendering.
type Selection struct {
	Phase        Phase
	Square       string
	Destinations []string
	Pending      bool
}

// Env supplies the facts the controller reads but never owns.
type Env interface {
	// Disabled is true when input must be ignored.
	Disabled() bool
	// Position is the FEN currently displayed.
	Position() string
	// Side is the acting player's color.
	Side() gamedto.Color
}

// Querier fetches legal destinations asynchronously. done must be
// invoked on the same goroutine that drives the controller.
type Querier interface {
	Query(square string, done func(destinations []string, err error))
}

// Committer receives a completed move.
type Committer interface {
	Commit(m Move)
}

// Controller is not safe for concurrent use.
type Controller struct {
	env    Env
	query  Querier
	commit Committer
	promo  PromotionPolicy
	logger *zap.Logger

	phase   Phase
	square  string
	dests   map[string]struct{}
	pending bool
	gen     uint64
}

type Option func(*Controller)

func WithPromotionPolicy(p PromotionPolicy) Option {
	return func(c *Controller) {
		if p != nil {
			c.promo = p
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewController(env Env, q Querier, cm Committer, opts ...Option) *Controller {
	c := &Controller{env: env, query: q, commit: cm, promo: AutoQueen{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Click handles a tap or click on square.
func (c *Controller) Click(square string) {
	square = normalize(square)
	if c.suppressed() {
		return
	}
	if c.phase == Dragging {
		c.Reset()
	}
	switch c.phase {
	case Idle:
		if c.ownPiece(square) {
			c.begin(Selected, square)
		}
	case Selected:
		if c.isDestination(square) {
			c.finish(square)
			return
		}
		if c.ownPiece(square) {
			c.begin(Selected, square)
			return
		}
		c.Reset()
	}
}

// DragStart begins a drag from square. Only own pieces can be dragged.
func (c *Controller) DragStart(square string) {
	square = normalize(square)
	if c.suppressed() {
		return
	}
	if !c.ownPiece(square) {
		return
	}
	c.begin(Dragging, square)
}

// Drop ends a drag over square.
func (c *Controller) Drop(square string) {
	square = normalize(square)
	if c.suppressed() || c.phase != Dragging {
		return
	}
	if c.isDestination(square) {
		c.finish(square)
		return
	}
	c.Reset()
}

// CancelDrag abandons a drag, e.g. when released outside the board.
func (c *Controller) CancelDrag() {
	if c.phase == Dragging {
		c.Reset()
	}
}

// Reset returns to Idle and invalidates any outstanding query.
func (c *Controller) Reset() {
	c.phase = Idle
	c.square = ""
	c.dests = nil
	c.pending = false
	c.gen++
}

func (c *Controller) Phase() Phase { return c.phase }

func (c *Controller) Selection() Selection {
	return Selection{Phase: c.phase, Square: c.square, Destinations: c.destinations(), Pending: c.pending}
}

func (c *Controller) suppressed() bool {
	if c.env.Disabled() {
		if c.phase != Idle {
			c.Reset()
		}
		return true
	}
	return false
}

func (c *Controller) begin(phase Phase, square string) {
	c.gen++
	gen := c.gen
	c.phase = phase
	c.square = square
	c.dests = map[string]struct{}{}
	c.pending = true
	c.query.Query(square, func(dests []string, err error) {
		c.deliver(gen, square, dests, err)
	})
}

// deliver installs a query result unless the selection moved on.
func (c *Controller) deliver(gen uint64, square string, dests []string, err error) {
	if gen != c.gen || square != c.square || c.phase == Idle {
		c.logger.Debug("legal_destinations_stale", zap.String("square", square))
		return
	}
	c.pending = false
	if err != nil {
		c.logger.Warn("legal_destinations_failed", zap.String("square", square), zap.Error(err))
		c.dests = map[string]struct{}{}
		return
	}
	set := make(map[string]struct{}, len(dests))
	for _, d := range dests {
		if d = normalize(d); d != "" {
			set[d] = struct{}{}
		}
	}
	c.dests = set
}

func (c *Controller) finish(dest string) {
	mv := Move{Origin: c.square, Destination: dest}
	if p, err := position.Parse(c.env.Position()); err == nil {
		if pc, ok := p.PieceAt(c.square); ok {
			mv.Promotion = c.promo.Promotion(pc, dest)
		}
	}
	c.Reset()
	c.commit.Commit(mv)
}

func (c *Controller) isDestination(square string) bool {
	if c.dests == nil {
		return false
	}
	_, ok := c.dests[square]
	return ok
}

func (c *Controller) ownPiece(square string) bool {
	p, err := position.Parse(c.env.Position())
	if err != nil {
		return false
	}
	return p.Owns(square, c.env.Side())
}

func (c *Controller) destinations() []string {
	if len(c.dests) == 0 {
		return nil
	}
	out := make([]string, 0, len(c.dests))
	for d := range c.dests {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
