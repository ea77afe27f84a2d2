package session

import (
	"strings"
	"time"

	"github.com/park285/IgKnight-client/internal/clock"
	"github.com/park285/IgKnight-client/pkg/gamedto"
	"go.uber.org/zap"
)

// Kind identifies an inbound message type.
type Kind int

const (
	KindFullState Kind = iota
	KindMove
	KindEnd
	KindStart
	KindPlayerJoined
)

func (k Kind) String() string {
	switch k {
	case KindFullState:
		return "full_state"
	case KindMove:
		return "move"
	case KindEnd:
		return "end"
	case KindStart:
		return "start"
	case KindPlayerJoined:
		return "player_joined"
	}
	return "unknown"
}

// Source records where a message came from.
type Source int

const (
	SourcePush Source = iota
	SourceREST
	SourceCache
)

// Message is the single input type accepted by Store.Apply.
type Message struct {
	Kind       Kind
	Source     Source
	ReceivedAt time.Time

	Full   *gamedto.GameResponse
	Move   *gamedto.MoveNotification
	End    *gamedto.SessionEnd
	Start  *gamedto.SessionStart
	Joined *gamedto.PlayerJoined
	// Cached seeds a full state from the snapshot cache.
	Cached *State
}

func (m Message) seq() (int64, bool) {
	var p *int64
	switch m.Kind {
	case KindFullState:
		if m.Full != nil {
			p = m.Full.Seq
		}
	case KindMove:
		if m.Move != nil {
			p = m.Move.Seq
		}
	case KindEnd:
		if m.End != nil {
			p = m.End.Seq
		}
	case KindStart:
		if m.Start != nil {
			p = m.Start.Seq
		}
	case KindPlayerJoined:
		if m.Joined != nil {
			p = m.Joined.Seq
		}
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Change is a bit set describing what an applied message touched.
type Change uint16

const (
	ChangeIdentity Change = 1 << iota
	ChangePosition
	ChangeMoves
	ChangeStatus
	ChangePlayers
	ChangeClock
	ChangeCheck
)

func (c Change) Has(f Change) bool { return c&f != 0 }

// Result reports the outcome of one Apply call.
type Result struct {
	Applied     bool
	Reason      string
	Changes     Change
	Appended    []Move
	PrevStatus  Status
	Status      Status
	Clock       *clock.Snapshot
	NeedsResync bool
}

// Store is the single writer for a session's state. Callers must
// serialize Apply; the owning view runs it on one goroutine.
type Store struct {
	state   *State
	lastSeq int64
	logger  *zap.Logger
}

func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{logger: logger}
}

// Apply funnels one message into the state.
func (s *Store) Apply(m Message) Result {
	if m.ReceivedAt.IsZero() {
		m.ReceivedAt = time.Now()
	}
	seq, hasSeq := m.seq()
	if hasSeq && s.lastSeq > 0 && seq <= s.lastSeq && !s.identityChange(m) {
		return s.drop(m, "stale_seq")
	}

	var res Result
	switch m.Kind {
	case KindFullState:
		res = s.applyFull(m)
	case KindMove:
		res = s.applyMove(m)
	case KindEnd:
		res = s.applyEnd(m)
	case KindStart:
		res = s.applyStart(m)
	case KindPlayerJoined:
		res = s.applyJoined(m)
	default:
		return s.drop(m, "unknown_kind")
	}
	if res.Applied && hasSeq && seq > s.lastSeq {
		s.lastSeq = seq
	}
	if !res.Applied && res.Reason != "" {
		s.logger.Debug("session_message_dropped",
			zap.String("kind", m.Kind.String()),
			zap.String("reason", res.Reason),
		)
	}
	return res
}

func (s *Store) identityChange(m Message) bool {
	if m.Kind != KindFullState || m.Full == nil || s.state == nil {
		return false
	}
	return m.Full.ID.String() != s.state.ID
}

func (s *Store) drop(m Message, reason string) Result {
	s.logger.Debug("session_message_dropped", zap.String("kind", m.Kind.String()), zap.String("reason", reason))
	return Result{Reason: reason, PrevStatus: s.status(), Status: s.status()}
}

func (s *Store) applyFull(m Message) Result {
	next := FromDTO(m.Full)
	if next == nil && m.Cached != nil {
		next = m.Cached.Clone()
	}
	if next == nil {
		return Result{Reason: "empty_payload"}
	}
	prev := s.state
	if m.Source == SourceCache && prev != nil {
		return s.drop(m, "cache_after_live")
	}
	res := Result{PrevStatus: s.status()}
	if prev == nil || prev.ID != next.ID {
		res.Changes |= ChangeIdentity | ChangePosition | ChangeMoves | ChangeStatus | ChangePlayers | ChangeCheck
		s.lastSeq = 0
	} else {
		if next.Status.rank() < prev.Status.rank() || (prev.Status.Terminal() && next.Status != prev.Status) {
			res.Reason = "status_regression"
			res.Status = prev.Status
			return res
		}
		if len(next.Moves) < len(prev.Moves) {
			res.Reason = "stale_moves"
			res.Status = prev.Status
			return res
		}
		if next.Position != prev.Position {
			res.Changes |= ChangePosition
		}
		if len(next.Moves) > len(prev.Moves) {
			res.Changes |= ChangeMoves
			res.Appended = append([]Move(nil), next.Moves[len(prev.Moves):]...)
		}
		if next.Status != prev.Status {
			res.Changes |= ChangeStatus
		}
		if !samePlayer(prev.White, next.White) || !samePlayer(prev.Black, next.Black) {
			res.Changes |= ChangePlayers
		}
		if next.Check != prev.Check {
			res.Changes |= ChangeCheck
		}
	}
	s.state = next
	res.Applied = true
	res.Status = next.Status
	// cached remaining times are from an unknown instant
	if next.Remaining.Known && m.Source != SourceCache {
		res.Changes |= ChangeClock
		res.Clock = &clock.Snapshot{
			White:      next.Remaining.White,
			Black:      next.Remaining.Black,
			Side:       next.SideToMove,
			CapturedAt: m.ReceivedAt,
		}
	}
	return res
}

// applyMove only appends the move and refreshes check flags and clocks.
// Players, status and the live position wait for the next full state.
func (s *Store) applyMove(m Message) Result {
	if s.state == nil {
		return Result{Reason: "no_session"}
	}
	n := m.Move
	if n == nil {
		return Result{Reason: "empty_payload"}
	}
	st := s.state
	res := Result{PrevStatus: st.Status, Status: st.Status}
	if st.Status.Terminal() {
		res.Reason = "session_over"
		return res
	}
	have := len(st.Moves)
	if n.MoveNumber > 0 {
		switch {
		case n.MoveNumber <= have:
			res.Reason = "duplicate_move"
			return res
		case n.MoveNumber > have+1:
			res.Reason = "move_gap"
			res.NeedsResync = true
			return res
		}
	} else if last, ok := st.LastMove(); ok && sameMove(last, n) {
		res.Reason = "duplicate_move"
		return res
	}

	rec := Move{
		Ply:               have + 1,
		Origin:            strings.ToLower(n.From),
		Destination:       strings.ToLower(n.To),
		Promotion:         strings.ToUpper(n.Promotion),
		Notation:          n.SAN,
		ResultingPosition: n.FEN,
		Check:             n.IsCheck || n.IsCheckmate,
		Checkmate:         n.IsCheckmate,
	}
	fillTags(&rec, s.priorPosition(), n.IsCapture, n.IsCastle, n.IsPromotion)
	st.Moves = append(st.Moves, rec)
	res.Applied = true
	res.Changes |= ChangeMoves
	res.Appended = []Move{rec}
	if st.Check != rec.Check {
		st.Check = rec.Check
		res.Changes |= ChangeCheck
	}
	if n.WhiteTimeRemaining != nil && n.BlackTimeRemaining != nil {
		st.Remaining = Remaining{White: seconds(*n.WhiteTimeRemaining), Black: seconds(*n.BlackTimeRemaining), Known: true}
		side := gamedto.ParseColor(n.CurrentTurn)
		if !side.Valid() {
			side = rec.Mover().Opponent()
		}
		res.Changes |= ChangeClock
		res.Clock = &clock.Snapshot{White: st.Remaining.White, Black: st.Remaining.Black, Side: side, CapturedAt: m.ReceivedAt}
	}
	return res
}

func (s *Store) applyEnd(m Message) Result {
	if s.state == nil {
		return Result{Reason: "no_session"}
	}
	e := m.End
	if e == nil {
		return Result{Reason: "empty_payload"}
	}
	st := s.state
	res := Result{PrevStatus: st.Status, Status: st.Status}
	next, reason := ParseStatus(e.Status)
	if !next.Terminal() {
		res.Reason = "not_terminal"
		return res
	}
	if st.Status.Terminal() {
		res.Reason = "already_ended"
		return res
	}
	st.Status = next
	st.DrawReason = reason
	st.Winner = e.WinnerID.String()
	st.Resigned = e.ResignedUserID.String()
	st.EndedAt = m.ReceivedAt
	res.Applied = true
	res.Status = next
	res.Changes |= ChangeStatus
	if e.WhiteTimeRemaining != nil && e.BlackTimeRemaining != nil {
		st.Remaining = Remaining{White: seconds(*e.WhiteTimeRemaining), Black: seconds(*e.BlackTimeRemaining), Known: true}
		side := gamedto.ParseColor(e.CurrentTurn)
		if !side.Valid() {
			side = st.SideToMove
		}
		res.Changes |= ChangeClock
		res.Clock = &clock.Snapshot{White: st.Remaining.White, Black: st.Remaining.Black, Side: side, CapturedAt: m.ReceivedAt}
	}
	return res
}

// applyStart moves an awaiting session to in-progress. It is a status
// transition, not a replacement.
func (s *Store) applyStart(m Message) Result {
	if s.state == nil {
		return Result{Reason: "no_session"}
	}
	st := s.state
	res := Result{PrevStatus: st.Status, Status: st.Status}
	if m.Start != nil && !m.Start.GameID.IsZero() && m.Start.GameID.String() != st.ID {
		res.Reason = "other_session"
		return res
	}
	if st.Status != StatusAwaiting {
		res.Reason = "not_awaiting"
		return res
	}
	st.Status = StatusInProgress
	res.Applied = true
	res.Status = StatusInProgress
	res.Changes |= ChangeStatus
	return res
}

func (s *Store) applyJoined(m Message) Result {
	if s.state == nil {
		return Result{Reason: "no_session"}
	}
	j := m.Joined
	st := s.state
	res := Result{PrevStatus: st.Status, Status: st.Status}
	if j == nil || j.BlackPlayer == nil {
		res.Reason = "empty_payload"
		return res
	}
	if !j.GameID.IsZero() && j.GameID.String() != st.ID {
		res.Reason = "other_session"
		return res
	}
	p := playerFrom(j.BlackPlayer)
	if p == nil || samePlayer(st.Black, p) {
		res.Reason = "unchanged"
		return res
	}
	st.Black = p
	res.Applied = true
	res.Changes |= ChangePlayers
	return res
}

func (s *Store) priorPosition() string {
	if last, ok := s.state.LastMove(); ok && last.ResultingPosition != "" {
		return last.ResultingPosition
	}
	if len(s.state.Moves) == 0 && s.state.Position != "" {
		return s.state.Position
	}
	return ""
}

func (s *Store) status() Status {
	if s.state == nil {
		return StatusUnknown
	}
	return s.state.Status
}

// Loaded reports whether any state has been applied.
func (s *Store) Loaded() bool { return s.state != nil }

// Snapshot returns a deep copy of the state.
func (s *Store) Snapshot() *State { return s.state.Clone() }

func (s *Store) ID() string {
	if s.state == nil {
		return ""
	}
	return s.state.ID
}

func (s *Store) Status() Status { return s.status() }

// Position is the live position.
func (s *Store) Position() string {
	if s.state == nil {
		return ""
	}
	return s.state.Position
}

func (s *Store) SideToMove() gamedto.Color {
	if s.state == nil {
		return ""
	}
	return s.state.SideToMove
}

// Moves returns the move list. The slice must not be modified.
func (s *Store) Moves() []Move {
	if s.state == nil {
		return nil
	}
	return s.state.Moves
}

func samePlayer(a, b *Player) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID && a.Username == b.Username
}

func sameMove(last Move, n *gamedto.MoveNotification) bool {
	if !strings.EqualFold(last.Origin, n.From) || !strings.EqualFold(last.Destination, n.To) {
		return false
	}
	return n.FEN == "" || last.ResultingPosition == "" || n.FEN == last.ResultingPosition
}
