package gamedto

// PlayerInfo describes one participant.
type PlayerInfo struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
}

// MoveInfo is one entry in a session's move list.
type MoveInfo struct {
	MoveNumber   int    `json:"moveNumber"`
	From         string `json:"from"`
	To           string `json:"to"`
	Piece        string `json:"piece,omitempty"`
	Promotion    string `json:"promotion,omitempty"`
	SAN          string `json:"san,omitempty"`
	ResultingFEN string `json:"resultingFen,omitempty"`
	IsCheck      bool   `json:"isCheck"`
	IsCheckmate  bool   `json:"isCheckmate"`
	IsCapture    *bool  `json:"isCapture,omitempty"`
	IsCastle     *bool  `json:"isCastle,omitempty"`
	IsPromotion  *bool  `json:"isPromotion,omitempty"`
}

// GameResponse is the full session state as served by REST and the
// full-state topic. Remaining times are whole seconds.
type GameResponse struct {
	ID                 ID          `json:"id"`
	WhitePlayer        *PlayerInfo `json:"whitePlayer,omitempty"`
	BlackPlayer        *PlayerInfo `json:"blackPlayer,omitempty"`
	FENPosition        string      `json:"fenPosition"`
	CurrentTurn        string      `json:"currentTurn"`
	Status             string      `json:"status"`
	WinnerID           ID          `json:"winnerId,omitempty"`
	WhiteTimeRemaining *int        `json:"whiteTimeRemaining,omitempty"`
	BlackTimeRemaining *int        `json:"blackTimeRemaining,omitempty"`
	TimeControl        *int        `json:"timeControl,omitempty"`
	TimeIncrement      *int        `json:"timeIncrement,omitempty"`
	IsRated            bool        `json:"isRated"`
	IsCheck            bool        `json:"isCheck"`
	CreatedAt          Timestamp   `json:"createdAt"`
	UpdatedAt          Timestamp   `json:"updatedAt"`
	EndedAt            Timestamp   `json:"endedAt"`
	Moves              []MoveInfo  `json:"moves"`
	Seq                *int64      `json:"seq,omitempty"`
}

// LegalMovesResponse lists destinations for one origin square.
type LegalMovesResponse struct {
	From       string   `json:"from"`
	LegalMoves []string `json:"legalMoves"`
}
