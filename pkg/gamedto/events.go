package gamedto

// MoveNotification is pushed on the per-session move topic after a move
// is accepted. Remaining times are whole seconds.
type MoveNotification struct {
	From               string `json:"from"`
	To                 string `json:"to"`
	Promotion          string `json:"promotion,omitempty"`
	SAN                string `json:"san,omitempty"`
	FEN                string `json:"fen,omitempty"`
	Status             string `json:"status,omitempty"`
	CurrentTurn        string `json:"currentTurn,omitempty"`
	MoveNumber         int    `json:"moveNumber,omitempty"`
	IsCheck            bool   `json:"isCheck"`
	IsCheckmate        bool   `json:"isCheckmate"`
	IsCapture          *bool  `json:"isCapture,omitempty"`
	IsCastle           *bool  `json:"isCastle,omitempty"`
	IsPromotion        *bool  `json:"isPromotion,omitempty"`
	WhiteTimeRemaining *int   `json:"whiteTimeRemaining,omitempty"`
	BlackTimeRemaining *int   `json:"blackTimeRemaining,omitempty"`
	Seq                *int64 `json:"seq,omitempty"`
}

// SessionEnd is pushed once a session reaches a terminal status.
type SessionEnd struct {
	Status             string `json:"status"`
	WinnerID           ID     `json:"winnerId,omitempty"`
	ResignedUserID     ID     `json:"resignedUserId,omitempty"`
	CurrentTurn        string `json:"currentTurn,omitempty"`
	WhiteTimeRemaining *int   `json:"whiteTimeRemaining,omitempty"`
	BlackTimeRemaining *int   `json:"blackTimeRemaining,omitempty"`
	Seq                *int64 `json:"seq,omitempty"`
}

// SessionStart is pushed when the second player arrives.
type SessionStart struct {
	GameID ID     `json:"gameId"`
	Status string `json:"status"`
	Seq    *int64 `json:"seq,omitempty"`
}

// PlayerJoined is pushed when the black seat is filled.
type PlayerJoined struct {
	GameID      ID          `json:"gameId"`
	BlackPlayer *PlayerInfo `json:"blackPlayer,omitempty"`
	Seq         *int64      `json:"seq,omitempty"`
}

// ChatMessage is relayed on the chat topic.
type ChatMessage struct {
	GameID   ID          `json:"gameId,omitempty"`
	Sender   *PlayerInfo `json:"sender,omitempty"`
	SenderID ID          `json:"senderId,omitempty"`
	Username string      `json:"username,omitempty"`
	Text     string      `json:"text"`
	SentAt   Timestamp   `json:"sentAt"`
}

// Author returns the best available display name for the sender.
func (m ChatMessage) Author() string {
	if m.Sender != nil && m.Sender.Username != "" {
		return m.Sender.Username
	}
	if m.Username != "" {
		return m.Username
	}
	if m.Sender != nil && !m.Sender.ID.IsZero() {
		return m.Sender.ID.String()
	}
	return m.SenderID.String()
}
