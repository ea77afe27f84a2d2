package gamedto

// MoveIntent is both the published move payload and the REST move body.
// Promotion is serialized as null when absent.
type MoveIntent struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Promotion *string `json:"promotion"`
}

type ResignIntent struct{}

type ChatIntent struct {
	Text string `json:"text"`
}

// CreateGameRequest opens a new session. A nil TimeControl means untimed.
type CreateGameRequest struct {
	TimeControl   *int `json:"timeControl"`
	TimeIncrement int  `json:"timeIncrement"`
	IsRated       bool `json:"isRated"`
}

// PromotionPtr returns nil for "" so the wire value is null.
func PromotionPtr(p string) *string {
	if p == "" {
		return nil
	}
	return &p
}
