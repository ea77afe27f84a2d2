package gamedto

// DomainError is the error shape returned by the game server's REST surface.
type DomainError struct {
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	Detail    string `json:"error,omitempty"`
	Retryable bool   `json:"-"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Detail != "" {
		return e.Detail
	}
	if e.Code != "" {
		return e.Code
	}
	return "game server error"
}
