package livefeed

// State is the connection lifecycle of a Handle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	}
	return "disconnected"
}

type staticErr string

func (e staticErr) Error() string { return string(e) }

var (
	// ErrMissingCredential disables the push transport; REST still works.
	ErrMissingCredential = staticErr("live feed requires a credential")
	ErrNotConnected      = staticErr("live feed not connected")
	ErrClosed            = staticErr("live feed closed")
	ErrHandshakeTimeout  = staticErr("live feed handshake timed out")

	// ErrCredentialMismatch refuses a second Open of a session under a
	// different credential.
	ErrCredentialMismatch = staticErr("live feed already open with another credential")
)
