package livefeed

import "fmt"

// Kind identifies an inbound event type.
type Kind int

const (
	KindFullState Kind = iota
	KindMove
	KindEnd
	KindStart
	KindChat
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
	case KindChat:
		return "chat"
	case KindPlayerJoined:
		return "player_joined"
	}
	return "unknown"
}

type topic struct {
	kind        Kind
	destination string
}

// topics is the fixed subscription set for one session.
func topics(sessionID string) []topic {
	base := "/topic/game/" + sessionID
	return []topic{
		{KindFullState, base},
		{KindMove, base + "/move"},
		{KindEnd, base + "/end"},
		{KindStart, base + "/start"},
		{KindChat, base + "/chat"},
		{KindPlayerJoined, base + "/player-joined"},
	}
}

// Topics lists the destinations subscribed for sessionID.
func Topics(sessionID string) []string {
	ts := topics(sessionID)
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.destination
	}
	return out
}

func appDestination(sessionID, action string) string {
	return fmt.Sprintf("/app/game/%s/%s", sessionID, action)
}
