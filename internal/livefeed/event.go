package livefeed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/park285/IgKnight-client/pkg/gamedto"
)

// Event is one decoded push message. Exactly one payload field is set.
type Event struct {
	Kind       Kind
	SessionID  string
	ReceivedAt time.Time

	State  *gamedto.GameResponse
	Move   *gamedto.MoveNotification
	End    *gamedto.SessionEnd
	Start  *gamedto.SessionStart
	Chat   *gamedto.ChatMessage
	Joined *gamedto.PlayerJoined
}

func decodeEvent(kind Kind, sessionID string, body []byte, at time.Time) (Event, error) {
	ev := Event{Kind: kind, SessionID: sessionID, ReceivedAt: at}
	var target any
	switch kind {
	case KindFullState:
		ev.State = &gamedto.GameResponse{}
		target = ev.State
	case KindMove:
		ev.Move = &gamedto.MoveNotification{}
		target = ev.Move
	case KindEnd:
		ev.End = &gamedto.SessionEnd{}
		target = ev.End
	case KindStart:
		ev.Start = &gamedto.SessionStart{}
		target = ev.Start
	case KindChat:
		ev.Chat = &gamedto.ChatMessage{}
		target = ev.Chat
	case KindPlayerJoined:
		ev.Joined = &gamedto.PlayerJoined{}
		target = ev.Joined
	default:
		return ev, fmt.Errorf("unknown event kind %d", kind)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return ev, fmt.Errorf("decode %s: %w", kind, err)
	}
	return ev, nil
}
