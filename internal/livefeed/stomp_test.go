package livefeed

import (
	"testing"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
)

func TestNegotiateHeartbeat(t *testing.T) {
	cases := []struct {
		ours         time.Duration
		header       string
		send, expect time.Duration
	}{
		{4 * time.Second, "10000,10000", 10 * time.Second, 10 * time.Second},
		{4 * time.Second, "0,0", 0, 0},
		{4 * time.Second, "1000,0", 0, 4 * time.Second},
		{4 * time.Second, "garbage", 4 * time.Second, 4 * time.Second},
		{0, "4000,4000", 0, 0},
	}
	for _, tc := range cases {
		send, expect := negotiateHeartbeat(tc.ours, tc.header)
		if send != tc.send || expect != tc.expect {
			t.Fatalf("negotiate(%v,%q)=%v,%v want %v,%v", tc.ours, tc.header, send, expect, tc.send, tc.expect)
		}
	}
}

func TestFrameRoundTripWithHeartbeats(t *testing.T) {
	data, err := encodeFrame(sendFrame("/app/game/1/move", []byte(`{"from":"e2"}`)))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	data = append([]byte("\n"), data...)
	frames, err := decodeFrames(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(frames) != 1 || frames[0].Command != frame.SEND {
		t.Fatalf("frames=%v", frames)
	}
	if got := frames[0].Header.Get(frame.Destination); got != "/app/game/1/move" {
		t.Fatalf("dest=%s", got)
	}

	beats, err := decodeFrames([]byte("\n"))
	if err != nil || len(beats) != 0 {
		t.Fatalf("heartbeat decoded as %v err=%v", beats, err)
	}
}

func TestTopicsAreSessionScoped(t *testing.T) {
	got := Topics("12")
	if len(got) != 6 || got[0] != "/topic/game/12" || got[5] != "/topic/game/12/player-joined" {
		t.Fatalf("topics=%v", got)
	}
}
