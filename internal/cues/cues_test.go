package cues

import (
	"testing"

	"github.com/park285/IgKnight-client/internal/session"
	"github.com/stretchr/testify/assert"
)

func TestForMove(t *testing.T) {
	cases := []struct {
		name string
		move session.Move
		want []Cue
	}{
		{"quiet", session.Move{}, []Cue{Move}},
		{"capture", session.Move{Capture: true}, []Cue{Capture}},
		{"capture with check", session.Move{Capture: true, Check: true}, []Cue{Capture, Check}},
		{"castle", session.Move{Castle: true, Notation: "O-O"}, []Cue{Castle}},
		{"promotion", session.Move{Promoted: true}, []Cue{Promotion}},
		{"mate", session.Move{Capture: true, Check: true, Checkmate: true}, []Cue{Checkmate}},
		{"notation text is ignored", session.Move{Notation: "exd5"}, []Cue{Move}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ForMove(tc.move))
		})
	}
}

func TestForStatus(t *testing.T) {
	c, ok := ForStatus(session.StatusAwaiting, session.StatusInProgress)
	assert.True(t, ok)
	assert.Equal(t, Start, c)

	c, ok = ForStatus(session.StatusInProgress, session.StatusTimeout)
	assert.True(t, ok)
	assert.Equal(t, End, c)

	_, ok = ForStatus(session.StatusInProgress, session.StatusInProgress)
	assert.False(t, ok)
}
