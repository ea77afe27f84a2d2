package livefeed

import (
	"context"
	"errors"
	"testing"

	"github.com/park285/IgKnight-client/pkg/gamedto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	connected bool
	err       error
	moves     int
	resigns   int
}

func (p *fakePublisher) Connected() bool { return p.connected }
func (p *fakePublisher) PublishMove(context.Context, string, string, string) error {
	p.moves++
	return p.err
}
func (p *fakePublisher) PublishResign(context.Context) error       { p.resigns++; return p.err }
func (p *fakePublisher) PublishChat(context.Context, string) error { return p.err }

type fakeREST struct {
	moves   []string
	resigns int
}

func (r *fakeREST) SubmitMove(_ context.Context, id, from, to, promo string) (*gamedto.GameResponse, error) {
	r.moves = append(r.moves, id+":"+from+to+promo)
	return &gamedto.GameResponse{ID: gamedto.ID(id)}, nil
}

func (r *fakeREST) Resign(_ context.Context, id string) (*gamedto.GameResponse, error) {
	r.resigns++
	return &gamedto.GameResponse{ID: gamedto.ID(id), Status: "RESIGNATION"}, nil
}

func TestAutoEgressPrefersPush(t *testing.T) {
	pub := &fakePublisher{connected: true}
	rest := &fakeREST{}
	eg := NewEgress("auto", "7", pub, rest, nil)

	resp, err := eg.Move(context.Background(), "e2", "e4", "")
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, 1, pub.moves)
	assert.Empty(t, rest.moves)
}

func TestAutoEgressFallsBackToREST(t *testing.T) {
	rest := &fakeREST{}

	eg := NewEgress("auto", "7", &fakePublisher{connected: false}, rest, nil)
	resp, err := eg.Move(context.Background(), "e7", "e8", "Q")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, []string{"7:e7e8Q"}, rest.moves)

	failing := &fakePublisher{connected: true, err: errors.New("write failed")}
	eg = NewEgress("auto", "7", failing, rest, nil)
	resp, err = eg.Resign(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "RESIGNATION", resp.Status)
	assert.Equal(t, 1, failing.resigns)
	assert.Equal(t, 1, rest.resigns)

	eg = NewEgress("auto", "7", nil, rest, nil)
	_, err = eg.Move(context.Background(), "d2", "d4", "")
	require.NoError(t, err)
	assert.Len(t, rest.moves, 2)
	assert.ErrorIs(t, eg.Chat(context.Background(), "hi"), ErrNotConnected)
}

func TestFixedModes(t *testing.T) {
	pub := &fakePublisher{connected: true}
	rest := &fakeREST{}
	_, err := NewEgress("http", "7", pub, rest, nil).Move(context.Background(), "e2", "e4", "")
	require.NoError(t, err)
	assert.Zero(t, pub.moves)

	pub.connected = false
	_, err = NewEgress("ws", "7", pub, rest, nil).Move(context.Background(), "e2", "e4", "")
	assert.ErrorIs(t, err, ErrNotConnected)
}
