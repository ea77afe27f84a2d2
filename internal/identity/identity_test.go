package identity

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/IgKnight-client/pkg/gamedto"
)

func sign(t *testing.T, c jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

func TestResolveFromClaims(t *testing.T) {
	tok := sign(t, jwt.MapClaims{"sub": "alice", "userId": 42})
	u, err := Resolve("", tok)
	require.NoError(t, err)
	assert.Equal(t, gamedto.ID("42"), u.ID)
	assert.Equal(t, "alice", u.Username)

	u, err = Resolve("", "Bearer "+tok)
	require.NoError(t, err)
	assert.Equal(t, gamedto.ID("42"), u.ID)
}

func TestResolveExplicitWins(t *testing.T) {
	tok := sign(t, jwt.MapClaims{"sub": "alice", "userId": 42})
	u, err := Resolve("7", tok)
	require.NoError(t, err)
	assert.Equal(t, gamedto.ID("7"), u.ID)
	assert.Equal(t, "alice", u.Username)
}

func TestResolveMissing(t *testing.T) {
	_, err := Resolve("", "")
	assert.ErrorIs(t, err, ErrUnknownUser)

	_, err = Resolve("", sign(t, jwt.MapClaims{"sub": "bob"}))
	assert.ErrorIs(t, err, ErrUnknownUser)

	_, err = Resolve("", "not-a-token")
	assert.Error(t, err)
}
