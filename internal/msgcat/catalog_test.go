package msgcat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogRenders(t *testing.T) {
	c := Default()
	s, err := c.Render("status.checkmate", map[string]any{"Winner": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "Checkmate! alice wins", s)

	s, err = c.Render("status.draw", map[string]any{"Reason": "repetition"})
	require.NoError(t, err)
	assert.Equal(t, "Draw (repetition)", s)

	s, err = c.Render("status.draw", map[string]any{"Reason": ""})
	require.NoError(t, err)
	assert.Equal(t, "Draw", s)
}

func TestMissingFieldIsError(t *testing.T) {
	c := Default()
	_, err := c.Render("status.checkmate", map[string]any{})
	assert.Error(t, err)
	assert.Equal(t, "nope.key", c.Text("nope.key", nil))
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("status:\n  waiting: \"hold on\"\n"), 0o644))
	c, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, "hold on", c.Text("status.waiting", nil))
	assert.Equal(t, "Stalemate - draw", c.Text("status.stalemate", nil))
}

func TestOverrideDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("notice:\n  resync: x\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte("notice:\n  resync: y\n"), 0o644))
	_, err := New(dir)
	assert.ErrorContains(t, err, "defined in both")
}

func TestOverrideRejectsNonStringLeaf(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("status:\n  waiting: 3\n"), 0o644))
	_, err := New(dir)
	assert.ErrorContains(t, err, "must be a string")
}
