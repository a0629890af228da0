package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckExisting(t *testing.T) {
	t.Run("empty directory", func(t *testing.T) {
		assert.NoError(t, CheckExisting(t.TempDir()))
	})

	t.Run("lists every existing file", func(t *testing.T) {
		dir := t.TempDir()
		for _, f := range Files {
			require.NoError(t, os.WriteFile(filepath.Join(dir, f.Path), nil, 0644))
		}
		err := CheckExisting(dir)
		require.Error(t, err)
		assert.Equal(t, "workspace already initialized: found deckhand.yml, entities.csv", err.Error())
	})

	t.Run("unrelated files are ignored", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644))
		assert.NoError(t, CheckExisting(dir))
	})
}
