package scaffold

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/deckhand/internal/config"
	"github.com/dyluth/deckhand/internal/manifest"
)

func TestInitialize_Fresh(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, false))

	cfg, err := config.Load(filepath.Join(dir, "deckhand.yml"))
	require.NoError(t, err)
	assert.Equal(t, "service-account-credentials.json", cfg.Drive.Credentials)
	assert.Equal(t, 1, cfg.Batch.Concurrency)
	assert.False(t, cfg.History.Enabled())

	data, err := os.ReadFile(filepath.Join(dir, "entities.csv"))
	require.NoError(t, err)
	rows, err := manifest.Decode(data)
	require.NoError(t, err)
	entities, err := manifest.Parse(rows)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "Acme", entities[0].Name)
	assert.True(t, entities[1].SlideFilter.Contains(3))
}

func TestInitialize_RefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deckhand.yml"), []byte("keep me"), 0644))

	err := Initialize(dir, false)
	var existing *ExistingFilesError
	require.True(t, errors.As(err, &existing))
	assert.Equal(t, []string{"deckhand.yml"}, existing.Files)

	data, err := os.ReadFile(filepath.Join(dir, "deckhand.yml"))
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
	assert.NoFileExists(t, filepath.Join(dir, "entities.csv"))
}

func TestInitialize_Force(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deckhand.yml"), []byte("old"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "entities.csv"), []byte("old"), 0644))

	require.NoError(t, Initialize(dir, true))
	_, err := config.Load(filepath.Join(dir, "deckhand.yml"))
	assert.NoError(t, err)
}
