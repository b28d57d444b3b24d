package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokequest/internal/config"
	"pokequest/internal/store"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Store:          store.EngineJSON,
		DataFile:       filepath.Join(t.TempDir(), "state.json"),
		PokeAPIBaseURL: "http://127.0.0.1:1",
		PokeAPITimeout: time.Second,
		MaxItemID:      151,
		SuccessDecay:   time.Second,
		FailureDecay:   time.Second,
		Timezone:       "UTC",
		LogFormat:      "json",
	}
}

func TestOpenWiresService(t *testing.T) {
	a, err := Open(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	defer a.Close()

	challenge, err := a.Service.Steps(context.Background(), "ash")
	require.NoError(t, err)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), challenge.DateKey)

	raw, ok, err := a.Store.ReadKey(context.Background(), "ash", "stepChallengeData")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, raw)
}

func TestOpenRejectsBadQuestionFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.QuestionsFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Open(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestOpenRejectsEmptyCatalogFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.CatalogFile = filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(cfg.CatalogFile, []byte("items: []\n"), 0o644))

	_, err := Open(context.Background(), cfg, nil)
	require.Error(t, err)
}
