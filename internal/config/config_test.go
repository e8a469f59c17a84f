package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Chdir(t.TempDir()) // keep a developer's .env out of the test
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
		assert.Equal(t, 3*time.Second, cfg.RevealDuration)
		assert.Equal(t, time.Hour, cfg.SessionTTL)
		assert.False(t, cfg.SeedParticipants)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("PORT", "9090")
		t.Setenv("REVEAL_DURATION", "5s")
		t.Setenv("REVEAL_TICK", "50ms")
		t.Setenv("SEED_PARTICIPANTS", "true")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "9090", cfg.Port)
		assert.Equal(t, 5*time.Second, cfg.RevealDuration)
		assert.Equal(t, 50*time.Millisecond, cfg.TickInterval)
		assert.True(t, cfg.SeedParticipants)
	})

	t.Run("dotenv file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DB_PATH=/tmp/draw.db\n"), 0o644))
		t.Chdir(dir)
		// registers a restore of the variable, which godotenv then sets
		t.Setenv("DB_PATH", "")
		require.NoError(t, os.Unsetenv("DB_PATH"))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/draw.db", cfg.DBPath)
	})

	t.Run("cors origins", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("CORS_ORIGINS", "http://localhost:5173, https://draw.example.com,")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, []string{"http://localhost:5173", "https://draw.example.com"}, cfg.CORSOrigins)

		t.Setenv("CORS_ORIGINS", "not a url")
		_, err = Load()
		assert.ErrorContains(t, err, "CORS_ORIGINS")
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("REVEAL_DURATION", "soon")
		_, err := Load()
		assert.ErrorContains(t, err, "REVEAL_DURATION")
	})

	t.Run("reveal shorter than a tick", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("REVEAL_TICK", "200ms")
		t.Setenv("REVEAL_DURATION", "100ms")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("unknown gin mode", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("GIN_MODE", "loud")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadCatalog(t *testing.T) {
	t.Run("built-in catalog", func(t *testing.T) {
		c, err := LoadCatalog("")
		require.NoError(t, err)
		require.Len(t, c.Tiers, 5)
		assert.Len(t, c.Participants, 18)

		tiers := c.PrizeTiers()
		assert.Equal(t, "幸运奖", tiers[0].Name)
		assert.Equal(t, 6, tiers[0].Quota)
		assert.Equal(t, "🍀", tiers[0].Icon)
	})

	t.Run("file catalog", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tiers.yaml")
		require.NoError(t, os.WriteFile(path, []byte("tiers:\n  - name: Gold\n    quota: 1\n"), 0o644))
		c, err := LoadCatalog(path)
		require.NoError(t, err)
		assert.Equal(t, "Gold", c.Tiers[0].Name)
		assert.Empty(t, c.Participants)
	})

	t.Run("invalid catalogs", func(t *testing.T) {
		for name, body := range map[string]string{
			"no tiers":       "participants: [A]\n",
			"zero quota":     "tiers:\n  - name: Gold\n    quota: 0\n",
			"missing name":   "tiers:\n  - quota: 2\n",
			"duplicate tier": "tiers:\n  - {name: Gold, quota: 1}\n  - {name: Gold, quota: 2}\n",
			"not yaml":       "tiers: [",
		} {
			_, err := ParseCatalog([]byte(body))
			assert.Error(t, err, name)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
