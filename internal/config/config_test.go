package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robalobadob/guessnumber/internal/game"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "5175", cfg.Port)
	require.Equal(t, game.StrategyRandom, cfg.DefaultStrategy)
	require.Equal(t, 14, cfg.JWTExpiresDays)
	require.False(t, cfg.Production())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DEFAULT_STRATEGY", "bisect")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("ROUND_SALT", "s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9000", cfg.Port)
	require.Equal(t, game.StrategyBisect, cfg.DefaultStrategy)
	require.Equal(t, "s", cfg.RoundSalt)
	require.True(t, cfg.Production())
}

func TestLoadRejectsUnknownStrategy(t *testing.T) {
	t.Setenv("DEFAULT_STRATEGY", "psychic")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsBadNumber(t *testing.T) {
	t.Setenv("JWT_EXPIRES_DAYS", "soon")
	_, err := Load()
	require.Error(t, err)
}
