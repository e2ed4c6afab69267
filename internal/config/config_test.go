package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/beachhead/pkg/combat"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8009", cfg.Port)
	assert.Equal(t, 6, cfg.DiceSides)
	assert.Equal(t, 2*time.Minute, cfg.DecisionTimeout)
	assert.False(t, cfg.LowLuck)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOW_LUCK", "true")
	t.Setenv("DICE_SIDES", "12")
	t.Setenv("MAX_ROUNDS", "5")
	t.Setenv("DECISION_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.DecisionTimeout)

	rules := cfg.Rules(combat.StandardRuleset().Rules)
	assert.Equal(t, 12, rules.DiceSides)
	assert.True(t, rules.LowLuck)
	assert.Equal(t, 5, rules.MaxRounds)
	assert.True(t, rules.SubsCanSubmerge, "ruleset defaults are kept")
}

func TestLoadRejectsBadDice(t *testing.T) {
	t.Setenv("DICE_SIDES", "1")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DICE_SIDES", "six")
	_, err = Load()
	assert.Error(t, err)
}
