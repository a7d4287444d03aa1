package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("should apply defaults when only DATABASE_URL is set", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/reports")
		t.Setenv("HTTP_PORT", "")
		t.Setenv("FACTORY_CODES", "")

		cfg, err := New()

		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.HTTPPort)
		assert.Equal(t, []string{"AMA", "AMC", "AMD"}, cfg.FactoryCodes)
	})

	t.Run("should fail without DATABASE_URL", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")

		_, err := New()

		require.Error(t, err)
	})

	t.Run("should parse a custom factory registry", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/reports")
		t.Setenv("FACTORY_CODES", "ama, amx ,")

		cfg, err := New()

		require.NoError(t, err)
		assert.Equal(t, []string{"AMA", "AMX"}, cfg.FactoryCodes)
	})

	t.Run("should reject a non-numeric port", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/reports")
		t.Setenv("HTTP_PORT", "eighty")

		_, err := New()

		require.Error(t, err)
	})
}
