package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/sealdrop/internal/database"
)

func TestRunMigrations(t *testing.T) {
	logger := discardLogger()

	t.Run("unsupported-driver", func(t *testing.T) {
		err := RunMigrations(logger, "sqlite", "sqlite://sealdrop.db")
		assert.ErrorIs(t, err, database.ErrUnsupportedDriver)
	})

	t.Run("invalid-connection-string", func(t *testing.T) {
		err := RunMigrations(logger, database.DriverPostgres, "invalid-connection-string")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create migrate instance")
	})
}
