package db

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testHours = []string{"09:00", "10:00", "11:00"}

func newTestDB(t *testing.T, capacity int) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	database, err := New(filepath.Join(t.TempDir(), "test.db"), capacity, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}
