package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilesSortedSQLOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_seed.sql", "README.md", "0001_schema.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "old"), 0o700))

	files, err := migrationFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_schema.sql", "0002_seed.sql"}, files)
}

func TestShippedMigrations(t *testing.T) {
	files, err := migrationFiles("../../migrations")
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_schema.sql", "0002_seed.sql", "0003_help_request_one_open.sql"}, files)

	raw, err := os.ReadFile("../../migrations/0003_help_request_one_open.sql")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "ON help_request (request_id)")
	assert.Contains(t, string(raw), "WHERE status = 'open'")
}
