package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestLeadsMigrationDeclaresUniquePhone(t *testing.T) {
	body, err := fs.ReadFile(migrationsFS, "migrations/000001_create_leads.up.sql")
	require.NoError(t, err)

	sql := string(body)
	assert.Contains(t, sql, "UNIQUE (phone_number)")
	assert.Contains(t, sql, "ON leads (created_at)")
	assert.Contains(t, sql, "ON leads (status)")
	for _, status := range []string{"pending", "processed", "duplicate", "failed"} {
		assert.Contains(t, sql, "'"+status+"'")
	}
}
