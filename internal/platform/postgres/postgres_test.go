package postgres

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file in migrations: %s", name)
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestInFlightIndexIsPartial(t *testing.T) {
	body, err := fs.ReadFile(migrationsFS, "migrations/000003_communications.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "communications_in_flight_key")
	assert.Contains(t, string(body), "WHERE status IN ('pending', 'received')")
}

func TestUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "communications_in_flight_key"}

	name, ok := UniqueViolation(fmt.Errorf("insert communications: %w", pgErr))
	assert.True(t, ok)
	assert.Equal(t, "communications_in_flight_key", name)

	_, ok = UniqueViolation(errors.New("plain"))
	assert.False(t, ok)

	assert.True(t, ForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
}
