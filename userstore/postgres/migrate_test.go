package postgres

import (
	"errors"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMigrate struct {
	upErr      error
	downErr    error
	versionVal uint
	versionErr error
	dirty      bool
	closeSrc   error
	closeDB    error
}

func (m *mockMigrate) Up() error                    { return m.upErr }
func (m *mockMigrate) Down() error                  { return m.downErr }
func (m *mockMigrate) Version() (uint, bool, error) { return m.versionVal, m.dirty, m.versionErr }
func (m *mockMigrate) Close() (error, error)        { return m.closeSrc, m.closeDB }

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)

	var up, down int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			up++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			down++
		}
	}
	assert.Equal(t, 2, up)
	assert.Equal(t, up, down)
}

func TestIPHistoryMigrationConvertsLegacyColumn(t *testing.T) {
	up, err := migrationsFS.ReadFile("migrations/000002_user_ip_history.up.sql")
	require.NoError(t, err)
	sql := string(up)

	assert.NotContains(t, sql, "DROP COLUMN IF EXISTS ip_history")
	assert.Contains(t, sql, "unnest(u.ip_addresses)")
	for _, key := range []string{"'ip'", "'created_at'", "'updated_at'"} {
		assert.Contains(t, sql, key)
	}
	assert.Contains(t, sql, "DROP COLUMN ip_addresses")
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u@db/authd", migrateURL("postgres://u@db/authd"))
	assert.Equal(t, "pgx5://u@db/authd", migrateURL("postgresql://u@db/authd"))
	assert.Equal(t, "pgx5://u@db/authd", migrateURL("pgx5://u@db/authd"))
}

func TestNewMigratorInvalidURL(t *testing.T) {
	_, err := NewMigrator("badscheme://localhost:5432/authd")
	require.Error(t, err)
	assertCode(t, err, "MIGRATION_INIT_FAILED")
}

func TestMigratorNoChangeIsNotAnError(t *testing.T) {
	m := &Migrator{m: &mockMigrate{upErr: migrate.ErrNoChange, downErr: migrate.ErrNoChange}}
	require.NoError(t, m.Up())
	require.NoError(t, m.Down())
}

func TestMigratorUpFailure(t *testing.T) {
	m := &Migrator{m: &mockMigrate{upErr: errors.New("syntax error")}}
	err := m.Up()
	require.Error(t, err)
	assertCode(t, err, "MIGRATION_UP_FAILED")
}

func TestMigratorVersion(t *testing.T) {
	m := &Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}
	v, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Zero(t, v)
	assert.False(t, dirty)

	m = &Migrator{m: &mockMigrate{versionVal: 2, dirty: true}}
	v, dirty, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	assert.True(t, dirty)
}

func TestMigratorCloseJoinsErrors(t *testing.T) {
	m := &Migrator{m: &mockMigrate{closeSrc: errors.New("src"), closeDB: errors.New("db")}}
	err := m.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "src")
	assert.Contains(t, err.Error(), "db")
}
