package migration

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMigrator_Validation(t *testing.T) {
	_, err := NewMigrator(nil)
	assert.Error(t, err)

	_, err = NewMigrator(&Config{})
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/000002_add_index.up.sql":   {Data: []byte("CREATE INDEX;")},
		"migrations/000002_add_index.down.sql": {Data: []byte("DROP INDEX;")},
		"migrations/000001_init.up.sql":        {Data: []byte("CREATE TABLE;")},
		"migrations/000001_init.down.sql":      {Data: []byte("DROP TABLE;")},
		"migrations/README.md":                 {Data: []byte("docs")},
		"migrations/bogus.up.sql":              {Data: []byte("ignored")},
	}

	migrations, err := listMigrations(fsys, "migrations")
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	// 按版本升序
	assert.Equal(t, uint(1), migrations[0].version)
	assert.Equal(t, "init", migrations[0].name)
	assert.Equal(t, uint(2), migrations[1].version)
	assert.Equal(t, "add_index", migrations[1].name)
}

func TestListMigrations_EmbeddedFiles(t *testing.T) {
	migrations, err := listMigrations(postgresFS, migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, uint(1), migrations[0].version)
	assert.Equal(t, "init_schema", migrations[0].name)
}

func TestListMigrations_MissingDir(t *testing.T) {
	_, err := listMigrations(fstest.MapFS{}, "nope")
	assert.Error(t, err)
}
