package migrate

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsut-attendance/backend/migrations"
)

func TestLoadOrdersAndPairsFiles(t *testing.T) {
	source := fstest.MapFS{
		"000001_second.up.sql":   {Data: []byte("CREATE TABLE b (id INT)")},
		"000001_second.down.sql": {Data: []byte("DROP TABLE b")},
		"000000_first.up.sql":    {Data: []byte("CREATE TABLE a (id INT)")},
		"README.md":              {Data: []byte("ignored")},
		"notes.up.sql":           {Data: []byte("ignored, no version")},
	}

	got, err := Load(source)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 0, got[0].Version)
	assert.Equal(t, "first", got[0].Name)
	assert.Empty(t, got[0].DownSQL)
	assert.Equal(t, 1, got[1].Version)
	assert.Equal(t, "second", got[1].Name)
	assert.Equal(t, "DROP TABLE b", got[1].DownSQL)
}

func TestLoadRejectsGaps(t *testing.T) {
	source := fstest.MapFS{
		"000000_first.up.sql": {Data: []byte("SELECT 1")},
		"000002_third.up.sql": {Data: []byte("SELECT 1")},
	}

	_, err := Load(source)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration 1 is missing up.sql")
}

func TestLoadRejectsDownWithoutUp(t *testing.T) {
	source := fstest.MapFS{
		"000000_first.down.sql": {Data: []byte("SELECT 1")},
	}

	_, err := Load(source)
	require.Error(t, err)
}

func TestLoadRejectsEmptySource(t *testing.T) {
	_, err := Load(fstest.MapFS{})
	require.Error(t, err)
}

func TestStatementsSkipsBlanks(t *testing.T) {
	got := Statements("CREATE TABLE a (id INT);\n\n ; DROP TABLE b;")
	assert.Equal(t, []string{"CREATE TABLE a (id INT)", "DROP TABLE b"}, got)
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	got, err := Load(migrations.FS)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(got), 3)

	for _, m := range got {
		assert.NotEmpty(t, m.DownSQL, "migration %d needs a down script", m.Version)
	}
}
