package tools

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectSqlite_Memory(t *testing.T) {
	db, err := ConnectSqlite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO readings
		(reading_id, gain, integration, ms, ch0, ch1, lux, lux_int, visible, infrared)
		VALUES ('r1', '1x', '101ms', 101, 100, 30, 12.5, 12, 0.001, 0.0004)`)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM readings").Scan(&count))
	assert.Equal(t, 1, count)

	var saturated bool
	require.NoError(t, db.QueryRow("SELECT saturated FROM readings WHERE reading_id = 'r1'").Scan(&saturated))
	assert.False(t, saturated)
}

func TestRunMigrations_Rerun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lightmeter.db")
	db, err := ConnectSqlite(path)
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db))
	require.NoError(t, db.Close())

	// reopening an existing file must not fail on the migrations
	db, err = ConnectSqlite(path)
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}
