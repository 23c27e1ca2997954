package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmnkit/vietnamese-word-cards/internal/db"
)

func TestOpen_AppliesMigrationsOnce(t *testing.T) {
	d, err := db.Open(db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer d.Close()

	var count int
	require.NoError(t, d.Get(&count, `SELECT COUNT(*) FROM schema_migrations`))
	assert.Equal(t, 2, count)

	require.NoError(t, d.Migrate(context.Background()))
	require.NoError(t, d.Get(&count, `SELECT COUNT(*) FROM schema_migrations`))
	assert.Equal(t, 2, count)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := db.Open("mysql", "x")
	assert.Error(t, err)
}

func TestBuilder_Placeholders(t *testing.T) {
	sqlite := &db.DB{Driver: db.DriverSQLite}
	pg := &db.DB{Driver: db.DriverPostgres}

	q, _, err := sqlite.Builder().Select("a").From("t").Where("b = ?", 1).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT a FROM t WHERE b = ?", q)

	q, _, err = pg.Builder().Select("a").From("t").Where("b = ?", 1).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT a FROM t WHERE b = $1", q)
}

func TestTimeRoundTrip(t *testing.T) {
	in := time.Date(2026, 3, 9, 23, 59, 58, 123_000_000, time.FixedZone("ICT", 7*3600))
	s := db.FormatTime(in)
	assert.Equal(t, "2026-03-09T16:59:58.123Z", s)

	out, err := db.ParseTime(s)
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
}

func TestWithTx_RollsBack(t *testing.T) {
	d, err := db.Open(db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer d.Close()

	err = d.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		_, err := tx.Exec(`INSERT INTO progress_state (user_id, payload, version, updated_at) VALUES ('u', '{}', '1', 'x')`)
		require.NoError(t, err)
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	var count int
	require.NoError(t, d.Get(&count, `SELECT COUNT(*) FROM progress_state`))
	assert.Equal(t, 0, count)
}
