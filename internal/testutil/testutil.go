package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kmnkit/vietnamese-word-cards/internal/db"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied.
// It is closed when the test ends.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(db.DriverSQLite, ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}


// Clock is a settable time source for deterministic tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock stopped at t.
func NewClock(t time.Time) *Clock { return &Clock{now: t} }

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
