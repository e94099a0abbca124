//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with a migrated database:
//
//	TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/repository/postgres/...
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func insertTestDestination(t *testing.T, db *sqlx.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO destinations (id, city_name, country, airport_code) VALUES ($1, $2, $3, $4)`,
		id, "Lisbon", "Portugal", "LIS")
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Exec(`DELETE FROM price_statistics WHERE destination_id = $1`, id)
		db.Exec(`DELETE FROM price_history WHERE destination_id = $1`, id)
		db.Exec(`DELETE FROM destinations WHERE id = $1`, id)
	})
	return id
}

func TestRefreshStatisticsEmptyLog(t *testing.T) {
	db := testDB(t)
	repo := NewPriceRepository(NewBaseRepository(db))
	destID := insertTestDestination(t, db)

	stats, err := repo.RefreshStatistics(context.Background(), destID)
	require.NoError(t, err)

	assert.Equal(t, destID, stats.DestinationID)
	assert.Equal(t, 0, stats.SampleCount)
	assert.Nil(t, stats.Avg90Day)
	assert.Nil(t, stats.Percentile25)
	assert.Nil(t, stats.Percentile50)
	assert.Nil(t, stats.AllTimeLow)
}

func TestRefreshStatisticsAggregatesAndIsIdempotent(t *testing.T) {
	db := testDB(t)
	repo := NewPriceRepository(NewBaseRepository(db))
	destID := insertTestDestination(t, db)

	outbound := time.Now().AddDate(0, 1, 0)
	for _, price := range []float64{500, 300, 400} {
		_, err := repo.RecordObservation(context.Background(), destID, price, outbound)
		require.NoError(t, err)
	}

	first, err := repo.RefreshStatistics(context.Background(), destID)
	require.NoError(t, err)

	assert.Equal(t, 3, first.SampleCount)
	require.NotNil(t, first.Avg90Day)
	require.NotNil(t, first.Percentile25)
	require.NotNil(t, first.Percentile50)
	require.NotNil(t, first.AllTimeLow)
	assert.InDelta(t, 400, *first.Avg90Day, 0.01)
	assert.InDelta(t, 350, *first.Percentile25, 0.01)
	assert.InDelta(t, 400, *first.Percentile50, 0.01)
	assert.InDelta(t, 300, *first.AllTimeLow, 0.01)
	assert.LessOrEqual(t, *first.AllTimeLow, *first.Percentile25)
	assert.LessOrEqual(t, *first.Percentile25, *first.Percentile50)

	// With no new observations a second refresh upserts identical values.
	second, err := repo.RefreshStatistics(context.Background(), destID)
	require.NoError(t, err)
	assert.Equal(t, first.SampleCount, second.SampleCount)
	assert.Equal(t, *first.Avg90Day, *second.Avg90Day)
	assert.Equal(t, *first.Percentile25, *second.Percentile25)
	assert.Equal(t, *first.Percentile50, *second.Percentile50)
	assert.Equal(t, *first.AllTimeLow, *second.AllTimeLow)

	var rows int
	require.NoError(t, db.Get(&rows,
		`SELECT COUNT(*) FROM price_statistics WHERE destination_id = $1`, destID))
	assert.Equal(t, 1, rows, "refresh keeps a single row per destination")
}

func TestRecordObservationAppendsOnly(t *testing.T) {
	db := testDB(t)
	repo := NewPriceRepository(NewBaseRepository(db))
	destID := insertTestDestination(t, db)

	outbound := time.Now().AddDate(0, 1, 0)
	id1, err := repo.RecordObservation(context.Background(), destID, 389.99, outbound)
	require.NoError(t, err)
	id2, err := repo.RecordObservation(context.Background(), destID, 389.99, outbound)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2, "repeated observations get distinct rows")

	var count int
	require.NoError(t, db.Get(&count,
		`SELECT COUNT(*) FROM price_history WHERE destination_id = $1`, destID))
	assert.Equal(t, 2, count)
}
