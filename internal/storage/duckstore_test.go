package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/machine-analytics/backend/internal/logger"
	"github.com/machine-analytics/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestDuckStore opens a DuckStore in a temporary directory.
func createTestDuckStore(t *testing.T) *DuckStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "telemetry.duckdb")
	store, err := OpenDuckStore(dbPath, DuckOptions{Threads: 1, MemoryLimit: "256MB"}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestDuckStore(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) Repository {
		return createTestDuckStore(t)
	})
}

func TestOpenDuckStore_CreatesFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "fresh.duckdb")
	store, err := OpenDuckStore(dbPath, DuckOptions{Threads: 1}, logger.Discard())
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestDuckStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "persist.duckdb")

	store, err := OpenDuckStore(dbPath, DuckOptions{}, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, store.SaveMachines(ctx, []models.Machine{{ID: "m1", Name: "Mill", StatusName: "Normal"}}))
	_, err = store.AppendReadings(ctx, []models.Reading{
		{ID: "r1", BearingID: "b1", Timestamp: models.Int64Ptr(1700000000), RPM: 1200, RawData: []float64{0.5, 0.25}},
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := OpenDuckStore(dbPath, DuckOptions{}, logger.Discard())
	require.NoError(t, err)
	defer reopened.Close()

	m, err := reopened.GetMachine(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Mill", m.Name)

	readings, err := reopened.ListReadings(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, "r1", readings[0].ID)
	assert.Equal(t, []float64{0.5, 0.25}, readings[0].RawData)
}

func TestDuckStore_BulkAppend(t *testing.T) {
	ctx := context.Background()
	store := createTestDuckStore(t)

	readings := make([]models.Reading, 0, 500)
	for i := 0; i < 500; i++ {
		readings = append(readings, models.Reading{
			BearingID: "b1",
			Timestamp: models.Int64Ptr(int64(500 - i)),
			RPM:       float64(i),
			RawData:   []float64{float64(i)},
		})
	}
	n, err := store.AppendReadings(ctx, readings)
	require.NoError(t, err)
	assert.Equal(t, 500, n)

	got, err := store.ListReadings(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, got, 500)
	assert.Equal(t, int64(1), *got[0].Timestamp)
	assert.Equal(t, int64(500), *got[499].Timestamp)
}

func TestDuckStore_CanceledContext(t *testing.T) {
	store := createTestDuckStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Fill the semaphore so acquire must wait on the context.
	for i := 0; i < cap(store.querySem); i++ {
		store.querySem <- struct{}{}
	}
	defer func() {
		for len(store.querySem) > 0 {
			<-store.querySem
		}
	}()

	_, err := store.ListMachines(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func newMockDuckStore(t *testing.T) (*DuckStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDuckStoreFromDB(db, 2, logger.Discard()), mock
}

func TestDuckStore_Mock_ListMachines(t *testing.T) {
	store, mock := newMockDuckStore(t)
	updated := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "name", "status_name", "machine_type", "data_updated_time"}).
		AddRow("m1", "Boiler", "Normal", "boiler", updated).
		AddRow("m2", "Crusher", nil, nil, nil)
	mock.ExpectQuery("SELECT (.+) FROM machine ORDER BY name").WillReturnRows(rows)

	machines, err := store.ListMachines(context.Background())
	require.NoError(t, err)
	require.Len(t, machines, 2)
	assert.Equal(t, "boiler", machines[0].MachineType)
	require.NotNil(t, machines[0].DataUpdatedTime)
	assert.True(t, updated.Equal(*machines[0].DataUpdatedTime))
	assert.Equal(t, "", machines[1].StatusName)
	assert.Nil(t, machines[1].DataUpdatedTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckStore_Mock_GetMachineNotFound(t *testing.T) {
	store, mock := newMockDuckStore(t)

	mock.ExpectQuery("SELECT (.+) FROM machine WHERE id").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status_name", "machine_type", "data_updated_time"}))

	_, err := store.GetMachine(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckStore_Mock_QueryError(t *testing.T) {
	store, mock := newMockDuckStore(t)
	boom := errors.New("connection lost")

	mock.ExpectQuery("SELECT (.+) FROM bearing").WithArgs("m1").WillReturnError(boom)

	_, err := store.ListBearings(context.Background(), "m1")
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckStore_Mock_ListReadingsDecodesSamples(t *testing.T) {
	store, mock := newMockDuckStore(t)
	raw, err := encodeSamples([]float64{1.5, -2})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM data WHERE bearing_id").
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "bearing_id", "ts", "rpm", "raw_data"}).
			AddRow("r1", "b1", int64(10), 1500.0, raw).
			AddRow("r2", "b1", int64(20), 1510.0, nil))

	readings, err := store.ListReadings(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, []float64{1.5, -2}, readings[0].RawData)
	assert.Equal(t, []float64{}, readings[1].RawData)
	assert.Equal(t, int64(20), *readings[1].Timestamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckStore_Mock_ListReadingsCorruptSamples(t *testing.T) {
	store, mock := newMockDuckStore(t)

	mock.ExpectQuery("SELECT (.+) FROM data").
		WillReturnRows(sqlmock.NewRows([]string{"id", "bearing_id", "ts", "rpm", "raw_data"}).
			AddRow("r1", "b1", int64(10), 1500.0, []byte{0xc1}))

	_, err := store.ListReadings(context.Background(), "b1")
	assert.Error(t, err)
}

func TestDuckStore_Mock_AppendFallsBackToInsert(t *testing.T) {
	store, mock := newMockDuckStore(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT OR IGNORE INTO data")
	prep.ExpectExec().
		WithArgs("r1", "b1", int64(100), 1450.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs(sqlmock.AnyArg(), "b1", int64(200), 1460.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := store.AppendReadings(context.Background(), []models.Reading{
		{ID: "r1", BearingID: "b1", Timestamp: models.Int64Ptr(100), RPM: 1450, RawData: []float64{0.1}},
		{BearingID: "b1", Timestamp: models.Int64Ptr(200), RPM: 1460},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckStore_Mock_AppendCountsOnlyNewRows(t *testing.T) {
	store, mock := newMockDuckStore(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT OR IGNORE INTO data")
	prep.ExpectExec().
		WithArgs("r1", "b1", int64(100), 1450.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	prep.ExpectExec().
		WithArgs("r2", "b1", int64(200), 1460.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// r1 repeats within the batch and is sent once; the store already holds it.
	n, err := store.AppendReadings(context.Background(), []models.Reading{
		{ID: "r1", BearingID: "b1", Timestamp: models.Int64Ptr(100), RPM: 1450},
		{ID: "r1", BearingID: "b1", Timestamp: models.Int64Ptr(100), RPM: 1450},
		{ID: "r2", BearingID: "b1", Timestamp: models.Int64Ptr(200), RPM: 1460},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckStore_Mock_AppendRollsBackOnError(t *testing.T) {
	store, mock := newMockDuckStore(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT OR IGNORE INTO data")
	prep.ExpectExec().WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := store.AppendReadings(context.Background(), []models.Reading{
		{ID: "r1", BearingID: "b1", Timestamp: models.Int64Ptr(100)},
	})
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckStore_Mock_SaveMachinesRollsBack(t *testing.T) {
	store, mock := newMockDuckStore(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT OR REPLACE INTO machine")
	prep.ExpectExec().
		WithArgs("m1", "Kiln", "Normal", "", nil).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := store.SaveMachines(context.Background(), []models.Machine{{ID: "m1", Name: "Kiln", StatusName: "Normal"}})
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckStore_Mock_EmptyWritesSkipDatabase(t *testing.T) {
	store, mock := newMockDuckStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMachines(ctx, nil))
	require.NoError(t, store.SaveBearings(ctx, nil))
	n, err := store.AppendReadings(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSampleCodec(t *testing.T) {
	raw, err := encodeSamples(nil)
	require.NoError(t, err)
	samples, err := decodeSamples(raw)
	require.NoError(t, err)
	assert.Equal(t, []float64{}, samples)

	raw, err = encodeSamples([]float64{3.25, 0, -1e-3})
	require.NoError(t, err)
	samples, err = decodeSamples(raw)
	require.NoError(t, err)
	assert.Equal(t, []float64{3.25, 0, -1e-3}, samples)
}
