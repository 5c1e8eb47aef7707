package storage

import (
	"context"
	"testing"
	"time"

	"github.com/machine-analytics/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runRepositoryContract exercises the behavior every Repository must share.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()
	updated := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("machines ordered by name", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.SaveMachines(ctx, []models.Machine{
			{ID: "m2", Name: "Pump B", StatusName: "Alert", MachineType: "pump"},
			{ID: "m1", Name: "Compressor", StatusName: "Normal", DataUpdatedTime: &updated},
			{ID: "m3", Name: "Pump A", StatusName: "Critical"},
		}))

		machines, err := repo.ListMachines(ctx)
		require.NoError(t, err)
		require.Len(t, machines, 3)
		assert.Equal(t, "Compressor", machines[0].Name)
		assert.Equal(t, "Pump A", machines[1].Name)
		assert.Equal(t, "Pump B", machines[2].Name)
		assert.Equal(t, "pump", machines[2].MachineType)
		require.NotNil(t, machines[0].DataUpdatedTime)
		assert.True(t, updated.Equal(*machines[0].DataUpdatedTime))
		assert.Nil(t, machines[1].DataUpdatedTime)
	})

	t.Run("empty store lists nothing", func(t *testing.T) {
		repo := newRepo(t)
		machines, err := repo.ListMachines(ctx)
		require.NoError(t, err)
		assert.Empty(t, machines)

		bearings, err := repo.ListBearings(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, bearings)

		readings, err := repo.ListReadings(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, readings)
	})

	t.Run("get machine and not found", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.SaveMachines(ctx, []models.Machine{{ID: "m1", Name: "Lathe", StatusName: "Normal"}}))

		m, err := repo.GetMachine(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, "Lathe", m.Name)

		_, err = repo.GetMachine(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save replaces existing machine", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.SaveMachines(ctx, []models.Machine{{ID: "m1", Name: "Lathe", StatusName: "Normal"}}))
		require.NoError(t, repo.SaveMachines(ctx, []models.Machine{{ID: "m1", Name: "Lathe", StatusName: "Critical"}}))

		machines, err := repo.ListMachines(ctx)
		require.NoError(t, err)
		require.Len(t, machines, 1)
		assert.Equal(t, "Critical", machines[0].StatusName)
	})

	t.Run("bearings scoped to machine", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.SaveBearings(ctx, []models.Bearing{
			{ID: "b2", MachineID: "m1", BearingLocationType: "DE", StatusName: "Normal"},
			{ID: "b1", MachineID: "m1", BearingLocationType: "NDE", StatusName: "Alert", Name: "Fan end"},
			{ID: "b3", MachineID: "m2", BearingLocationType: "DE"},
		}))

		bearings, err := repo.ListBearings(ctx, "m1")
		require.NoError(t, err)
		require.Len(t, bearings, 2)
		assert.Equal(t, "b1", bearings[0].ID)
		assert.Equal(t, "Fan end", bearings[0].Name)
		assert.Equal(t, "b2", bearings[1].ID)
		assert.Equal(t, "DE", bearings[1].BearingLocationType)
	})

	t.Run("readings ordered by timestamp", func(t *testing.T) {
		repo := newRepo(t)
		n, err := repo.AppendReadings(ctx, []models.Reading{
			{BearingID: "b1", Timestamp: models.Int64Ptr(300), RPM: 1500, RawData: []float64{0.3}},
			{BearingID: "b1", Timestamp: models.Int64Ptr(100), RPM: 1480, RawData: []float64{0.1, -0.2}},
			{BearingID: "b2", Timestamp: models.Int64Ptr(200), RPM: 900, RawData: []float64{}},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		readings, err := repo.ListReadings(ctx, "b1")
		require.NoError(t, err)
		require.Len(t, readings, 2)
		assert.Equal(t, int64(100), *readings[0].Timestamp)
		assert.Equal(t, []float64{0.1, -0.2}, readings[0].RawData)
		assert.Equal(t, 1480.0, readings[0].RPM)
		assert.NotEmpty(t, readings[0].ID)
		assert.Equal(t, int64(300), *readings[1].Timestamp)

		other, err := repo.ListReadings(ctx, "b2")
		require.NoError(t, err)
		require.Len(t, other, 1)
		assert.Empty(t, other[0].RawData)
	})

	t.Run("repeated reading IDs are stored once", func(t *testing.T) {
		repo := newRepo(t)
		batch := []models.Reading{
			{ID: "r1", BearingID: "b1", Timestamp: models.Int64Ptr(100), RPM: 1480, RawData: []float64{0.1}},
			{ID: "r2", BearingID: "b1", Timestamp: models.Int64Ptr(200), RPM: 1490, RawData: []float64{0.2}},
		}
		n, err := repo.AppendReadings(ctx, batch)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		// Re-importing the same batch plus one new reading adds only the new one.
		again := append([]models.Reading{
			{ID: "r1", BearingID: "b1", Timestamp: models.Int64Ptr(100), RPM: 9999, RawData: []float64{9}},
			{ID: "r3", BearingID: "b1", Timestamp: models.Int64Ptr(300), RPM: 1500},
			{ID: "r3", BearingID: "b1", Timestamp: models.Int64Ptr(300), RPM: 1500},
		}, batch...)
		n, err = repo.AppendReadings(ctx, again)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		readings, err := repo.ListReadings(ctx, "b1")
		require.NoError(t, err)
		require.Len(t, readings, 3)
		assert.Equal(t, "r1", readings[0].ID)
		assert.Equal(t, 1480.0, readings[0].RPM)
		assert.Equal(t, []float64{0.1}, readings[0].RawData)
		assert.Equal(t, "r3", readings[2].ID)
	})

	t.Run("reading without timestamp rejected", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.AppendReadings(ctx, []models.Reading{
			{BearingID: "b1", Timestamp: models.Int64Ptr(1)},
			{BearingID: "b1"},
		})
		assert.ErrorIs(t, err, ErrMissingTimestamp)

		readings, err := repo.ListReadings(ctx, "b1")
		require.NoError(t, err)
		assert.Empty(t, readings)
	})
}
