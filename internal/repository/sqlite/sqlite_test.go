package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/dto"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func samplePick(seq uint64, started time.Time) *models.Pick {
	return &models.Pick{
		Sequence:   seq,
		StartedAt:  started,
		Status:     models.PickRunning,
		Confidence: 0.81,
		ClassID:    2,
		Box:        models.Rect{X1: 270, Y1: 190, X2: 370, Y2: 290},
		Base:       90,
		Shoulder1:  90,
		Shoulder2:  115,
		Claw:       60,
	}
}

// ========================================
// Database Tests
// ========================================

func TestDatabase_Connection(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")
}

func TestDatabase_MigrationIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := New(dbPath)
	require.NoError(t, err)
	_, err = NewPickRepository(db).Insert(samplePick(1, time.Now()))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = New(dbPath)
	require.NoError(t, err)
	defer db.Close()

	picks, err := NewPickRepository(db).GetAll(nil)
	require.NoError(t, err)
	assert.Len(t, picks, 1)
}

// ========================================
// Pick Journal Tests
// ========================================

func TestPickRepository_InsertAndFinish(t *testing.T) {
	repo := NewPickRepository(setupTestDB(t))
	started := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	p := samplePick(7, started)
	id, err := repo.Insert(p)
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)

	got, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(7), got.Sequence)
	assert.Equal(t, models.PickRunning, got.Status)
	assert.Nil(t, got.FinishedAt)
	assert.InDelta(t, 0.81, got.Confidence, 1e-6)
	assert.Equal(t, float32(370), got.Box.X2)
	assert.Equal(t, 115, got.Shoulder2)
	assert.True(t, started.Equal(got.StartedAt))

	finished := started.Add(5 * time.Second)
	p.FinishedAt = &finished
	p.Status = models.PickAborted
	p.FailedStep = "grip"
	p.Error = "step grip: device unplugged"
	require.NoError(t, repo.Finish(p))

	got, err = repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, models.PickAborted, got.Status)
	assert.Equal(t, "grip", got.FailedStep)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, finished.Equal(*got.FinishedAt))
}

func TestPickRepository_FinishUnknown(t *testing.T) {
	repo := NewPickRepository(setupTestDB(t))
	err := repo.Finish(&models.Pick{ID: 42, Status: models.PickCompleted})
	assert.Error(t, err)
}

func TestPickRepository_GetByIDMissing(t *testing.T) {
	repo := NewPickRepository(setupTestDB(t))
	got, err := repo.GetByID(99)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestPickRepository_GetAllNewestFirst(t *testing.T) {
	repo := NewPickRepository(setupTestDB(t))
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		p := samplePick(uint64(i+1), base.Add(time.Duration(i)*time.Minute))
		if i%2 == 0 {
			p.Status = models.PickCompleted
		}
		_, err := repo.Insert(p)
		require.NoError(t, err)
	}

	all, err := repo.GetAll(&dto.PickFilter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, uint64(5), all[0].Sequence)
	assert.Equal(t, uint64(1), all[4].Sequence)

	limited, err := repo.GetAll(&dto.PickFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, uint64(4), limited[0].Sequence)

	completed, err := repo.GetAll(&dto.PickFilter{Status: models.PickCompleted})
	require.NoError(t, err)
	assert.Len(t, completed, 3)
}

func TestPickRepository_Stats(t *testing.T) {
	repo := NewPickRepository(setupTestDB(t))
	now := time.Now()

	outcomes := []struct {
		status string
		step   string
	}{
		{models.PickCompleted, ""},
		{models.PickCompleted, ""},
		{models.PickAborted, "grip"},
		{models.PickAborted, "grip"},
		{models.PickAborted, "lift"},
	}
	for i, o := range outcomes {
		p := samplePick(uint64(i+1), now)
		p.Status, p.FailedStep = o.status, o.step
		_, err := repo.Insert(p)
		require.NoError(t, err)
	}

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, map[string]int{models.PickCompleted: 2, models.PickAborted: 3}, stats.PerStatus)
	assert.Equal(t, map[string]int{"grip": 2, "lift": 1}, stats.PerStep)
}

func TestPickRepository_ConcurrentAccess(t *testing.T) {
	repo := NewPickRepository(setupTestDB(t))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := repo.Insert(samplePick(uint64(idx), time.Now()))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
}

// ========================================
// Snapshot Tests
// ========================================

func TestSnapshotRepository_InsertWithDetections(t *testing.T) {
	repo := NewSnapshotRepository(setupTestDB(t))

	s := &models.Snapshot{
		Filename:  "2024-06-01_10-00_00.000_tomato.jpg",
		Label:     "tomato",
		Timestamp: time.Now(),
		FilePath:  "/snapshots/2024-06-01_10-00_00.000_tomato.jpg",
		FileSize:  2048,
		Detections: []models.Detection{
			{Box: models.Rect{X1: 1, Y1: 2, X2: 3, Y2: 4}, Confidence: 0.9, ClassID: 1},
			{Box: models.Rect{X1: 5, Y1: 6, X2: 7, Y2: 8}, Confidence: 0.7, ClassID: 0},
		},
	}
	id, err := repo.Insert(s)
	require.NoError(t, err)
	assert.NotZero(t, id)

	got, err := repo.GetByFilename(s.Filename)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tomato", got.Label)
	assert.Equal(t, int64(2048), got.FileSize)
	require.Len(t, got.Detections, 2)
	assert.Equal(t, uint(1), got.Detections[0].ClassID)
	assert.Equal(t, float32(7), got.Detections[1].Box.X2)

	_, err = repo.Insert(s)
	assert.Error(t, err, "filenames are unique")
}

func TestSnapshotRepository_GetAllAndDelete(t *testing.T) {
	repo := NewSnapshotRepository(setupTestDB(t))
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := repo.Insert(&models.Snapshot{
			Filename:  fmt.Sprintf("snap_%d.jpg", i),
			Label:     "tomato",
			Timestamp: base.Add(time.Duration(i) * time.Second),
			FilePath:  "/snapshots",
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	all, err := repo.GetAll(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "snap_2.jpg", all[0].Filename)

	require.NoError(t, repo.Delete(ids[2]))
	all, err = repo.GetAll(1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "snap_1.jpg", all[0].Filename)

	missing, err := repo.GetByFilename("snap_2.jpg")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
