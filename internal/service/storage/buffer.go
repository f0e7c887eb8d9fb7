package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/config"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/dto"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/logger"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/repository"
)

const timestampLayout = "2006-01-02_15-04_05.000"

// BufferService keeps trigger snapshots in memory and periodically flushes them to disk.
type BufferService struct {
	snapshotsDir  string
	limit         int
	flushInterval time.Duration
	snapshots     []dto.BufferedSnapshot
	mu            sync.Mutex
	logger        *logger.Logger
	snapshotRepo  repository.SnapshotRepository
	now           func() time.Time
}

// NewBufferService creates a BufferService writing into the configured snapshot directory.
func NewBufferService(config *config.Config, logger *logger.Logger, snapshotRepo repository.SnapshotRepository) *BufferService {
	return &BufferService{
		snapshotsDir:  config.SnapshotDirectory,
		limit:         config.SnapshotLimit,
		flushInterval: time.Duration(config.SnapshotFlushInterval) * time.Second,
		snapshots:     make([]dto.BufferedSnapshot, 0),
		logger:        logger,
		snapshotRepo:  snapshotRepo,
		now:           time.Now,
	}
}

// Run flushes on a ticker until ctx is done, then flushes once more.
func (s *BufferService) Run(ctx context.Context) {
	interval := s.flushInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Flush()
			return
		case <-ticker.C:
			s.Flush()
		}
	}
}

// Add buffers an encoded frame. Frames beyond the limit are dropped until the next flush.
func (s *BufferService) Add(data []byte, label string, detections []models.Detection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.snapshots) >= s.limit {
		s.logger.Debug("Snapshot buffer full (%d), dropping frame", s.limit)
		return false
	}

	s.snapshots = append(s.snapshots, dto.BufferedSnapshot{
		Timestamp:  s.now().Format(timestampLayout),
		Label:      label,
		Detections: append([]models.Detection(nil), detections...),
		Data:       data,
	})
	s.logger.Info("Snapshot buffer size: %d/%d", len(s.snapshots), s.limit)
	return true
}

// Pending is the number of buffered snapshots.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

// Flush writes buffered snapshots to disk, records them and clears the buffer.
func (s *BufferService) Flush() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.snapshots) == 0 {
		return 0
	}

	if err := os.MkdirAll(s.snapshotsDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return 0
	}

	savedCount := 0
	for i, snap := range s.snapshots {
		filename := fmt.Sprintf("%s_%02d_%s.jpg", snap.Timestamp, i, sanitize(snap.Label))
		fullpath := filepath.Join(s.snapshotsDir, filename)

		if err := os.WriteFile(fullpath, snap.Data, 0644); err != nil {
			s.logger.Error("Error saving snapshot %s: %v", filename, err)
			continue
		}

		if s.snapshotRepo != nil {
			ts, err := time.ParseInLocation(timestampLayout, snap.Timestamp, time.Local)
			if err != nil {
				ts = s.now()
			}

			_, err = s.snapshotRepo.Insert(&models.Snapshot{
				Filename:   filename,
				Label:      snap.Label,
				Timestamp:  ts,
				FilePath:   fullpath,
				FileSize:   int64(len(snap.Data)),
				Detections: snap.Detections,
			})
			if err != nil {
				s.logger.Error("Error saving snapshot to database %s: %v", filename, err)
				continue
			}
		}

		savedCount++
	}

	s.logger.Info("Flushed %d snapshots to disk", savedCount)
	s.snapshots = s.snapshots[:0]
	return savedCount
}

func sanitize(label string) string {
	if label == "" {
		return "object"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, label)
}
