package storage

import (
	"context"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/logger"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/repository"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/events"
)

const journalQueueSize = 64

// Journal records pick sequences from sequencer events. Publish never blocks; the
// database is written from Run.
type Journal struct {
	repo   repository.PickRepository
	logger *logger.Logger
	queue  chan models.Pick
	ids    map[uint64]int64 // sequence -> row id, while running
}

func NewJournal(repo repository.PickRepository, logger *logger.Logger) *Journal {
	return &Journal{
		repo:   repo,
		logger: logger,
		queue:  make(chan models.Pick, journalQueueSize),
		ids:    make(map[uint64]int64),
	}
}

func (j *Journal) Publish(e events.Event) {
	switch e.Kind {
	case events.SequenceStarted, events.SequenceCompleted, events.SequenceError:
	default:
		return
	}
	if e.Pick == nil {
		return
	}

	select {
	case j.queue <- *e.Pick:
	default:
		j.logger.Warning("Pick journal queue full, dropping %s for pick %d", e.Kind, e.Sequence)
	}
}

// Run drains the queue until ctx is done, then writes whatever is still queued.
func (j *Journal) Run(ctx context.Context) {
	for {
		select {
		case p := <-j.queue:
			j.record(p)
		case <-ctx.Done():
			for {
				select {
				case p := <-j.queue:
					j.record(p)
				default:
					return
				}
			}
		}
	}
}

func (j *Journal) record(p models.Pick) {
	if p.Status == models.PickRunning {
		id, err := j.repo.Insert(&p)
		if err != nil {
			j.logger.Error("Failed to journal pick %d: %v", p.Sequence, err)
			return
		}
		j.ids[p.Sequence] = id
		return
	}

	id, ok := j.ids[p.Sequence]
	if !ok {
		// Start was dropped or failed; store the finished pick as a whole.
		if _, err := j.repo.Insert(&p); err != nil {
			j.logger.Error("Failed to journal pick %d: %v", p.Sequence, err)
		}
		return
	}
	delete(j.ids, p.Sequence)

	p.ID = id
	if err := j.repo.Finish(&p); err != nil {
		j.logger.Error("Failed to finish pick %d: %v", p.Sequence, err)
	}
}
