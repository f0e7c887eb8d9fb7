package repository

import (
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/dto"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"
)

// PickRepository defines the interface for the pick journal.
type PickRepository interface {
	// Create operations
	Insert(p *models.Pick) (int64, error)

	// Update operations
	Finish(p *models.Pick) error

	// Read operations
	GetByID(id int64) (*models.Pick, error)
	GetAll(filter *dto.PickFilter) ([]models.Pick, error)
	GetStats() (*models.PickStats, error)
}

// SnapshotRepository defines the interface for trigger snapshot records.
type SnapshotRepository interface {
	// Create operations
	Insert(s *models.Snapshot) (int64, error)

	// Read operations
	GetByFilename(filename string) (*models.Snapshot, error)
	GetAll(limit int) ([]models.Snapshot, error)

	// Delete operations
	Delete(id int64) error
}
