package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"
)

// SnapshotRepository implements repository.SnapshotRepository for SQLite.
type SnapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new SQLite snapshot repository.
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Insert adds a snapshot and its detections in a single transaction.
func (r *SnapshotRepository) Insert(s *models.Snapshot) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO snapshots (filename, label, timestamp, filepath, filesize)
		VALUES (?, ?, ?, ?, ?)
	`, s.Filename, s.Label, s.Timestamp, s.FilePath, s.FileSize)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshot id: %w", err)
	}

	if len(s.Detections) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO snapshot_detections (snapshot_id, class_id, confidence, x1, y1, x2, y2)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return 0, fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, det := range s.Detections {
			if _, err := stmt.Exec(id, det.ClassID, det.Confidence, det.Box.X1, det.Box.Y1, det.Box.X2, det.Box.Y2); err != nil {
				return 0, fmt.Errorf("failed to insert detection: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit snapshot: %w", err)
	}
	s.ID = id
	return id, nil
}

// GetByFilename retrieves a snapshot and its detections by filename.
func (r *SnapshotRepository) GetByFilename(filename string) (*models.Snapshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var s models.Snapshot
	err := r.db.Conn().QueryRow(`
		SELECT id, filename, label, timestamp, filepath, filesize
		FROM snapshots WHERE filename = ?
	`, filename).Scan(&s.ID, &s.Filename, &s.Label, &s.Timestamp, &s.FilePath, &s.FileSize)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	dets, err := r.detections(s.ID)
	if err != nil {
		return nil, err
	}
	s.Detections = dets
	return &s, nil
}

// GetAll lists snapshots newest first, without their detections.
func (r *SnapshotRepository) GetAll(limit int) ([]models.Snapshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `SELECT id, filename, label, timestamp, filepath, filesize FROM snapshots ORDER BY timestamp DESC, id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []models.Snapshot{}
	for rows.Next() {
		var s models.Snapshot
		if err := rows.Scan(&s.ID, &s.Filename, &s.Label, &s.Timestamp, &s.FilePath, &s.FileSize); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// Delete removes a snapshot and its detections.
func (r *SnapshotRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM snapshot_detections WHERE snapshot_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM snapshots WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// detections must be called with the read lock held.
func (r *SnapshotRepository) detections(snapshotID int64) ([]models.Detection, error) {
	rows, err := r.db.Conn().Query(`
		SELECT class_id, confidence, x1, y1, x2, y2
		FROM snapshot_detections WHERE snapshot_id = ? ORDER BY id
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var dets []models.Detection
	for rows.Next() {
		var d models.Detection
		if err := rows.Scan(&d.ClassID, &d.Confidence, &d.Box.X1, &d.Box.Y1, &d.Box.X2, &d.Box.Y2); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		dets = append(dets, d)
	}
	return dets, rows.Err()
}
