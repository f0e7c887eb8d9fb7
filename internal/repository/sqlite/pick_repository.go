package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/dto"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"
)

const pickColumns = `id, sequence, started_at, finished_at, status, failed_step, error,
	confidence, class_id, x1, y1, x2, y2, base, shoulder1, shoulder2, claw`

// PickRepository implements repository.PickRepository for SQLite.
type PickRepository struct {
	db *DB
}

// NewPickRepository creates a new SQLite pick repository.
func NewPickRepository(db *DB) *PickRepository {
	return &PickRepository{db: db}
}

// Insert records a pick when its sequence starts.
func (r *PickRepository) Insert(p *models.Pick) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO picks (sequence, started_at, finished_at, status, failed_step, error,
			confidence, class_id, x1, y1, x2, y2, base, shoulder1, shoulder2, claw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Sequence, p.StartedAt, nullTime(p), p.Status, p.FailedStep, p.Error,
		p.Confidence, p.ClassID, p.Box.X1, p.Box.Y1, p.Box.X2, p.Box.Y2,
		p.Base, p.Shoulder1, p.Shoulder2, p.Claw)
	if err != nil {
		return 0, fmt.Errorf("failed to insert pick: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read pick id: %w", err)
	}
	p.ID = id
	return id, nil
}

// Finish stores the outcome of a pick previously inserted.
func (r *PickRepository) Finish(p *models.Pick) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		UPDATE picks SET finished_at = ?, status = ?, failed_step = ?, error = ?
		WHERE id = ?
	`, nullTime(p), p.Status, p.FailedStep, p.Error, p.ID)
	if err != nil {
		return fmt.Errorf("failed to finish pick: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to finish pick: no pick with id %d", p.ID)
	}
	return nil
}

// GetByID retrieves a pick by its ID.
func (r *PickRepository) GetByID(id int64) (*models.Pick, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`SELECT `+pickColumns+` FROM picks WHERE id = ?`, id)
	p, err := scanPick(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pick: %w", err)
	}
	return p, nil
}

// GetAll lists picks newest first.
func (r *PickRepository) GetAll(filter *dto.PickFilter) ([]models.Pick, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `SELECT ` + pickColumns + ` FROM picks WHERE 1=1`
	args := []interface{}{}

	if filter == nil {
		filter = &dto.PickFilter{}
	}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}

	query += " ORDER BY started_at DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query picks: %w", err)
	}
	defer rows.Close()

	picks := []models.Pick{}
	for rows.Next() {
		p, err := scanPick(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pick: %w", err)
		}
		picks = append(picks, *p)
	}
	return picks, rows.Err()
}

// GetStats returns totals per outcome and failures per step.
func (r *PickRepository) GetStats() (*models.PickStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &models.PickStats{
		PerStatus: make(map[string]int),
		PerStep:   make(map[string]int),
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM picks`).Scan(&stats.Total); err != nil {
		return nil, err
	}

	rows, err := r.db.Conn().Query(`SELECT status, COUNT(*) FROM picks GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.PerStatus[status] = count
	}

	stepRows, err := r.db.Conn().Query(`
		SELECT failed_step, COUNT(*)
		FROM picks
		WHERE failed_step != ''
		GROUP BY failed_step
	`)
	if err != nil {
		return nil, err
	}
	defer stepRows.Close()

	for stepRows.Next() {
		var step string
		var count int
		if err := stepRows.Scan(&step, &count); err != nil {
			return nil, err
		}
		stats.PerStep[step] = count
	}

	return stats, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPick(s scanner) (*models.Pick, error) {
	var p models.Pick
	var finished sql.NullTime
	err := s.Scan(&p.ID, &p.Sequence, &p.StartedAt, &finished, &p.Status, &p.FailedStep, &p.Error,
		&p.Confidence, &p.ClassID, &p.Box.X1, &p.Box.Y1, &p.Box.X2, &p.Box.Y2,
		&p.Base, &p.Shoulder1, &p.Shoulder2, &p.Claw)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		p.FinishedAt = &t
	}
	return &p, nil
}

func nullTime(p *models.Pick) sql.NullTime {
	if p.FinishedAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p.FinishedAt, Valid: true}
}
