package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/lumeocrm/campaign-service/internal/model"
)

type SegmentRepositoryInterface interface {
	Create(s *model.Segment) error
	GetByID(id string) (*model.Segment, error)
	ListAll() ([]model.Segment, error)
}

type SegmentRepository struct {
	DB *sql.DB
}

func (r *SegmentRepository) Create(s *model.Segment) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = time.Now()
	query := `INSERT INTO segments (id, name, criteria, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.DB.Exec(query, s.ID, s.Name, s.Criteria, s.CreatedAt)
	return err
}

func (r *SegmentRepository) GetByID(id string) (*model.Segment, error) {
	query := `SELECT id, name, criteria, created_at FROM segments WHERE id=$1`
	var s model.Segment
	err := r.DB.QueryRow(query, id).Scan(&s.ID, &s.Name, &s.Criteria, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &s, nil
}

func (r *SegmentRepository) ListAll() ([]model.Segment, error) {
	rows, err := r.DB.Query(`SELECT id, name, criteria, created_at FROM segments ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	segments := []model.Segment{}
	for rows.Next() {
		var s model.Segment
		if err := rows.Scan(&s.ID, &s.Name, &s.Criteria, &s.CreatedAt); err != nil {
			return nil, err
		}
		segments = append(segments, s)
	}
	return segments, rows.Err()
}

var _ SegmentRepositoryInterface = (*SegmentRepository)(nil)
