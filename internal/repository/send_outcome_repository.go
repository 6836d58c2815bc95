package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lumeocrm/campaign-service/internal/model"
)

// SendOutcomeRepositoryInterface records per-recipient delivery outcomes.
// Outcomes are written once per completed chunk, never per recipient, and a
// resumed run uses AttemptedIDs to skip recipients it already tried.
type SendOutcomeRepositoryInterface interface {
	RecordBatch(campaignID string, outcomes []model.SendOutcome) error
	AttemptedIDs(campaignID string) (map[string]bool, error)
	Stats(campaignID string) (map[string]int, error)
	DeleteByCampaign(campaignID string) error
}

type SendOutcomeRepository struct {
	DB *sql.DB
}

// RecordBatch inserts a completed chunk's outcomes in a single statement.
func (r *SendOutcomeRepository) RecordBatch(campaignID string, outcomes []model.SendOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	now := time.Now()
	values := make([]string, 0, len(outcomes))
	args := []interface{}{}
	argPos := 1
	for _, o := range outcomes {
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", argPos, argPos+1, argPos+2, argPos+3, argPos+4))
		args = append(args, campaignID, o.RecipientID, o.Status, o.LastError, now)
		argPos += 5
	}

	query := `
        INSERT INTO send_outcomes (campaign_id, recipient_id, status, last_error, created_at)
        VALUES ` + strings.Join(values, ", ") + `
        ON CONFLICT (campaign_id, recipient_id) DO NOTHING
    `
	_, err := r.DB.Exec(query, args...)
	return err
}

func (r *SendOutcomeRepository) AttemptedIDs(campaignID string) (map[string]bool, error) {
	rows, err := r.DB.Query(`SELECT recipient_id FROM send_outcomes WHERE campaign_id=$1`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempted := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		attempted[id] = true
	}
	return attempted, rows.Err()
}

func (r *SendOutcomeRepository) Stats(campaignID string) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM send_outcomes WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		model.OutcomeSent:     0,
		model.OutcomeFailed:   0,
		model.OutcomeDegraded: 0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func (r *SendOutcomeRepository) DeleteByCampaign(campaignID string) error {
	_, err := r.DB.Exec(`DELETE FROM send_outcomes WHERE campaign_id=$1`, campaignID)
	return err
}

var _ SendOutcomeRepositoryInterface = (*SendOutcomeRepository)(nil)
