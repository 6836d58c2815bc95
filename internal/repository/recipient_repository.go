package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/lumeocrm/campaign-service/internal/model"
)

// RecipientRepositoryInterface defines the recipient-pool reads used by the
// resolver and the preview endpoint.
type RecipientRepositoryInterface interface {
	GetByID(id string) (*model.Recipient, error)
	GetByIDs(ids []string) ([]model.Recipient, error)
	ListByCriteria(criteria model.SegmentCriteria) ([]model.Recipient, error)
	ListAll() ([]model.Recipient, error)
}

type RecipientRepository struct {
	DB *sql.DB
}

const recipientColumns = `id, email, phone, tags, merge_fields`

func scanRecipient(row interface{ Scan(...any) error }) (*model.Recipient, error) {
	var rec model.Recipient
	var tags pq.StringArray
	var mergeFields []byte
	if err := row.Scan(&rec.ID, &rec.Email, &rec.Phone, &tags, &mergeFields); err != nil {
		return nil, err
	}
	rec.Tags = tags
	rec.MergeFields = map[string]string{}
	if len(mergeFields) > 0 {
		if err := json.Unmarshal(mergeFields, &rec.MergeFields); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

func (r *RecipientRepository) GetByID(id string) (*model.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM recipients WHERE id = $1`
	rec, err := scanRecipient(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return rec, nil
}

// GetByIDs fetches the given recipients in the store's natural order. Ids
// that no longer resolve to a record are silently dropped.
func (r *RecipientRepository) GetByIDs(ids []string) ([]model.Recipient, error) {
	if len(ids) == 0 {
		return []model.Recipient{}, nil
	}
	query := `SELECT ` + recipientColumns + ` FROM recipients WHERE id = ANY($1) ORDER BY id`
	rows, err := r.DB.Query(query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := []model.Recipient{}
	for rows.Next() {
		rec, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, *rec)
	}
	return recipients, rows.Err()
}

// ListByCriteria evaluates saved-segment criteria against the whole pool:
// merge-field equality and tag membership, all of which must hold.
func (r *RecipientRepository) ListByCriteria(criteria model.SegmentCriteria) ([]model.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM recipients WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	for field, value := range criteria.FieldEquals {
		query += fmt.Sprintf(" AND merge_fields->>$%d::text = $%d", argPos, argPos+1)
		args = append(args, field, value)
		argPos += 2
	}
	if len(criteria.HasTags) > 0 {
		query += fmt.Sprintf(" AND tags @> $%d::text[]", argPos)
		args = append(args, pq.Array(criteria.HasTags))
		argPos++
	}
	query += " ORDER BY id"

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := []model.Recipient{}
	for rows.Next() {
		rec, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, *rec)
	}
	return recipients, rows.Err()
}

func (r *RecipientRepository) ListAll() ([]model.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM recipients ORDER BY id`
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := []model.Recipient{}
	for rows.Next() {
		rec, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, *rec)
	}
	return recipients, rows.Err()
}

var _ RecipientRepositoryInterface = (*RecipientRepository)(nil)
