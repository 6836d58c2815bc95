package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/lumeocrm/campaign-service/internal/errors"
	"github.com/lumeocrm/campaign-service/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	Update(c *model.Campaign) error
	Delete(id string) error
	GetByID(id string) (*model.Campaign, error)
	ListCampaigns(offset, limit int, campaignType, status string) ([]*model.Campaign, int, error)
	ListDueScheduled(asOf time.Time) ([]*model.Campaign, error)

	// Run bookkeeping. MarkSending claims the campaign for a single run:
	// it only succeeds when the current status is one of `from`, so two
	// concurrent claims cannot both win. ReleaseSending hands a claim back,
	// and FinishRun only applies while the campaign is still sending, so a
	// status set from another node is never overwritten.
	MarkSending(id string, totalRecipients int, from ...model.Status) (bool, error)
	ReleaseSending(id string, to model.Status) error
	UpdateStatus(id string, status model.Status) error
	UpdateProgress(id string, sentCount int) error
	FinishRun(id string, status model.Status, sentCount int, sentAt *time.Time) (bool, error)

	IncrementOpened(id string) error
	IncrementClicked(id string) error
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, name, type, status, subject_template, body_template,
	sender_name, sender_address, recipient_spec, total_recipients,
	sent_count, opened_count, clicked_count, scheduled_at, sent_at, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.Name, &c.Type, &c.Status, &c.SubjectTemplate, &c.BodyTemplate,
		&c.SenderName, &c.SenderAddress, &c.RecipientSpec, &c.TotalRecipients,
		&c.SentCount, &c.OpenedCount, &c.ClickedCount, &c.ScheduledAt, &c.SentAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(c *model.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = model.StatusDraft
	}
	c.CreatedAt = time.Now()

	query := `
        INSERT INTO campaigns
            (id, name, type, status, subject_template, body_template,
             sender_name, sender_address, recipient_spec, total_recipients,
             scheduled_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `
	_, err := r.DB.Exec(query,
		c.ID, c.Name, c.Type, c.Status, c.SubjectTemplate, c.BodyTemplate,
		c.SenderName, c.SenderAddress, c.RecipientSpec, c.TotalRecipients,
		c.ScheduledAt, c.CreatedAt,
	)
	return err
}

func (r *CampaignRepository) Update(c *model.Campaign) error {
	query := `
        UPDATE campaigns
        SET name=$1, type=$2, subject_template=$3, body_template=$4,
            sender_name=$5, sender_address=$6, recipient_spec=$7,
            total_recipients=$8, scheduled_at=$9, updated_at=NOW()
        WHERE id=$10
    `
	_, err := r.DB.Exec(query,
		c.Name, c.Type, c.SubjectTemplate, c.BodyTemplate,
		c.SenderName, c.SenderAddress, c.RecipientSpec,
		c.TotalRecipients, c.ScheduledAt, c.ID,
	)
	return err
}

func (r *CampaignRepository) Delete(id string) error {
	_, err := r.DB.Exec(`DELETE FROM campaigns WHERE id=$1`, id)
	return err
}

func (r *CampaignRepository) GetByID(id string) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) ListCampaigns(offset, limit int, campaignType, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if campaignType != "" {
		query += fmt.Sprintf(" AND type=$%d", argPos)
		args = append(args, campaignType)
		argPos++
	}
	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	argsCount := []interface{}{}
	argPosCount := 1
	if campaignType != "" {
		countQuery += fmt.Sprintf(" AND type=$%d", argPosCount)
		argsCount = append(argsCount, campaignType)
		argPosCount++
	}
	if status != "" {
		countQuery += fmt.Sprintf(" AND status=$%d", argPosCount)
		argsCount = append(argsCount, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

func (r *CampaignRepository) ListDueScheduled(asOf time.Time) ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + `
        FROM campaigns
        WHERE status=$1 AND scheduled_at IS NOT NULL AND scheduled_at <= $2
        ORDER BY scheduled_at ASC`
	rows, err := r.DB.Query(query, model.StatusScheduled, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	due := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, c)
	}
	return due, rows.Err()
}

// ====================== Run bookkeeping ======================

func (r *CampaignRepository) MarkSending(id string, totalRecipients int, from ...model.Status) (bool, error) {
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}
	query := `
        UPDATE campaigns
        SET status=$1, total_recipients=$2, updated_at=NOW()
        WHERE id=$3 AND status = ANY($4)
    `
	res, err := r.DB.Exec(query, model.StatusSending, totalRecipients, id, pq.Array(statuses))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *CampaignRepository) UpdateStatus(id string, status model.Status) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	_, err := r.DB.Exec(query, status, time.Now(), id)
	return err
}

// UpdateProgress persists the running sent_count once per completed chunk.
// It only applies while the campaign is still in the sending status.
func (r *CampaignRepository) UpdateProgress(id string, sentCount int) error {
	query := `UPDATE campaigns SET sent_count=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	_, err := r.DB.Exec(query, sentCount, id, model.StatusSending)
	return err
}

func (r *CampaignRepository) ReleaseSending(id string, to model.Status) error {
	query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	_, err := r.DB.Exec(query, to, id, model.StatusSending)
	return err
}

func (r *CampaignRepository) FinishRun(id string, status model.Status, sentCount int, sentAt *time.Time) (bool, error) {
	query := `UPDATE campaigns SET status=$1, sent_count=$2, sent_at=$3, updated_at=NOW() WHERE id=$4 AND status=$5`
	res, err := r.DB.Exec(query, status, sentCount, sentAt, id, model.StatusSending)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ====================== Engagement counters ======================

func (r *CampaignRepository) IncrementOpened(id string) error {
	_, err := r.DB.Exec(`UPDATE campaigns SET opened_count = opened_count + 1, updated_at=NOW() WHERE id=$1`, id)
	return err
}

func (r *CampaignRepository) IncrementClicked(id string) error {
	_, err := r.DB.Exec(`UPDATE campaigns SET clicked_count = clicked_count + 1, updated_at=NOW() WHERE id=$1`, id)
	return err
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
