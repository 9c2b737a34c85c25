package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"complaint_server/core/domain"
	"complaint_server/core/port/out"

	"github.com/jmoiron/sqlx"
)

// ComplaintRepository implements out.ComplaintRepository over Postgres.
type ComplaintRepository struct {
	db *sqlx.DB
}

// NewComplaintRepository creates a new ComplaintRepository.
func NewComplaintRepository(db *sqlx.DB) out.ComplaintRepository {
	return &ComplaintRepository{db: db}
}

const complaintColumns = `id, text, status, sentiment, category, is_spam, ip_location, created_at`

// =============================================================================
// Writes
// =============================================================================

func (r *ComplaintRepository) Create(ctx context.Context, draft *domain.EnrichedDraft) (*domain.Complaint, error) {
	query := `
		INSERT INTO complaints (text, status, sentiment, category, is_spam, ip_location, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING ` + complaintColumns

	var row complaintRow
	err := r.db.GetContext(ctx, &row, query,
		draft.Text, domain.StatusOpen, draft.Sentiment, draft.Category,
		draft.IsSpam, draft.IPLocation,
	)
	if err != nil {
		return nil, fmt.Errorf("create complaint: %w", err)
	}

	return row.toDomain(), nil
}

func (r *ComplaintRepository) UpdateStatus(ctx context.Context, id int64, status domain.ComplaintStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE complaints SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return false, fmt.Errorf("update complaint status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update complaint status: %w", err)
	}
	return affected > 0, nil
}

func (r *ComplaintRepository) UpdateSpam(ctx context.Context, id int64, isSpam bool) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE complaints SET is_spam = $2 WHERE id = $1`, id, isSpam)
	if err != nil {
		return false, fmt.Errorf("update complaint spam flag: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update complaint spam flag: %w", err)
	}
	return affected > 0, nil
}

// =============================================================================
// Reads
// =============================================================================

func (r *ComplaintRepository) GetByID(ctx context.Context, id int64) (*domain.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id = $1`

	var row complaintRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get complaint: %w", err)
	}

	return row.toDomain(), nil
}

func (r *ComplaintRepository) List(ctx context.Context, filter *domain.ComplaintFilter) ([]*domain.Complaint, int, error) {
	conditions := []string{"TRUE"}
	var args []interface{}
	argIdx := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, *filter.Category)
		argIdx++
	}

	if filter.Sentiment != nil {
		conditions = append(conditions, fmt.Sprintf("sentiment = $%d", argIdx))
		args = append(args, *filter.Sentiment)
		argIdx++
	}

	if filter.SinceHours != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= NOW() - $%d * INTERVAL '1 hour'", argIdx))
		args = append(args, *filter.SinceHours)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	// Total reflects the filtered set before pagination, computed
	// independently of the page fetch.
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM complaints WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count complaints: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM complaints
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		complaintColumns, whereClause, argIdx, argIdx+1)
	args = append(args, limit, filter.Offset)

	var rows []complaintRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list complaints: %w", err)
	}

	complaints := make([]*domain.Complaint, len(rows))
	for i, row := range rows {
		complaints[i] = row.toDomain()
	}

	return complaints, total, nil
}

func (r *ComplaintRepository) RecentByCategory(ctx context.Context, category domain.Category, hours int) ([]*domain.Complaint, error) {
	query := `
		SELECT ` + complaintColumns + `
		FROM complaints
		WHERE category = $1
		  AND status = $2
		  AND created_at >= NOW() - $3 * INTERVAL '1 hour'
		ORDER BY created_at DESC`

	var rows []complaintRow
	if err := r.db.SelectContext(ctx, &rows, query, category, domain.StatusOpen, hours); err != nil {
		return nil, fmt.Errorf("list recent complaints by category: %w", err)
	}

	complaints := make([]*domain.Complaint, len(rows))
	for i, row := range rows {
		complaints[i] = row.toDomain()
	}
	return complaints, nil
}

// =============================================================================
// Row Types
// =============================================================================

type complaintRow struct {
	ID         int64          `db:"id"`
	Text       string         `db:"text"`
	Status     string         `db:"status"`
	Sentiment  string         `db:"sentiment"`
	Category   string         `db:"category"`
	IsSpam     sql.NullBool   `db:"is_spam"`
	IPLocation sql.NullString `db:"ip_location"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (r *complaintRow) toDomain() *domain.Complaint {
	complaint := &domain.Complaint{
		ID:        r.ID,
		Text:      r.Text,
		Status:    domain.ComplaintStatus(r.Status),
		Sentiment: domain.Sentiment(r.Sentiment),
		Category:  domain.Category(r.Category),
		CreatedAt: r.CreatedAt,
	}

	if r.IsSpam.Valid {
		complaint.IsSpam = &r.IsSpam.Bool
	}
	if r.IPLocation.Valid {
		complaint.IPLocation = &r.IPLocation.String
	}

	return complaint
}
