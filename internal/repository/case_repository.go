package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-chat-service/internal/domain"
)

// CaseFilter captures list parameters for case dashboards.
type CaseFilter struct {
	Status  *domain.CaseStatus
	Channel *domain.Channel
	Limit   int
	Offset  int
}

// CaseRepository encapsulates support case persistence.
type CaseRepository interface {
	Create(ctx context.Context, c *domain.SupportCase) error
	GetByID(ctx context.Context, id string) (*domain.SupportCase, error)
	List(ctx context.Context, filter CaseFilter) ([]domain.SupportCase, error)
	// Claim assigns the supporter only when the case is open and
	// unassigned. It reports whether this call won the claim.
	Claim(ctx context.Context, caseID, supporterID, supporterName string) (bool, error)
	SetSupporterName(ctx context.Context, caseID, supporterName string) error
	// Close transitions OPEN -> CLOSED. It reports whether this call
	// performed the transition; a false return on an existing case means
	// the case was already closed.
	Close(ctx context.Context, caseID, closedBy string, rating *int) (bool, error)
}

type caseRepository struct {
	pool *pgxpool.Pool
}

// NewCaseRepository instantiates repository.
func NewCaseRepository(pool *pgxpool.Pool) CaseRepository {
	return &caseRepository{pool: pool}
}

const caseColumns = `id, opened_by, status, customer_name, customer_email, inquiry_about, inquiry_details,
               supporter_id, supporter_name, rating, closed_by, created_at, updated_at, closed_at`

func (r *caseRepository) Create(ctx context.Context, c *domain.SupportCase) error {
	const query = `
        INSERT INTO support_cases (opened_by, status, customer_name, customer_email, inquiry_about, inquiry_details)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		c.OpenedBy,
		c.Status,
		c.CustomerName,
		c.CustomerEmail,
		c.InquiryAbout,
		c.InquiryDetails,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *caseRepository) GetByID(ctx context.Context, id string) (*domain.SupportCase, error) {
	query := fmt.Sprintf(`SELECT %s FROM support_cases WHERE id=$1`, caseColumns)
	var c domain.SupportCase
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.OpenedBy,
		&c.Status,
		&c.CustomerName,
		&c.CustomerEmail,
		&c.InquiryAbout,
		&c.InquiryDetails,
		&c.SupporterID,
		&c.SupporterName,
		&c.Rating,
		&c.ClosedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *caseRepository) List(ctx context.Context, filter CaseFilter) ([]domain.SupportCase, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Channel != nil {
		if *filter.Channel == domain.ChannelB2C {
			args = append(args, domain.OpenedByClient)
			clauses = append(clauses, fmt.Sprintf("opened_by=$%d", len(args)))
		} else {
			args = append(args, domain.OpenedByClient)
			clauses = append(clauses, fmt.Sprintf("opened_by<>$%d", len(args)))
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM support_cases WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		caseColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCases(rows)
}

func (r *caseRepository) Claim(ctx context.Context, caseID, supporterID, supporterName string) (bool, error) {
	const query = `
        UPDATE support_cases SET supporter_id=$2, supporter_name=$3, updated_at=NOW()
        WHERE id=$1 AND status=$4 AND supporter_id IS NULL`
	cmd, err := r.pool.Exec(ctx, query, caseID, supporterID, supporterName, domain.CaseStatusOpen)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *caseRepository) SetSupporterName(ctx context.Context, caseID, supporterName string) error {
	const query = `UPDATE support_cases SET supporter_name=$2, updated_at=NOW() WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, caseID, supporterName)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *caseRepository) Close(ctx context.Context, caseID, closedBy string, rating *int) (bool, error) {
	const query = `
        UPDATE support_cases SET status=$2, closed_by=$3, rating=$4, closed_at=NOW(), updated_at=NOW()
        WHERE id=$1 AND status=$5`
	cmd, err := r.pool.Exec(ctx, query, caseID, domain.CaseStatusClosed, closedBy, rating, domain.CaseStatusOpen)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func scanCases(rows pgx.Rows) ([]domain.SupportCase, error) {
	var result []domain.SupportCase
	for rows.Next() {
		var c domain.SupportCase
		if err := rows.Scan(
			&c.ID,
			&c.OpenedBy,
			&c.Status,
			&c.CustomerName,
			&c.CustomerEmail,
			&c.InquiryAbout,
			&c.InquiryDetails,
			&c.SupporterID,
			&c.SupporterName,
			&c.Rating,
			&c.ClosedBy,
			&c.CreatedAt,
			&c.UpdatedAt,
			&c.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
