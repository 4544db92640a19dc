package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-chat-service/internal/domain"
)

// ErrCaseClosed is returned when appending to a case that is no longer open.
var ErrCaseClosed = errors.New("case is closed")

// CaseUnseen is one row of the per-case unseen badge data.
type CaseUnseen struct {
	CaseID string
	Count  int
}

// CaseMessageRepository manages the append-only conversation log.
type CaseMessageRepository interface {
	// Append inserts the message at the next position in the case's log.
	// Appends are serialized per case via a row lock on the owning case,
	// so concurrent appends cannot interleave or reuse a position.
	Append(ctx context.Context, msg *domain.CaseMessage) error
	ListByCase(ctx context.Context, caseID string) ([]domain.CaseMessage, error)
	// MarkSeen flips the viewer-class seen flag on all currently-unseen
	// messages authored by the opposite class. It returns the number of
	// messages flipped and is idempotent.
	MarkSeen(ctx context.Context, caseID string, viewer domain.ActorClass) (int, error)
	// UnseenCounts derives per-case unseen counters from the message log.
	UnseenCounts(ctx context.Context, viewer domain.ActorClass) ([]CaseUnseen, error)
	UnseenByCase(ctx context.Context, caseID string, viewer domain.ActorClass) (int, error)
}

type caseMessageRepository struct {
	pool *pgxpool.Pool
}

// NewCaseMessageRepository builds repository.
func NewCaseMessageRepository(pool *pgxpool.Pool) CaseMessageRepository {
	return &caseMessageRepository{pool: pool}
}

func (r *caseMessageRepository) Append(ctx context.Context, msg *domain.CaseMessage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// The row lock is the per-case serialization point for appends.
	var status domain.CaseStatus
	if err := tx.QueryRow(ctx,
		`SELECT status FROM support_cases WHERE id=$1 FOR UPDATE`, msg.CaseID,
	).Scan(&status); err != nil {
		return err
	}
	if status != domain.CaseStatusOpen {
		return ErrCaseClosed
	}

	const insert = `
        INSERT INTO case_messages (case_id, position, author_class, author_name, author_email, body, sent_at, seen_by_staff, seen_by_customer)
        VALUES ($1, (SELECT COALESCE(MAX(position),0)+1 FROM case_messages WHERE case_id=$1), $2,$3,$4,$5,$6,$7,$8)
        RETURNING id, position, created_at`
	if err := tx.QueryRow(ctx, insert,
		msg.CaseID,
		msg.AuthorClass,
		msg.AuthorName,
		msg.AuthorEmail,
		msg.Body,
		msg.SentAt,
		msg.SeenByStaff,
		msg.SeenByCustomer,
	).Scan(&msg.ID, &msg.Position, &msg.CreatedAt); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE support_cases SET updated_at=NOW() WHERE id=$1`, msg.CaseID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *caseMessageRepository) ListByCase(ctx context.Context, caseID string) ([]domain.CaseMessage, error) {
	const query = `
        SELECT id, case_id, position, author_class, author_name, author_email, body, sent_at, seen_by_staff, seen_by_customer, created_at
        FROM case_messages WHERE case_id=$1 ORDER BY position ASC`
	rows, err := r.pool.Query(ctx, query, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CaseMessage
	for rows.Next() {
		var msg domain.CaseMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.CaseID,
			&msg.Position,
			&msg.AuthorClass,
			&msg.AuthorName,
			&msg.AuthorEmail,
			&msg.Body,
			&msg.SentAt,
			&msg.SeenByStaff,
			&msg.SeenByCustomer,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (r *caseMessageRepository) MarkSeen(ctx context.Context, caseID string, viewer domain.ActorClass) (int, error) {
	query := fmt.Sprintf(`
        UPDATE case_messages SET %s=TRUE
        WHERE case_id=$1 AND author_class=$2 AND %s=FALSE`, seenColumn(viewer), seenColumn(viewer))
	cmd, err := r.pool.Exec(ctx, query, caseID, viewer.Opposite())
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *caseMessageRepository) UnseenCounts(ctx context.Context, viewer domain.ActorClass) ([]CaseUnseen, error) {
	query := fmt.Sprintf(`
        SELECT m.case_id, COUNT(*) FROM case_messages m
        JOIN support_cases c ON c.id = m.case_id
        WHERE m.author_class=$1 AND m.%s=FALSE AND c.status=$2
        GROUP BY m.case_id`, seenColumn(viewer))
	rows, err := r.pool.Query(ctx, query, viewer.Opposite(), domain.CaseStatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CaseUnseen
	for rows.Next() {
		var entry CaseUnseen
		if err := rows.Scan(&entry.CaseID, &entry.Count); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *caseMessageRepository) UnseenByCase(ctx context.Context, caseID string, viewer domain.ActorClass) (int, error) {
	query := fmt.Sprintf(`
        SELECT COUNT(*) FROM case_messages
        WHERE case_id=$1 AND author_class=$2 AND %s=FALSE`, seenColumn(viewer))
	var count int
	if err := r.pool.QueryRow(ctx, query, caseID, viewer.Opposite()).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func seenColumn(viewer domain.ActorClass) string {
	if viewer == domain.ActorClassStaff {
		return "seen_by_staff"
	}
	return "seen_by_customer"
}
