package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportdesk/helpdesk-service/internal/domain"
)

// TicketLogRepository stores append-only audit entries.
type TicketLogRepository interface {
	Create(ctx context.Context, entry *domain.LogEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.LogEntry, error)
}

type ticketLogRepository struct {
	pool *pgxpool.Pool
}

// NewTicketLogRepository builds repository.
func NewTicketLogRepository(pool *pgxpool.Pool) TicketLogRepository {
	return &ticketLogRepository{pool: pool}
}

func (r *ticketLogRepository) Create(ctx context.Context, entry *domain.LogEntry) error {
	details, err := domain.EncodeLogDetails(entry.Details)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO ticket_logs (ticket_id, user_id, action, details)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.UserID,
		entry.Action,
		details,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// ListByTicket returns newest entries first; the reverse-chronological order
// is the audit narrative shown on the ticket detail view.
func (r *ticketLogRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.LogEntry, error) {
	const query = `
        SELECT id, ticket_id, user_id, action, details, created_at
        FROM ticket_logs WHERE ticket_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.LogEntry
	for rows.Next() {
		var entry domain.LogEntry
		var raw []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.UserID,
			&entry.Action,
			&raw,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		details, err := domain.DecodeLogDetails(entry.Action, raw)
		if err != nil {
			return nil, err
		}
		entry.Details = details
		result = append(result, entry)
	}
	return result, rows.Err()
}
