package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// FieldMatch restricts a page query to rows where Column equals Value. The
// column name must come from the service allow-list, never from raw input.
type FieldMatch struct {
	Column string
	Value  any
}

// TicketRepository encapsulates ticket persistence. Reads expand the
// viewed/closed staff references into id+username projections.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, ticketNumber int64) (*domain.Ticket, error)
	FindPage(ctx context.Context, match *FieldMatch, limit, page int) ([]domain.Ticket, int64, error)
	MarkViewed(ctx context.Context, id, staffID string, on time.Time) (bool, error)
	MarkClosed(ctx context.Context, id, staffID string, on time.Time, summary string) (bool, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `
        t.id, t.ticket_number, t.username, t.email, t.title, t.ticket_text, t.secret_key,
        t.viewed_status, t.viewed_on, vs.id, vs.username,
        t.closed_status, t.closed_on, t.closed_summary, cs.id, cs.username,
        t.created_at`

const ticketFrom = `
        FROM tickets t
        LEFT JOIN staff_members vs ON vs.id = t.viewed_by_staff_id
        LEFT JOIN staff_members cs ON cs.id = t.closed_by_staff_id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (username, email, title, ticket_text, secret_key)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, ticket_number, created_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Username,
		ticket.Email,
		ticket.Title,
		ticket.Text,
		ticket.SecretKey,
	).Scan(&ticket.ID, &ticket.TicketNumber, &ticket.CreatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT` + ticketColumns + ticketFrom + ` WHERE t.id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, ticketNumber int64) (*domain.Ticket, error) {
	query := `SELECT` + ticketColumns + ticketFrom + ` WHERE t.ticket_number=$1`
	return r.fetchSingle(ctx, query, ticketNumber)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &tickets[0], nil
}

func (r *ticketRepository) FindPage(ctx context.Context, match *FieldMatch, limit, page int) ([]domain.Ticket, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	where := ""
	args := []any{}
	if match != nil {
		args = append(args, match.Value)
		where = fmt.Sprintf(" WHERE t.%s=$1", match.Column)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM tickets t` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT%s%s%s ORDER BY t.created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, ticketFrom, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (r *ticketRepository) MarkViewed(ctx context.Context, id, staffID string, on time.Time) (bool, error) {
	// Conditional update: a concurrent caller that lost the race matches no
	// row and reports the transition as not applied.
	const query = `
        UPDATE tickets SET viewed_status=TRUE, viewed_by_staff_id=$2, viewed_on=$3
        WHERE id=$1 AND viewed_status=FALSE`
	cmd, err := r.pool.Exec(ctx, query, id, staffID, on)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) MarkClosed(ctx context.Context, id, staffID string, on time.Time, summary string) (bool, error) {
	const query = `
        UPDATE tickets SET closed_status=TRUE, closed_by_staff_id=$2, closed_on=$3, closed_summary=$4
        WHERE id=$1 AND viewed_status=TRUE AND closed_status=FALSE`
	cmd, err := r.pool.Exec(ctx, query, id, staffID, on, summary)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var (
			ticket           domain.Ticket
			viewedByID       *string
			viewedByUsername *string
			closedByID       *string
			closedByUsername *string
		)
		if err := rows.Scan(
			&ticket.ID,
			&ticket.TicketNumber,
			&ticket.Username,
			&ticket.Email,
			&ticket.Title,
			&ticket.Text,
			&ticket.SecretKey,
			&ticket.Viewed.Status,
			&ticket.Viewed.On,
			&viewedByID,
			&viewedByUsername,
			&ticket.Closed.Status,
			&ticket.Closed.On,
			&ticket.Closed.Summary,
			&closedByID,
			&closedByUsername,
			&ticket.CreatedAt,
		); err != nil {
			return nil, err
		}
		ticket.Viewed.By = staffRef(viewedByID, viewedByUsername)
		ticket.Closed.By = staffRef(closedByID, closedByUsername)
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func staffRef(id, username *string) *domain.StaffRef {
	if id == nil {
		return nil
	}
	ref := &domain.StaffRef{ID: *id}
	if username != nil {
		ref.Username = *username
	}
	return ref
}
