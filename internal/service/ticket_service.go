package service

import (
	"context"
	"crypto/subtle"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/pkg/util"
)

// CredentialVerifier resolves an opaque session token to the acting helper
// id, failing closed on any invalid token.
type CredentialVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// TicketService owns the ticket lifecycle rules: creation with secret-key
// issuance, retrieval and filtering, and the viewed/closed transitions.
type TicketService struct {
	tickets    repository.TicketRepository
	verifier   CredentialVerifier
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Verifier   CredentialVerifier
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// CreateTicketInput describes a public ticket submission.
type CreateTicketInput struct {
	Username string
	Email    string
	Title    string
	Text     string
}

// TicketResult wraps a mutated ticket with a confirmation message.
type TicketResult struct {
	Message string
	Ticket  *domain.Ticket
}

// TicketPage is one page of a listing, tagged with the filter that produced
// it so callers can tell a filtered page from an unfiltered one.
type TicketPage struct {
	Items  []domain.Ticket
	Total  int64
	Limit  int
	Page   int
	Pages  int
	Filter string
	Param  string
}

// allowedFilters maps caller-facing filter names to ticket columns. Anything
// outside this map never reaches the store.
var allowedFilters = map[string]string{
	"username":     "username",
	"email":        "email",
	"title":        "title",
	"ticketNumber": "ticket_number",
	"viewed":       "viewed_status",
	"closed":       "closed_status",
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		verifier:   deps.Verifier,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Create validates a submission, issues its secret key, persists it, and
// notifies the owner. Persistence always completes before the notification
// is attempted.
func (s *TicketService) Create(ctx context.Context, input CreateTicketInput) (*TicketResult, error) {
	if input == (CreateTicketInput{}) {
		return nil, util.NewMissingInput("provide the ticket information")
	}

	if fields := validateTicketInput(input); len(fields) > 0 {
		return nil, util.NewValidationFailed(fields)
	}

	secretKey, err := generateSecretKey()
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	ticket := &domain.Ticket{
		Username:  strings.TrimSpace(input.Username),
		Email:     strings.TrimSpace(input.Email),
		Title:     strings.TrimSpace(input.Title),
		Text:      strings.TrimSpace(input.Text),
		SecretKey: secretKey,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, util.NewInternalError(err)
	}

	s.publishEvent(ctx, events.EventTicketCreated, ticket)

	return &TicketResult{
		Message: "ticket created successfully, an email has been sent to your address",
		Ticket:  ticket,
	}, nil
}

// GetByID returns a ticket with its staff references expanded.
func (s *TicketService) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if id == "" {
		return nil, util.NewMissingInput("provide the ticket id")
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, util.NewNotFound("no ticket exists with that id")
		}
		return nil, util.NewInternalError(err)
	}
	return ticket, nil
}

// GetByNumber is the only retrieval path without helper authentication;
// knowing both the ticket number and the secret key is the authorization
// proof.
func (s *TicketService) GetByNumber(ctx context.Context, ticketNumber int64, secretKey string) (*domain.Ticket, error) {
	if ticketNumber <= 0 {
		return nil, util.NewMissingInput("provide the ticket number")
	}
	if secretKey == "" {
		return nil, util.NewMissingInput("provide the secret key")
	}
	ticket, err := s.tickets.GetByNumber(ctx, ticketNumber)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, util.NewNotFound("no ticket exists with that number")
		}
		return nil, util.NewInternalError(err)
	}
	if subtle.ConstantTimeCompare([]byte(ticket.SecretKey), []byte(secretKey)) != 1 {
		return nil, util.NewInvalidCredential("the secret key is not valid")
	}
	return ticket, nil
}

// GetAll returns a page of all tickets, newest first. Zero or negative
// limit/page mean "not supplied" and take the defaults.
func (s *TicketService) GetAll(ctx context.Context, limit, page int) (*TicketPage, error) {
	limit, page = normalizePagination(limit, page)
	items, total, err := s.tickets.FindPage(ctx, nil, limit, page)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	return newTicketPage(items, total, limit, page, "none", ""), nil
}

// GetByFilter behaves as GetAll restricted to tickets where the named field
// equals param. Filter names are constrained to the allow-list.
func (s *TicketService) GetByFilter(ctx context.Context, filter, param string, limit, page int) (*TicketPage, error) {
	if filter == "" || param == "" {
		return nil, util.NewMissingInput("provide the filter and the parameter")
	}
	column, ok := allowedFilters[filter]
	if !ok {
		return nil, util.NewMissingInput("tickets cannot be filtered by that field")
	}

	value, err := filterValue(filter, param)
	if err != nil {
		return nil, err
	}

	limit, page = normalizePagination(limit, page)
	items, total, err := s.tickets.FindPage(ctx, &repository.FieldMatch{Column: column, Value: value}, limit, page)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	return newTicketPage(items, total, limit, page, filter, param), nil
}

// MarkViewed applies the first lifecycle transition. The underlying update
// is conditional on the ticket not yet being viewed, so concurrent callers
// cannot both succeed.
func (s *TicketService) MarkViewed(ctx context.Context, id, sessionToken string) (*TicketResult, error) {
	if id == "" {
		return nil, util.NewMissingInput("provide the ticket id")
	}

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, util.NewNotFound("no ticket exists with that id")
		}
		return nil, util.NewInternalError(err)
	}
	if ticket.Viewed.Status {
		return nil, util.NewInvalidState("that ticket was already marked as viewed")
	}

	staffID, err := s.verifier.Verify(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	applied, err := s.tickets.MarkViewed(ctx, id, staffID, time.Now())
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	if !applied {
		return nil, util.NewInvalidState("that ticket was already marked as viewed")
	}

	ticket, err = s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	s.publishEvent(ctx, events.EventTicketViewed, ticket)

	return &TicketResult{Message: "ticket marked as viewed", Ticket: ticket}, nil
}

// MarkClosed applies the final transition. A ticket must be viewed before it
// can close, and a closed ticket never reopens.
func (s *TicketService) MarkClosed(ctx context.Context, id, summary, sessionToken string) (*TicketResult, error) {
	if id == "" {
		return nil, util.NewMissingInput("provide the ticket id")
	}
	if strings.TrimSpace(summary) == "" {
		return nil, util.NewMissingInput("provide the problem summary")
	}

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, util.NewNotFound("no ticket exists with that id")
		}
		return nil, util.NewInternalError(err)
	}
	if !ticket.Viewed.Status {
		return nil, util.NewInvalidState("the ticket must be marked as viewed first")
	}
	if ticket.Closed.Status {
		return nil, util.NewInvalidState("that ticket was already marked as closed")
	}

	staffID, err := s.verifier.Verify(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	applied, err := s.tickets.MarkClosed(ctx, id, staffID, time.Now(), summary)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	if !applied {
		return nil, util.NewInvalidState("that ticket was already marked as closed")
	}

	ticket, err = s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	s.publishEvent(ctx, events.EventTicketClosed, ticket)

	return &TicketResult{Message: "ticket closed successfully", Ticket: ticket}, nil
}

func (s *TicketService) publishEvent(ctx context.Context, eventType events.EventType, ticket *domain.Ticket) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Ticket:    ticket,
		Timestamp: time.Now(),
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Error("publish event", zap.String("type", string(eventType)), zap.Error(err))
	}
}

func normalizePagination(limit, page int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	return limit, page
}

func newTicketPage(items []domain.Ticket, total int64, limit, page int, filter, param string) *TicketPage {
	if items == nil {
		items = []domain.Ticket{}
	}
	pages := int((total + int64(limit) - 1) / int64(limit))
	return &TicketPage{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Page:   page,
		Pages:  pages,
		Filter: filter,
		Param:  param,
	}
}

func filterValue(filter, param string) (any, error) {
	switch filter {
	case "ticketNumber":
		n, err := strconv.ParseInt(param, 10, 64)
		if err != nil {
			return nil, util.NewMissingInput("the ticket number must be numeric")
		}
		return n, nil
	case "viewed", "closed":
		b, err := strconv.ParseBool(param)
		if err != nil {
			return nil, util.NewMissingInput("the parameter must be true or false")
		}
		return b, nil
	default:
		return param, nil
	}
}
