package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/pkg/util"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	seq     int64
	tickets map[string]*domain.Ticket
	staff   map[string]string
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		tickets: make(map[string]*domain.Ticket),
		staff:   map[string]string{"staff-1": "alice", "staff-2": "bob"},
	}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ticket.ID = fmt.Sprintf("tck-%d", r.seq)
	ticket.TicketNumber = r.seq
	ticket.CreatedAt = time.Unix(1700000000+r.seq, 0)
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r.expand(ticket), nil
}

func (r *fakeTicketRepo) GetByNumber(_ context.Context, number int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.TicketNumber == number {
			return r.expand(ticket), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) FindPage(_ context.Context, match *repository.FieldMatch, limit, page int) ([]domain.Ticket, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []domain.Ticket
	for _, ticket := range r.tickets {
		if match != nil && !r.matches(ticket, match) {
			continue
		}
		all = append(all, *r.expand(ticket))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *fakeTicketRepo) MarkViewed(_ context.Context, id, staffID string, on time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok || ticket.Viewed.Status {
		return false, nil
	}
	ticket.Viewed = domain.TicketViewed{Status: true, By: &domain.StaffRef{ID: staffID}, On: &on}
	return true, nil
}

func (r *fakeTicketRepo) MarkClosed(_ context.Context, id, staffID string, on time.Time, summary string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok || !ticket.Viewed.Status || ticket.Closed.Status {
		return false, nil
	}
	ticket.Closed = domain.TicketClosed{Status: true, By: &domain.StaffRef{ID: staffID}, On: &on, Summary: &summary}
	return true, nil
}

func (r *fakeTicketRepo) expand(ticket *domain.Ticket) *domain.Ticket {
	clone := *ticket
	if clone.Viewed.By != nil {
		clone.Viewed.By = &domain.StaffRef{ID: clone.Viewed.By.ID, Username: r.staff[clone.Viewed.By.ID]}
	}
	if clone.Closed.By != nil {
		clone.Closed.By = &domain.StaffRef{ID: clone.Closed.By.ID, Username: r.staff[clone.Closed.By.ID]}
	}
	return &clone
}

func (r *fakeTicketRepo) matches(ticket *domain.Ticket, match *repository.FieldMatch) bool {
	switch match.Column {
	case "username":
		return ticket.Username == match.Value.(string)
	case "email":
		return ticket.Email == match.Value.(string)
	case "title":
		return ticket.Title == match.Value.(string)
	case "ticket_number":
		return ticket.TicketNumber == match.Value.(int64)
	case "viewed_status":
		return ticket.Viewed.Status == match.Value.(bool)
	case "closed_status":
		return ticket.Closed.Status == match.Value.(bool)
	default:
		return false
	}
}

type fakeVerifier struct {
	sessions map[string]string
}

func (v *fakeVerifier) Verify(_ context.Context, token string) (string, error) {
	staffID, ok := v.sessions[token]
	if !ok {
		return "", util.NewInvalidCredential("invalid session token")
	}
	return staffID, nil
}

type sentMail struct {
	To      string
	Subject string
	Preview string
	HTML    string
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *captureMailer) Send(_ context.Context, to, subject, preview, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Preview: preview, HTML: htmlBody})
	return nil
}

func (m *captureMailer) all() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail{}, m.sent...)
}

func setupService(t *testing.T) (*TicketService, *fakeTicketRepo, *captureMailer) {
	t.Helper()
	repo := newFakeTicketRepo()
	verifier := &fakeVerifier{sessions: map[string]string{
		"token-alice": "staff-1",
		"token-bob":   "staff-2",
	}}
	dispatcher := events.NewInMemoryDispatcher()
	mailer := &captureMailer{}
	NewNotificationService(dispatcher, mailer, zap.NewNop()).RegisterHandlers()

	svc := NewTicketService(TicketDependencies{
		TicketRepo: repo,
		Verifier:   verifier,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
	return svc, repo, mailer
}

func validInput() CreateTicketInput {
	return CreateTicketInput{
		Username: "carol",
		Email:    "carol@example.com",
		Title:    "printer on fire",
		Text:     "smoke is coming out of the tray",
	}
}

func TestCreateIssuesSecretKeyAndNumber(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	seenNumbers := map[int64]bool{}
	for i := 0; i < 5; i++ {
		result, err := svc.Create(ctx, validInput())
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		ticket := result.Ticket
		if len(ticket.SecretKey) != 16 {
			t.Fatalf("secret key length = %d, want 16", len(ticket.SecretKey))
		}
		for _, ch := range ticket.SecretKey {
			if !strings.ContainsRune("abcdefghijklmnopqrstuvwxyz0123456789", ch) {
				t.Fatalf("secret key %q contains %q, want lowercase alphanumeric", ticket.SecretKey, ch)
			}
		}
		if seenNumbers[ticket.TicketNumber] {
			t.Fatalf("duplicate ticket number %d", ticket.TicketNumber)
		}
		seenNumbers[ticket.TicketNumber] = true
	}
}

func TestCreateEmptyInput(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.Create(context.Background(), CreateTicketInput{})
	if !util.IsKind(err, util.CodeMissingInput) {
		t.Fatalf("Create(empty) error = %v, want MissingInput", err)
	}
}

func TestCreateValidationMessagesPerField(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.Create(context.Background(), CreateTicketInput{
		Username: "carol",
		Email:    "not-an-email",
	})
	if !util.IsKind(err, util.CodeValidationFailed) {
		t.Fatalf("Create() error = %v, want ValidationFailed", err)
	}
	domainErr := util.ToDomainError(err)
	if len(domainErr.Fields) != 3 {
		t.Fatalf("validation fields = %d, want 3 (email, title, text): %v", len(domainErr.Fields), domainErr.Fields)
	}
	byField := map[string]string{}
	for _, f := range domainErr.Fields {
		byField[f.Field] = f.Message
	}
	for _, field := range []string{"email", "title", "text"} {
		if byField[field] == "" {
			t.Fatalf("missing validation message for %q: %v", field, byField)
		}
	}
}

func TestGetByNumber(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	number := created.Ticket.TicketNumber
	secret := created.Ticket.SecretKey

	ticket, err := svc.GetByNumber(ctx, number, secret)
	if err != nil {
		t.Fatalf("GetByNumber(valid) error = %v", err)
	}
	if ticket.ID != created.Ticket.ID {
		t.Fatalf("GetByNumber() id = %q, want %q", ticket.ID, created.Ticket.ID)
	}

	if _, err := svc.GetByNumber(ctx, number, "wrong-secret-key"); !util.IsKind(err, util.CodeInvalidCredential) {
		t.Fatalf("GetByNumber(wrong key) error = %v, want InvalidCredential", err)
	}
	if _, err := svc.GetByNumber(ctx, number+999, secret); !util.IsKind(err, util.CodeNotFound) {
		t.Fatalf("GetByNumber(wrong number) error = %v, want NotFound", err)
	}
	if _, err := svc.GetByNumber(ctx, 0, secret); !util.IsKind(err, util.CodeMissingInput) {
		t.Fatalf("GetByNumber(no number) error = %v, want MissingInput", err)
	}
	if _, err := svc.GetByNumber(ctx, number, ""); !util.IsKind(err, util.CodeMissingInput) {
		t.Fatalf("GetByNumber(no key) error = %v, want MissingInput", err)
	}
}

func TestGetByIDMissingAndUnknown(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.GetByID(ctx, ""); !util.IsKind(err, util.CodeMissingInput) {
		t.Fatalf("GetByID(empty) error = %v, want MissingInput", err)
	}
	if _, err := svc.GetByID(ctx, "tck-404"); !util.IsKind(err, util.CodeNotFound) {
		t.Fatalf("GetByID(unknown) error = %v, want NotFound", err)
	}
}

func TestMarkViewedTwice(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, validInput())
	id := created.Ticket.ID

	result, err := svc.MarkViewed(ctx, id, "token-alice")
	if err != nil {
		t.Fatalf("MarkViewed(first) error = %v", err)
	}
	if !result.Ticket.Viewed.Status {
		t.Fatalf("viewed status = false after MarkViewed")
	}
	if result.Ticket.Viewed.By == nil || result.Ticket.Viewed.By.Username != "alice" {
		t.Fatalf("viewed by = %+v, want alice", result.Ticket.Viewed.By)
	}

	_, err = svc.MarkViewed(ctx, id, "token-alice")
	if !util.IsKind(err, util.CodeInvalidState) {
		t.Fatalf("MarkViewed(second) error = %v, want InvalidState", err)
	}
}

func TestMarkViewedInvalidToken(t *testing.T) {
	svc, repo, _ := setupService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, validInput())

	_, err := svc.MarkViewed(ctx, created.Ticket.ID, "forged")
	if !util.IsKind(err, util.CodeInvalidCredential) {
		t.Fatalf("MarkViewed(bad token) error = %v, want InvalidCredential", err)
	}
	stored, _ := repo.GetByID(ctx, created.Ticket.ID)
	if stored.Viewed.Status {
		t.Fatalf("ticket was marked viewed despite invalid token")
	}
}

func TestMarkClosedRequiresView(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, validInput())
	id := created.Ticket.ID

	_, err := svc.MarkClosed(ctx, id, "Fixed", "token-bob")
	if !util.IsKind(err, util.CodeInvalidState) {
		t.Fatalf("MarkClosed(unviewed) error = %v, want InvalidState", err)
	}

	if _, err := svc.MarkViewed(ctx, id, "token-alice"); err != nil {
		t.Fatalf("MarkViewed() error = %v", err)
	}

	if _, err := svc.MarkClosed(ctx, id, "", "token-bob"); !util.IsKind(err, util.CodeMissingInput) {
		t.Fatalf("MarkClosed(no summary) error = %v, want MissingInput", err)
	}

	result, err := svc.MarkClosed(ctx, id, "Fixed", "token-bob")
	if err != nil {
		t.Fatalf("MarkClosed() error = %v", err)
	}
	if result.Ticket.Closed.Summary == nil || *result.Ticket.Closed.Summary != "Fixed" {
		t.Fatalf("closed summary = %v, want Fixed", result.Ticket.Closed.Summary)
	}
	if result.Ticket.Closed.By == nil || result.Ticket.Closed.By.Username != "bob" {
		t.Fatalf("closed by = %+v, want bob", result.Ticket.Closed.By)
	}

	_, err = svc.MarkClosed(ctx, id, "again", "token-bob")
	if !util.IsKind(err, util.CodeInvalidState) {
		t.Fatalf("MarkClosed(second) error = %v, want InvalidState", err)
	}
}

func TestGetAllPagination(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	page, err := svc.GetAll(ctx, 0, 0)
	if err != nil {
		t.Fatalf("GetAll(empty) error = %v", err)
	}
	if len(page.Items) != 0 || page.Filter != "none" {
		t.Fatalf("GetAll(empty) = %d items filter %q, want 0 items filter none", len(page.Items), page.Filter)
	}
	if page.Limit != 20 || page.Page != 1 {
		t.Fatalf("GetAll(empty) defaults = limit %d page %d, want 20/1", page.Limit, page.Page)
	}

	for i := 0; i < 5; i++ {
		input := validInput()
		input.Title = fmt.Sprintf("issue %d", i)
		if _, err := svc.Create(ctx, input); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	page, err = svc.GetAll(ctx, 3, 1)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(page.Items) != 3 {
		t.Fatalf("GetAll(limit 3) = %d items, want 3", len(page.Items))
	}
	if page.Total != 5 || page.Pages != 2 {
		t.Fatalf("GetAll() total %d pages %d, want 5/2", page.Total, page.Pages)
	}
	for i := 1; i < len(page.Items); i++ {
		if page.Items[i-1].CreatedAt.Before(page.Items[i].CreatedAt) {
			t.Fatalf("items not sorted by creation time descending")
		}
	}
	if page.Items[0].Title != "issue 4" {
		t.Fatalf("newest ticket first = %q, want issue 4", page.Items[0].Title)
	}
}

func TestGetByFilterEmail(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	matching := validInput()
	matching.Email = "x@y.com"
	if _, err := svc.Create(ctx, matching); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(ctx, validInput()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	page, err := svc.GetByFilter(ctx, "email", "x@y.com", 0, 0)
	if err != nil {
		t.Fatalf("GetByFilter() error = %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Email != "x@y.com" {
		t.Fatalf("GetByFilter(email) = %d items, want exactly the matching ticket", len(page.Items))
	}
	if page.Filter != "email" || page.Param != "x@y.com" {
		t.Fatalf("page tags = %q/%q, want email/x@y.com", page.Filter, page.Param)
	}
}

func TestGetByFilterGuards(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.GetByFilter(ctx, "", "x", 0, 0); !util.IsKind(err, util.CodeMissingInput) {
		t.Fatalf("GetByFilter(no filter) error = %v, want MissingInput", err)
	}
	if _, err := svc.GetByFilter(ctx, "email", "", 0, 0); !util.IsKind(err, util.CodeMissingInput) {
		t.Fatalf("GetByFilter(no param) error = %v, want MissingInput", err)
	}
	// Field names outside the allow-list must never reach the store.
	if _, err := svc.GetByFilter(ctx, "secret_key; DROP TABLE tickets", "x", 0, 0); !util.IsKind(err, util.CodeMissingInput) {
		t.Fatalf("GetByFilter(unknown field) error = %v, want MissingInput", err)
	}
	if _, err := svc.GetByFilter(ctx, "secretKey", "x", 0, 0); !util.IsKind(err, util.CodeMissingInput) {
		t.Fatalf("GetByFilter(secretKey) error = %v, want MissingInput", err)
	}
}

func TestGetByFilterViewedStatus(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	first, _ := svc.Create(ctx, validInput())
	if _, err := svc.Create(ctx, validInput()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.MarkViewed(ctx, first.Ticket.ID, "token-alice"); err != nil {
		t.Fatalf("MarkViewed() error = %v", err)
	}

	page, err := svc.GetByFilter(ctx, "viewed", "true", 0, 0)
	if err != nil {
		t.Fatalf("GetByFilter(viewed) error = %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != first.Ticket.ID {
		t.Fatalf("GetByFilter(viewed=true) = %d items, want the viewed ticket only", len(page.Items))
	}
}

func TestLifecycleNotifications(t *testing.T) {
	svc, _, mailer := setupService(t)
	ctx := context.Background()

	input := validInput()
	input.Email = "a@b.com"
	created, err := svc.Create(ctx, input)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	id := created.Ticket.ID

	if _, err := svc.MarkViewed(ctx, id, "token-alice"); err != nil {
		t.Fatalf("MarkViewed() error = %v", err)
	}
	result, err := svc.MarkClosed(ctx, id, "Fixed", "token-alice")
	if err != nil {
		t.Fatalf("MarkClosed() error = %v", err)
	}

	if !result.Ticket.Viewed.Status || !result.Ticket.Closed.Status {
		t.Fatalf("final state viewed=%v closed=%v, want true/true", result.Ticket.Viewed.Status, result.Ticket.Closed.Status)
	}

	sent := mailer.all()
	if len(sent) != 3 {
		t.Fatalf("emails sent = %d, want 3", len(sent))
	}
	for _, email := range sent {
		if email.To != "a@b.com" {
			t.Fatalf("email recipient = %q, want a@b.com", email.To)
		}
	}

	createdMail := sent[0]
	if !strings.Contains(createdMail.HTML, created.Ticket.SecretKey) {
		t.Fatalf("created email missing secret key")
	}
	if !strings.Contains(createdMail.HTML, fmt.Sprintf("%d", created.Ticket.TicketNumber)) {
		t.Fatalf("created email missing ticket number")
	}

	closedMail := sent[2]
	if !strings.Contains(closedMail.HTML, "Fixed") {
		t.Fatalf("closed email missing summary")
	}
	if !strings.Contains(closedMail.HTML, "alice") {
		t.Fatalf("closed email missing closer username")
	}
}
