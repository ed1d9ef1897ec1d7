package service

import (
	"bytes"
	"context"
	"html/template"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/mail"
)

// NotificationService emails ticket owners on each lifecycle transition. It
// only ever runs after the transition is persisted; a failed send is logged
// and never undoes the state change.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     mail.Mailer
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, mailer mail.Mailer, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		mailer:     mailer,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketViewed, n.handleTicketViewed)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleTicketClosed)
}

var createdTemplate = template.Must(template.New("created").Parse(`<h1>{{.Username}}, your problem will be solved shortly.</h1>
<br>
<h2>A copy of your ticket:</h2>
<br>
<h3>{{.Title}}</h3>
<p>{{.Text}}</p>
<p>Ticket number: {{.TicketNumber}}</p>
<p>Secret key (do not share): {{.SecretKey}}</p>`))

var viewedTemplate = template.Must(template.New("viewed").Parse(`<h1>{{.Username}}, your ticket is being reviewed by a technician.</h1>
<br>
<h2>A copy of your ticket:</h2>
<br>
<h3>{{.Title}}</h3>
<p>{{.Text}}</p>
<p>Ticket number: {{.TicketNumber}}</p>
<p>Secret key (do not share): {{.SecretKey}}</p>`))

var closedTemplate = template.Must(template.New("closed").Parse(`<h1>{{.Username}}, your ticket is now closed and the technician's answer is below.</h1>
<br>
<h2>A copy of your ticket:</h2>
<br>
<h3>{{.Title}}</h3>
<p>{{.Text}}</p>
<p>Ticket number: {{.TicketNumber}}</p>
<p>Secret key (do not share): {{.SecretKey}}</p>
<br>
<h2>Answer to your problem:</h2>
<br>
<h3>Closed by: {{with .Closed.By}}{{.Username}}{{end}}</h3>
<p>Summary of your problem: {{with .Closed.Summary}}{{.}}{{end}}</p>`))

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	return n.send(ctx, event.Ticket, createdTemplate,
		"Ticket created successfully",
		"Your problem will be solved shortly.")
}

func (n *NotificationService) handleTicketViewed(ctx context.Context, event events.Event) error {
	return n.send(ctx, event.Ticket, viewedTemplate,
		"Ticket viewed",
		"Your problem is already being looked at.")
}

func (n *NotificationService) handleTicketClosed(ctx context.Context, event events.Event) error {
	return n.send(ctx, event.Ticket, closedTemplate,
		"Ticket closed",
		"Your problem has been solved.")
}

func (n *NotificationService) send(ctx context.Context, ticket *domain.Ticket, tmpl *template.Template, subject, preview string) error {
	if ticket == nil {
		return nil
	}
	var body bytes.Buffer
	if err := tmpl.Execute(&body, ticket); err != nil {
		n.logger.Error("render notification",
			zap.String("template", tmpl.Name()),
			zap.Int64("ticket_number", ticket.TicketNumber),
			zap.Error(err))
		return err
	}
	if err := n.mailer.Send(ctx, ticket.Email, subject, preview, body.String()); err != nil {
		n.logger.Error("send notification",
			zap.String("to", ticket.Email),
			zap.Int64("ticket_number", ticket.TicketNumber),
			zap.Error(err))
		return err
	}
	return nil
}
