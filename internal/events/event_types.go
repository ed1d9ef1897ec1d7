package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket_created"
	EventTicketViewed  EventType = "ticket_viewed"
	EventTicketClosed  EventType = "ticket_closed"
)

// Event represents a lifecycle event emitted by the ticket service. The
// ticket snapshot is taken after persistence, with staff references already
// expanded, so handlers need no further reads.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Ticket    *domain.Ticket `json:"ticket"`
	Timestamp time.Time      `json:"timestamp"`
}
