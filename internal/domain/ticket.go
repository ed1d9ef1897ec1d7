package domain

import "time"

// StaffRef is the display-safe projection of a staff member referenced from a
// ticket transition. It is resolved at read time and never owned by Ticket.
type StaffRef struct {
	ID       string
	Username string
}

// TicketViewed records the first (and only) viewed transition.
type TicketViewed struct {
	Status bool
	By     *StaffRef
	On     *time.Time
}

// TicketClosed records the closing transition and its resolution summary.
type TicketClosed struct {
	Status  bool
	By      *StaffRef
	On      *time.Time
	Summary *string
}

// Ticket is the sole aggregate: a support request moving through the
// created -> viewed -> closed lifecycle. SecretKey and TicketNumber are
// immutable once assigned; the pair substitutes for authentication on the
// public lookup path.
type Ticket struct {
	ID           string
	TicketNumber int64
	Username     string
	Email        string
	Title        string
	Text         string
	SecretKey    string
	Viewed       TicketViewed
	Closed       TicketClosed
	CreatedAt    time.Time
}
