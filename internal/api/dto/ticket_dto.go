package dto

import "time"

// CreateTicketRequest is the public submission payload.
type CreateTicketRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Title    string `json:"title"`
	Text     string `json:"text"`
}

// CloseTicketRequest carries the closing summary.
type CloseTicketRequest struct {
	Summary string `json:"summary"`
}

// StaffRefResponse is the expanded staff reference on viewed/closed.
type StaffRefResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// TicketViewedResponse mirrors the viewed state block.
type TicketViewedResponse struct {
	Status bool              `json:"status"`
	By     *StaffRefResponse `json:"by"`
	On     *time.Time        `json:"on"`
}

// TicketClosedResponse mirrors the closed state block.
type TicketClosedResponse struct {
	Status  bool              `json:"status"`
	By      *StaffRefResponse `json:"by"`
	On      *time.Time        `json:"on"`
	Summary *string           `json:"summary"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID           string               `json:"id"`
	TicketNumber int64                `json:"ticketNumber"`
	Username     string               `json:"username"`
	Email        string               `json:"email"`
	Title        string               `json:"title"`
	Text         string               `json:"text"`
	SecretKey    string               `json:"secretKey"`
	Viewed       TicketViewedResponse `json:"viewed"`
	Closed       TicketClosedResponse `json:"closed"`
	CreatedAt    time.Time            `json:"createdAt"`
}

// TicketPageResponse is one page of a listing tagged with its filter.
type TicketPageResponse struct {
	Items  []TicketResponse `json:"items"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Page   int              `json:"page"`
	Pages  int              `json:"pages"`
	Filter string           `json:"filter"`
	Param  string           `json:"param,omitempty"`
}

// TicketMutationResponse confirms a create/view/close operation.
type TicketMutationResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Ticket  TicketResponse `json:"ticket"`
}
