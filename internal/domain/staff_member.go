package domain

import "time"

// StaffMember models a helper permitted to list, view, and close tickets.
type StaffMember struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ref returns the display-safe projection embedded in ticket responses.
func (s *StaffMember) Ref() *StaffRef {
	if s == nil {
		return nil
	}
	return &StaffRef{ID: s.ID, Username: s.Username}
}
