package service

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/spec-kit/helpdesk/pkg/util"
)

const (
	maxTitleLength = 200
	maxTextLength  = 5000
)

// validateTicketInput runs field-level checks on a creation payload and
// returns one (field, message) pair per failing field.
func validateTicketInput(input CreateTicketInput) []util.FieldError {
	var fields []util.FieldError

	if strings.TrimSpace(input.Username) == "" {
		fields = append(fields, util.FieldError{Field: "username", Message: "the username is required"})
	}
	switch email := strings.TrimSpace(input.Email); {
	case email == "":
		fields = append(fields, util.FieldError{Field: "email", Message: "the email is required"})
	default:
		if _, err := mail.ParseAddress(email); err != nil {
			fields = append(fields, util.FieldError{Field: "email", Message: "the email is not valid"})
		}
	}
	switch title := strings.TrimSpace(input.Title); {
	case title == "":
		fields = append(fields, util.FieldError{Field: "title", Message: "the title is required"})
	case len(title) > maxTitleLength:
		fields = append(fields, util.FieldError{Field: "title", Message: fmt.Sprintf("the title must not exceed %d characters", maxTitleLength)})
	}
	switch text := strings.TrimSpace(input.Text); {
	case text == "":
		fields = append(fields, util.FieldError{Field: "text", Message: "the problem description is required"})
	case len(text) > maxTextLength:
		fields = append(fields, util.FieldError{Field: "text", Message: fmt.Sprintf("the problem description must not exceed %d characters", maxTextLength)})
	}

	return fields
}
