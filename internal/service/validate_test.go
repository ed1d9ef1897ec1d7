package service

import (
	"strings"
	"testing"
)

func TestValidateTicketInput(t *testing.T) {
	tests := []struct {
		name       string
		input      CreateTicketInput
		wantFields []string
	}{
		{
			name: "valid",
			input: CreateTicketInput{
				Username: "carol",
				Email:    "carol@example.com",
				Title:    "broken keyboard",
				Text:     "keys are missing",
			},
		},
		{
			name:       "all missing",
			input:      CreateTicketInput{},
			wantFields: []string{"username", "email", "title", "text"},
		},
		{
			name: "bad email",
			input: CreateTicketInput{
				Username: "carol",
				Email:    "not-an-address",
				Title:    "t",
				Text:     "x",
			},
			wantFields: []string{"email"},
		},
		{
			name: "whitespace only counts as missing",
			input: CreateTicketInput{
				Username: "   ",
				Email:    "carol@example.com",
				Title:    "t",
				Text:     "x",
			},
			wantFields: []string{"username"},
		},
		{
			name: "title too long",
			input: CreateTicketInput{
				Username: "carol",
				Email:    "carol@example.com",
				Title:    strings.Repeat("a", maxTitleLength+1),
				Text:     "x",
			},
			wantFields: []string{"title"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := validateTicketInput(tt.input)
			if len(fields) != len(tt.wantFields) {
				t.Fatalf("validateTicketInput() = %v, want fields %v", fields, tt.wantFields)
			}
			for i, want := range tt.wantFields {
				if fields[i].Field != want {
					t.Fatalf("field[%d] = %q, want %q", i, fields[i].Field, want)
				}
				if fields[i].Message == "" {
					t.Fatalf("field[%d] has empty message", i)
				}
			}
		})
	}
}
