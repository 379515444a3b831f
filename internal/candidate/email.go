package candidate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spigell/lumino/internal/failure"
)

const (
	// PlaceholderName is used when no candidate name is known.
	PlaceholderName = "Candidate"
	// PlaceholderEmail marks a missing address. Messages addressed to it are never dispatched.
	PlaceholderEmail = "unknown@example.com"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// EmailMessage is a composed notification ready for delivery.
type EmailMessage struct {
	ToEmail string `json:"to_email" yaml:"to_email" validate:"required,email"`
	Subject string `json:"subject" yaml:"subject" validate:"required"`
	Body    string `json:"body" yaml:"body" validate:"required"`
}

// Validate checks that every field is present and the recipient is an address.
func (m EmailMessage) Validate() error {
	m.Subject = strings.TrimSpace(m.Subject)
	m.Body = strings.TrimSpace(m.Body)
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %w", failure.ErrNotificationGeneration, err)
	}
	return nil
}

// IsPlaceholder reports whether the recipient is the missing-address sentinel.
func (m EmailMessage) IsPlaceholder() bool {
	return IsPlaceholderEmail(m.ToEmail)
}

// IsPlaceholderEmail reports whether addr is empty or the missing-address sentinel.
func IsPlaceholderEmail(addr string) bool {
	addr = strings.TrimSpace(addr)
	return addr == "" || strings.EqualFold(addr, PlaceholderEmail)
}

// ValidEmail reports whether addr parses as an email address.
func ValidEmail(addr string) bool {
	return validate.Var(strings.TrimSpace(addr), "required,email") == nil
}
