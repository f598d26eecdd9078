package core

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ErrValidation is the parent of every error that maps to a 400 response.
var ErrValidation = errors.New("validation error")

var (
	ErrMissingParameters = fmt.Errorf("%w: Missing parameters", ErrValidation)
	ErrInvalidDateField  = fmt.Errorf("%w: Invalid dateField", ErrValidation)
	ErrInvalidDate       = fmt.Errorf("%w: Invalid date", ErrValidation)
	ErrInvalidProduct    = fmt.Errorf("%w: Invalid product", ErrValidation)
)

// Message strips the validation prefix for user-facing responses.
func Message(err error) string {
	msg := err.Error()
	prefix := ErrValidation.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}

var gtinRe = regexp.MustCompile(`^046[0-9]{11}$`)

// ValidateGTIN checks the product GTIN format: 14 digits starting with 046.
func ValidateGTIN(gtin string) error {
	if !gtinRe.MatchString(gtin) {
		return fmt.Errorf("%w: gtin %q must be 14 digits starting with 046", ErrInvalidProduct, gtin)
	}
	return nil
}

const dateLayout = "2006-01-02"

// ValidateRequest rejects a request before any database work happens.
func ValidateRequest(conn *ConnectionDescriptor, f QueryFilter) error {
	if conn.IsZero() {
		return ErrMissingParameters
	}
	return ValidateFilter(f)
}

// ValidateFilter checks the filter alone, for callers that never connect.
func ValidateFilter(f QueryFilter) error {
	if f.StartDate == "" || f.DateField == "" {
		return ErrMissingParameters
	}
	if !f.DateField.Valid() {
		return ErrInvalidDateField
	}
	if _, err := time.Parse(dateLayout, f.StartDate); err != nil {
		return fmt.Errorf("%w: startDate %q", ErrInvalidDate, f.StartDate)
	}
	if f.HasEndDate() {
		if _, err := time.Parse(dateLayout, *f.EndDate); err != nil {
			return fmt.Errorf("%w: endDate %q", ErrInvalidDate, *f.EndDate)
		}
	}
	return nil
}
