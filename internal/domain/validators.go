package domain

import (
	"fmt"
	"regexp"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	slugRegex  = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)
)

// ValidateEmail checks if an email address is valid.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateSlug checks a post slug or quest/item identifier.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("identifier is required")
	}
	if len(slug) > 100 {
		return fmt.Errorf("identifier too long: %d characters", len(slug))
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("invalid identifier format: %s", slug)
	}
	return nil
}

// GuardResult is the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Guard   string `json:"guard,omitempty"` // which guard blocked
}
