package submission

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Minimum lengths, in characters, of the trimmed fields.
const (
	MinNameLength    = 2
	MinSubjectLength = 5
	MinMessageLength = 10
)

// ValidationError carries the reason a submission was rejected. The reason is
// safe to show to the submitter.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Validate checks a raw submission and returns its cleaned form. Checks run in
// a fixed order and the first failure is returned as a *ValidationError.
func Validate(raw Raw) (Cleaned, error) {
	for _, field := range RequiredFields {
		if raw.Trimmed(field) == "" {
			return Cleaned{}, invalid("Missing required field: %s", field)
		}
	}

	cleaned := Cleaned{
		Name:    raw.Trimmed("name"),
		Email:   raw.Trimmed("email"),
		Subject: raw.Trimmed("subject"),
		Message: raw.Trimmed("message"),
	}

	if !ValidEmail(cleaned.Email) {
		return Cleaned{}, invalid("Invalid email format")
	}
	if utf8.RuneCountInString(cleaned.Name) < MinNameLength {
		return Cleaned{}, invalid("Name must be at least %d characters long", MinNameLength)
	}
	if utf8.RuneCountInString(cleaned.Subject) < MinSubjectLength {
		return Cleaned{}, invalid("Subject must be at least %d characters long", MinSubjectLength)
	}
	if utf8.RuneCountInString(cleaned.Message) < MinMessageLength {
		return Cleaned{}, invalid("Message must be at least %d characters long", MinMessageLength)
	}

	return cleaned, nil
}

// ValidEmail reports whether s has the basic local@domain.tld shape.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}
