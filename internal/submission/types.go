package submission

import (
	"net/url"
	"strings"
)

// Fields checked by the validator, in the order they are reported missing.
var RequiredFields = []string{"name", "email", "subject", "message"}

// Request is an inbound submission as it arrived on the wire.
type Request struct {
	ContentType string
	Body        []byte
	Query       url.Values
	// Source is the caller's address, when the transport knows it.
	Source string
}

// Raw is the flat field map decoded from a request. Keys are kept as sent;
// values are never trimmed here.
type Raw map[string]string

// Get returns the value stored under key and whether the key was present.
func (r Raw) Get(key string) (string, bool) {
	v, ok := r[key]
	return v, ok
}

// Value returns the value stored under key, or "" when it is absent.
func (r Raw) Value(key string) string {
	return r[key]
}

// Trimmed returns the whitespace-trimmed value for key, or "" when absent.
func (r Raw) Trimmed(key string) string {
	return strings.TrimSpace(r[key])
}

// Cleaned is a validated submission. All fields are trimmed and non-empty.
type Cleaned struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}
