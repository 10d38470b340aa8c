package submission

import (
	"errors"
	"testing"
)

func validRaw() Raw {
	return Raw{
		"name":    "  Jo Ann ",
		"email":   " jo@example.com ",
		"subject": "Hello there",
		"message": "This is a test message.",
	}
}

func TestValidateTrimsFields(t *testing.T) {
	cleaned, err := Validate(validRaw())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := Cleaned{
		Name:    "Jo Ann",
		Email:   "jo@example.com",
		Subject: "Hello there",
		Message: "This is a test message.",
	}
	if cleaned != want {
		t.Errorf("Expected %+v, got %+v", want, cleaned)
	}
}

func TestValidateReasons(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(Raw)
		reason string
	}{
		{"missing name", func(r Raw) { delete(r, "name") }, "Missing required field: name"},
		{"blank name", func(r Raw) { r["name"] = "   " }, "Missing required field: name"},
		{"missing email and subject", func(r Raw) { delete(r, "subject"); delete(r, "email") }, "Missing required field: email"},
		{"missing message", func(r Raw) { r["message"] = "" }, "Missing required field: message"},
		{"double at", func(r Raw) { r["email"] = "bob@@x" }, "Invalid email format"},
		{"no tld", func(r Raw) { r["email"] = "bob@example" }, "Invalid email format"},
		{"inner space", func(r Raw) { r["email"] = "bo b@example.com" }, "Invalid email format"},
		{"short name", func(r Raw) { r["name"] = " J " }, "Name must be at least 2 characters long"},
		{"short subject", func(r Raw) { r["subject"] = "Hi" }, "Subject must be at least 5 characters long"},
		{"short message", func(r Raw) { r["message"] = "too short" }, "Message must be at least 10 characters long"},
		{"email checked before lengths", func(r Raw) { r["email"] = "nope"; r["name"] = "J" }, "Invalid email format"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := validRaw()
			tc.mutate(raw)

			_, err := Validate(raw)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected *ValidationError, got %v", err)
			}
			if verr.Reason != tc.reason {
				t.Errorf("Expected reason %q, got %q", tc.reason, verr.Reason)
			}
		})
	}
}

func TestValidateCountsCharactersNotBytes(t *testing.T) {
	raw := validRaw()
	raw["name"] = "李雷"

	cleaned, err := Validate(raw)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cleaned.Name != "李雷" {
		t.Errorf("Expected name to be kept, got %q", cleaned.Name)
	}
}

func TestValidEmail(t *testing.T) {
	cases := map[string]bool{
		"bob@x.com":           true,
		"first.last@sub.d.io": true,
		"bob@@x":              false,
		"bob@x":               false,
		"@x.com":              false,
		"bob@x.":              false,
		"":                    false,
	}
	for input, want := range cases {
		if got := ValidEmail(input); got != want {
			t.Errorf("ValidEmail(%q): expected %v, got %v", input, want, got)
		}
	}
}

func TestIsSpam(t *testing.T) {
	cases := []struct {
		name  string
		raw   Raw
		field string
		want  bool
	}{
		{"absent", Raw{"name": "Jo"}, "website", false},
		{"empty", Raw{"website": ""}, "website", false},
		{"whitespace", Raw{"website": "  \t"}, "website", false},
		{"filled", Raw{"website": "http://spam.example"}, "website", true},
		{"custom field", Raw{"fax": "123"}, "fax", true},
		{"other field ignored", Raw{"website": "x"}, "fax", false},
		{"no honeypot configured", Raw{"website": "x"}, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsSpam(tc.raw, tc.field); got != tc.want {
				t.Errorf("Expected %v, got %v", tc.want, got)
			}
		})
	}
}
