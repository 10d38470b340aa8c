package submission

// DefaultHoneypotField is the hidden form field used when none is configured.
const DefaultHoneypotField = "website"

// IsSpam reports whether the honeypot field was filled in. Real visitors never
// see the field, so any non-blank value marks the submission as automated.
func IsSpam(raw Raw, honeypotField string) bool {
	if honeypotField == "" {
		return false
	}
	if _, ok := raw.Get(honeypotField); !ok {
		return false
	}
	return raw.Trimmed(honeypotField) != ""
}
