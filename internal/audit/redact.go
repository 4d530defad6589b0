package audit

import "strings"

const redactedPlaceholder = "[REDACTED]"

// sensitiveKeyFragments marks detail keys whose values must never reach the
// store in cleartext.
var sensitiveKeyFragments = []string{
	"password",
	"passphrase",
	"secret",
	"token",
	"credential",
}

// redactDetail strips password material from opaque payloads before they
// are persisted. Typed detail shapes carry no secret-bearing fields, so
// only OpaqueDetail needs scrubbing.
func redactDetail(d Detail) Detail {
	opaque, ok := d.(OpaqueDetail)
	if !ok {
		return d
	}

	out := make(OpaqueDetail, len(opaque))
	for key, value := range opaque {
		if isSensitiveKey(key) {
			out[key] = redactedPlaceholder
			continue
		}
		out[key] = value
	}
	return out
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, fragment := range sensitiveKeyFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
