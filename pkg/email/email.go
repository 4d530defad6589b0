// Package email derives presentable member names from email addresses.
// Profiles imported from the legacy member list often carry an address but
// no name; notifications still need something readable.
package email

import (
	"strings"
	"unicode"
)

// DeriveNameFromEmail splits the local part of an address on common
// separators and returns capitalized (given, family) name guesses. The
// family name is empty when the local part has a single segment.
func DeriveNameFromEmail(address string) (string, string) {
	local, _, _ := strings.Cut(address, "@")

	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "Member", ""
	}

	given := capitalize(parts[0])
	family := ""
	if len(parts) > 1 {
		family = capitalize(parts[len(parts)-1])
	}
	return given, family
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
