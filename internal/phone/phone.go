// Package phone normalizes phone numbers to the canonical form used as the
// equality key throughout the system.
package phone

import (
	"strings"
	"unicode"
)

// CountryCode is prepended to local numbers.
const CountryCode = "972"

// Canonicalize reduces an arbitrary phone representation to digits only,
// strips any leading local trunk zeros, and guarantees the country code
// prefix exactly once. It is idempotent: a canonical number passes through
// unchanged.
func Canonicalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := strings.TrimLeft(b.String(), "0")
	if !strings.HasPrefix(digits, CountryCode) {
		digits = CountryCode + digits
	}
	return digits
}

// FromChatID extracts the canonical phone from a provider chat ID such as
// "972521234567@c.us".
func FromChatID(chatID string) string {
	if i := strings.IndexByte(chatID, '@'); i >= 0 {
		chatID = chatID[:i]
	}
	return Canonicalize(chatID)
}

// ToChatID renders a canonical phone as a provider chat ID.
func ToChatID(canonical string) string {
	return canonical + "@c.us"
}
