package middleware

import (
	"errors"
	"strings"
	"unicode"
)

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// ValidatePhone checks that a phone number carries a plausible number of
// digits. Formatting characters are tolerated; canonicalization happens
// downstream.
func ValidatePhone(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("phone number is required")
	}

	digits := 0
	for _, r := range raw {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' || r == '-' || r == ' ' || r == '(' || r == ')' || r == '.':
			// formatting, ignored
		default:
			return errors.New("phone number contains invalid characters")
		}
	}

	if digits < minPhoneDigits || digits > maxPhoneDigits {
		return errors.New("phone number must contain 7 to 15 digits")
	}
	return nil
}

// ValidateMessageContent checks outbound message content limits.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("message content is required")
	}
	if len(content) > 4096 {
		return errors.New("message content exceeds maximum length")
	}
	return nil
}
