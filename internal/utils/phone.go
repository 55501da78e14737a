package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var mobileDigits = regexp.MustCompile(`^010\d{8}$`)

// ErrInvalidPhone is returned for numbers that do not match the
// Korean mobile pattern after formatting characters are stripped.
var ErrInvalidPhone = errors.New("invalid mobile phone number")

// NormalizePhone strips separators and validates a Korean mobile
// number, returning the canonical 010-XXXX-XXXX form. Two inputs that
// differ only in formatting normalize to the same value.
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	d := digits.String()
	if !mobileDigits.MatchString(d) {
		return "", ErrInvalidPhone
	}

	return fmt.Sprintf("%s-%s-%s", d[:3], d[3:7], d[7:]), nil
}

// MaskPhone hides the middle group of a normalized mobile number, for
// payloads that outlive the campaign such as draw audit rows.
func MaskPhone(normalized string) string {
	parts := strings.Split(normalized, "-")
	if len(parts) != 3 {
		return normalized
	}
	return parts[0] + "-****-" + parts[2]
}
