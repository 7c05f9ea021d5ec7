// Package barcode normalizes and matches the EAN-13 barcode values scanned
// during an audit against the 11-digit payload carried on expected items.
package barcode

import (
	"strings"
	"unicode"
)

// Normalize strips all whitespace from a raw scanned value. A scanner can
// emit leading/trailing or embedded whitespace depending on firmware; every
// comparison in the audit core runs against the normalized form.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Payload11 extracts the 11-digit item payload a barcode carries, tolerating
// the three lengths a scanner can hand back: the full 13-digit EAN (digit
// 0 is a packaging/format prefix, digit 12 is the check digit), the 12-digit
// form some scanners emit without the check digit, and the bare 11-digit
// payload. Any non-digit value or other length has no payload.
func Payload11(normalized string) (string, bool) {
	if !isDigits(normalized) {
		return "", false
	}
	switch len(normalized) {
	case 13:
		return normalized[1:12], true
	case 12:
		return normalized[:11], true
	case 11:
		return normalized, true
	default:
		return "", false
	}
}

// Matches reports whether a scanned barcode value identifies the same item
// as a stored one. An exact match always counts; otherwise the scanned
// value's 11-digit payload must match the digits 1:12 of a stored 13-digit
// EAN (stored values shorter than 13 digits never match by payload).
func Matches(scanned, stored string) bool {
	if stored == scanned {
		return true
	}
	payload, ok := Payload11(scanned)
	if !ok {
		return false
	}
	if !isDigits(stored) || len(stored) != 13 {
		return false
	}
	return stored[1:12] == payload
}

// CheckDigit computes the EAN-13 check digit for an 12-digit payload using
// the standard odd/even weighting (odd positions weight 1, even weight 3).
func CheckDigit(digits12 string) (int, bool) {
	if !isDigits(digits12) || len(digits12) != 12 {
		return 0, false
	}
	var sumOdd, sumEven int
	for i, r := range digits12 {
		d := int(r - '0')
		if i%2 == 0 {
			sumOdd += d
		} else {
			sumEven += d
		}
	}
	total := sumOdd + 3*sumEven
	return (10 - (total % 10)) % 10, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
