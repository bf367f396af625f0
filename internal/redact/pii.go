// Package redact masks personal data in free text before it is sent to an
// external language model.
package redact

import (
	"regexp"
	"sort"
	"strings"
)

// Kind names a category of personal data
type Kind string

const (
	KindEmail      Kind = "email"
	KindPhone      Kind = "phone"
	KindSSN        Kind = "ssn"
	KindCardNumber Kind = "card_number"
)

// Match is one detected span in the input
type Match struct {
	Kind  Kind
	Value string
	Start int
	End   int
}

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)

	// US formats only: 555-123-4567, 555.123.4567, (555) 123-4567
	phonePattern = regexp.MustCompile(`(?:\(\d{3}\)\s?|\b\d{3}[-.])\d{3}[-.]\d{4}\b`)

	ssnPattern = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)

	// 13 to 19 digits, optionally grouped with spaces or dashes
	cardPattern = regexp.MustCompile(`\b\d(?:[ -]?\d){12,18}\b`)
)

// Find returns every detected span, ordered by position. Overlapping
// detections are resolved in favour of the one that starts first, and the
// longer one when two start together.
func Find(text string) []Match {
	var matches []Match

	collect := func(kind Kind, re *regexp.Regexp, valid func(string) bool) {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			value := text[loc[0]:loc[1]]
			if valid != nil && !valid(value) {
				continue
			}
			matches = append(matches, Match{Kind: kind, Value: value, Start: loc[0], End: loc[1]})
		}
	}

	for _, re := range secretPatterns {
		collect(KindSecret, re, nil)
	}
	collect(KindEmail, emailPattern, nil)
	collect(KindCardNumber, cardPattern, luhnValid)
	collect(KindSSN, ssnPattern, nil)
	collect(KindPhone, phonePattern, nil)

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		return matches[i].End > matches[j].End
	})

	out := matches[:0]
	end := -1
	for _, m := range matches {
		if m.Start < end {
			continue
		}
		out = append(out, m)
		end = m.End
	}
	return out
}

// Contains reports whether text holds any detectable personal data
func Contains(text string) bool {
	return len(Find(text)) > 0
}

// PII replaces every detected span with a placeholder naming its kind.
func PII(text string) string {
	matches := Find(text)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m.Start])
		b.WriteString(placeholder(m.Kind))
		last = m.End
	}
	b.WriteString(text[last:])
	return b.String()
}

func placeholder(kind Kind) string {
	switch kind {
	case KindEmail:
		return "[EMAIL_REDACTED]"
	case KindPhone:
		return "[PHONE_REDACTED]"
	case KindSSN:
		return "[SSN_REDACTED]"
	case KindCardNumber:
		return "[CARD_REDACTED]"
	case KindSecret:
		return "[SECRET_REDACTED]"
	default:
		return "[REDACTED]"
	}
}

// luhnValid checks the Luhn checksum over the digits of s
func luhnValid(s string) bool {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)

	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
