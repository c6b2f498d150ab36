package utils

import "strings"

func Ptr[T any](v T) *T {
	return &v
}

func OrZero[T comparable](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

// Returns nil on an empty or all whitespace string
func StringOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// NonEmptyLines splits text on newlines, trims each line and drops the blank
// ones. CRLF input is handled since TrimSpace removes the trailing \r.
func NonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := StringOrNil(line); trimmed != nil {
			lines = append(lines, *trimmed)
		}
	}
	return lines
}
