package session

import (
	"fmt"
	"strings"
)

// ParseDigits reads manual entry such as "2378" or "2 3 7 8". Anything that
// is not a digit is ignored; input without a single digit is rejected.
func ParseDigits(s string) ([]int, error) {
	var out []int
	for _, r := range s {
		if r >= '0' && r <= '9' {
			out = append(out, int(r-'0'))
		}
	}
	if len(out) == 0 {
		return nil, ErrNoInput
	}
	return out, nil
}

// FormatDigits spaces digits the way the input field echoes them.
func FormatDigits(s string) string {
	digits, err := ParseDigits(s)
	if err != nil {
		return ""
	}
	parts := make([]string, len(digits))
	for i, d := range digits {
		parts[i] = fmt.Sprint(d)
	}
	return strings.Join(parts, " ")
}
