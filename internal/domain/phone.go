package domain

import (
	"regexp"
	"strings"
)

// Digits, spaces, dashes, plus and parentheses; 10 to 20 characters.
var phonePattern = regexp.MustCompile(`^[\d\s\-+()]{10,20}$`)

func NormalizePhone(p string) string {
	return strings.TrimSpace(p)
}

func ValidPhone(p string) bool {
	return phonePattern.MatchString(p)
}

// InvalidPhones returns the numbers (as given) that fail validation, in input order.
func InvalidPhones(numbers []string) []string {
	var bad []string
	for _, n := range numbers {
		if !ValidPhone(NormalizePhone(n)) {
			bad = append(bad, n)
		}
	}
	return bad
}
