package textutil

import (
	"regexp"
	"slices"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeSpace trims s and collapses runs of whitespace into one space.
func NormalizeSpace(s string) string {
	s = strings.Trim(s, " \n\t\r")
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// NormalizeKey is used to group values that only differ in case or spacing,
// ex. email addresses.
func NormalizeKey(s string) string {
	return strings.ToLower(NormalizeSpace(s))
}

// placeholders are values eventbrite exports in place of withheld data.
var placeholders = []string{"", "info requested"}

func IsPlaceholder(s string) bool {
	return slices.Contains(placeholders, NormalizeKey(s))
}
