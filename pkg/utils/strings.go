package utils

import (
	"strings"

	"golang.org/x/text/width"
)

// NormalizeIdentifier canonicalizes a scanned product identifier.
// Full-width characters are folded to their narrow forms, and spaces and
// hyphens that scanners or people insert between digit groups are removed.
func NormalizeIdentifier(id string) string {
	id = width.Narrow.String(strings.TrimSpace(id))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '\u00a0':
			return -1
		}
		return r
	}, id)
}
