// Package deck assembles flattened fragments into the output document and writes it.
package deck

import "strings"

// DefaultSeparator joins fragments; each one starts at least one new slide.
const DefaultSeparator = "\n\n---\n\n"

// slideBreak is what a slide separator looks like inside the joined text.
const slideBreak = "\n---\n"

// Join concatenates fragment contents with sep.
func Join(contents []string, sep string) string {
	if sep == "" {
		sep = DefaultSeparator
	}
	return strings.Join(contents, sep)
}

// CountSlides counts slide sections in joined text: one plus every separator,
// including the ones authors wrote inside a single sheet. Empty text is one slide.
func CountSlides(joined string) int {
	return 1 + strings.Count(joined, slideBreak)
}
