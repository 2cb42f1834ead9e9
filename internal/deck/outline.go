package deck

import (
	"path/filepath"

	"git.home.luguber.info/inful/ulyssesdeck/internal/sheet"
)

// OutlineRow describes one fragment's place in the deck.
type OutlineRow struct {
	Position   int
	Source     string
	Kind       sheet.Kind
	Slides     int
	FirstSlide int
}

// Outline lists the fragments of d with sources relative to root.
func Outline(d Deck, root string) []OutlineRow {
	rows := make([]OutlineRow, 0, len(d.Fragments))
	next := 1
	for i, f := range d.Fragments {
		src := f.Source
		if rel, err := filepath.Rel(root, f.Source); err == nil {
			src = rel
		}
		n := CountSlides(f.Content)
		rows = append(rows, OutlineRow{
			Position:   i + 1,
			Source:     filepath.ToSlash(src),
			Kind:       f.Kind,
			Slides:     n,
			FirstSlide: next,
		})
		next += n
	}
	return rows
}
