package deck

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/ulyssesdeck/internal/markdown"
)

// BrokenLink is a local link in the deck that does not resolve on disk.
type BrokenLink struct {
	Source      string
	Kind        markdown.LinkKind
	Destination string
}

// CheckLinks resolves every local link of d against base, the directory the
// deck is written to, and returns the ones pointing at nothing.
func CheckLinks(d Deck, base string) []BrokenLink {
	var broken []BrokenLink
	for _, f := range d.Fragments {
		for _, l := range markdown.ExtractLinks([]byte(f.Content)) {
			if !l.IsLocal() {
				continue
			}
			p := l.LocalPath()
			if !filepath.IsAbs(p) {
				p = filepath.Join(base, filepath.FromSlash(p))
			}
			if _, err := os.Stat(p); err != nil {
				broken = append(broken, BrokenLink{Source: f.Source, Kind: l.Kind, Destination: l.Destination})
			}
		}
	}
	return broken
}
