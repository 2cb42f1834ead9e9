package daemon

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ChangeKind distinguishes structural changes from content edits.
type ChangeKind string

const (
	ChangeManifest ChangeKind = "manifest"
	ChangeFragment ChangeKind = "fragment"
)

// Change is a filesystem event that warrants a rebuild.
type Change struct {
	Path  string
	Kind  ChangeKind
	Label string
}

// Message is the operator-facing log line for the change.
func (c Change) Message() string {
	if c.Kind == ChangeManifest {
		return "Slides have been reordered or renamed."
	}
	return fmt.Sprintf("Contents of slide '%s' has been changed.", c.Label)
}

// Classifier decides which paths are relevant to the deck.
type Classifier struct {
	OutputName   string
	ManifestName string
	FragmentExt  string
	// LabelBase is the directory labels are made relative to.
	LabelBase string
}

// Classify reports whether path should trigger a rebuild.
// Any path ending with the output name is ignored so writing the deck cannot loop.
func (c Classifier) Classify(path string) (Change, bool) {
	if c.OutputName != "" && strings.HasSuffix(path, c.OutputName) {
		return Change{}, false
	}
	base := filepath.Base(path)
	switch {
	case base == c.ManifestName:
		return Change{Path: path, Kind: ChangeManifest, Label: c.label(path)}, true
	case c.FragmentExt != "" && strings.HasSuffix(base, c.FragmentExt):
		return Change{Path: path, Kind: ChangeFragment, Label: c.label(path)}, true
	default:
		return Change{}, false
	}
}

// label turns "chapter/intro.md" into "chapter → intro".
func (c Classifier) label(path string) string {
	rel := path
	if c.LabelBase != "" {
		if r, err := filepath.Rel(c.LabelBase, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	rel = strings.TrimSuffix(filepath.ToSlash(rel), c.FragmentExt)
	return strings.ReplaceAll(rel, "/", " → ")
}
