// Package manifest reads the per-directory ordering manifest of a Ulysses group.
//
// The manifest is a property list with a clustered list of sheet names
// (sheetClusters) and an optional flat list of subgroup directory names
// (childOrder). Only those two keys are read; everything else is ignored.
package manifest

import (
	"os"
	"path/filepath"

	"howett.net/plist"

	ferrors "git.home.luguber.info/inful/ulyssesdeck/internal/foundation/errors"
)

// DefaultName is the filename Ulysses uses for group manifests.
const DefaultName = ".Ulysses-Group.plist"

var (
	// ErrNotFound reports a directory without a manifest. It is not a failure:
	// such directories contribute nothing to the deck.
	ErrNotFound = ferrors.NotFoundError("manifest not found").Build()

	// ErrMalformed reports a manifest that exists but cannot be decoded.
	ErrMalformed = ferrors.ManifestError("malformed manifest").Build()

	// ErrUnreadable reports a manifest that exists but cannot be read.
	ErrUnreadable = ferrors.ManifestError("unreadable manifest").Build()
)

// Manifest is the ordering information of one directory level.
type Manifest struct {
	// Members are sheet names in author order, flattened from sheetClusters.
	Members []string
	// ChildOrder are subgroup directory names, emitted after Members.
	ChildOrder []string
}

// groupFile mirrors the subset of the plist this package understands.
type groupFile struct {
	SheetClusters []any    `plist:"sheetClusters"`
	ChildOrder    []string `plist:"childOrder"`
}

// Reader reads manifests with a fixed filename.
type Reader struct {
	Name string
}

// NewReader returns a Reader for manifests called name (DefaultName if empty).
func NewReader(name string) Reader {
	if name == "" {
		name = DefaultName
	}
	return Reader{Name: name}
}

// Read parses the manifest in dir. It returns ErrNotFound when the directory
// has none and ErrMalformed or ErrUnreadable (with context) for broken ones.
func (r Reader) Read(dir string) (*Manifest, error) {
	path := filepath.Join(dir, r.Name)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound.WithContext("path", path)
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryManifest, ErrUnreadable.Message()).
			Warning().
			WithContext("path", path).
			Build()
	}
	return Parse(data, path)
}

// Parse decodes manifest bytes. path is only used for error context.
func Parse(data []byte, path string) (*Manifest, error) {
	var gf groupFile
	if _, err := plist.Unmarshal(data, &gf); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryManifest, ErrMalformed.Message()).
			Warning().
			WithContext("path", path).
			Build()
	}

	m := &Manifest{
		Members:    flattenNames(gf.SheetClusters, nil),
		ChildOrder: gf.ChildOrder,
	}
	if m.ChildOrder == nil {
		m.ChildOrder = []string{}
	}
	return m, nil
}

// flattenNames collects the strings of an arbitrarily nested list in order.
func flattenNames(items []any, into []string) []string {
	if into == nil {
		into = []string{}
	}
	for _, item := range items {
		switch v := item.(type) {
		case string:
			into = append(into, v)
		case []any:
			into = flattenNames(v, into)
		}
	}
	return into
}
