// Package tags looks up the user tags attached to a file through extended attributes.
package tags

import (
	"bytes"
	"strings"

	"howett.net/plist"
)

// Lookup returns the tags attached to path. A file without tags yields an
// empty slice and no error.
type Lookup interface {
	Tags(path string) ([]string, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(path string) ([]string, error)

// Tags implements Lookup.
func (f LookupFunc) Tags(path string) ([]string, error) { return f(path) }

// None is a Lookup that never finds tags.
var None Lookup = LookupFunc(func(string) ([]string, error) { return nil, nil })

// Hidden reports whether tags contain tag, compared case-insensitively.
func Hidden(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(strings.TrimSpace(t), tag) {
			return true
		}
	}
	return false
}

// Decode parses a raw attribute value. Finder stores a property list of
// "name\ncolor" strings; other tools store a comma separated list.
func Decode(raw []byte) ([]string, error) {
	raw = bytes.TrimRight(raw, "\x00")
	if len(raw) == 0 {
		return nil, nil
	}

	var names []string
	if bytes.HasPrefix(raw, []byte("bplist")) || bytes.HasPrefix(bytes.TrimSpace(raw), []byte("<?xml")) {
		if _, err := plist.Unmarshal(raw, &names); err != nil {
			return nil, err
		}
	} else {
		names = strings.Split(string(raw), ",")
	}

	out := make([]string, 0, len(names))
	for _, n := range names {
		if i := strings.IndexByte(n, '\n'); i >= 0 {
			n = n[:i]
		}
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out, nil
}
