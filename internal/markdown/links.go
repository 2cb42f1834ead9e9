package markdown

import (
	"net/url"
	"strings"
)

type LinkKind string

const (
	LinkKindInline              LinkKind = "inline"
	LinkKindImage               LinkKind = "image"
	LinkKindAuto                LinkKind = "auto"
	LinkKindReferenceDefinition LinkKind = "reference_definition"
)

type Link struct {
	Kind        LinkKind
	Destination string
}

// IsLocal reports whether the link points at a file path rather than a URL,
// an in-page anchor or a mail address.
func (l Link) IsLocal() bool {
	d := strings.TrimSpace(l.Destination)
	if d == "" || strings.HasPrefix(d, "#") || strings.HasPrefix(d, "//") {
		return false
	}
	u, err := url.Parse(d)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == ""
}

// LocalPath returns the unescaped path of a local link without query or fragment.
func (l Link) LocalPath() string {
	d := strings.TrimSpace(l.Destination)
	if i := strings.IndexAny(d, "?#"); i >= 0 {
		d = d[:i]
	}
	if p, err := url.PathUnescape(d); err == nil {
		return p
	}
	return d
}
