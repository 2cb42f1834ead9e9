//go:build darwin || linux || freebsd || netbsd

package tags

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Xattr reads tags from a single extended attribute.
type Xattr struct {
	Attribute string
}

// NewXattr returns a Lookup reading attr.
func NewXattr(attr string) Lookup {
	return Xattr{Attribute: attr}
}

// Tags implements Lookup. Missing attributes and filesystems without xattr
// support report no tags.
func (x Xattr) Tags(path string) ([]string, error) {
	size, err := unix.Getxattr(path, x.Attribute, nil)
	if err != nil {
		if isAbsent(err) {
			return nil, nil
		}
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}

	buf := make([]byte, size)
	n, err := unix.Getxattr(path, x.Attribute, buf)
	if err != nil {
		if isAbsent(err) {
			return nil, nil
		}
		return nil, err
	}
	return Decode(buf[:n])
}

func isAbsent(err error) bool {
	return errors.Is(err, errNoAttr) ||
		errors.Is(err, unix.ENOTSUP) ||
		errors.Is(err, unix.EOPNOTSUPP) ||
		errors.Is(err, unix.ENOENT)
}
