//go:build darwin || freebsd || netbsd

package tags

import "golang.org/x/sys/unix"

const errNoAttr = unix.ENOATTR
