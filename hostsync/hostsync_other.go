//go:build !unix

package hostsync

import "errors"

// errUnsupported is returned on platforms without a real mmap/mprotect
// pair wired up; differential tests are skipped there rather than
// faked, since a fake would defeat the point of this package.
var errUnsupported = errors.New("hostsync: not implemented on this platform")

func PageSize() int {
	return 4096
}

func New(length int, prot Prot) (*Region, error) {
	return nil, &Error{Op: "mmap", Err: errUnsupported}
}

func (r *Region) Protect(offset, length int, prot Prot) error {
	return &Error{Op: "mprotect", Err: errUnsupported}
}

func (r *Region) Decommit(offset, length int) error {
	return &Error{Op: "munmap", Err: errUnsupported}
}

func (r *Region) Close() error {
	return nil
}
