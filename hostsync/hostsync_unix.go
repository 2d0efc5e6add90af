//go:build unix

package hostsync

import "golang.org/x/sys/unix"

// PageSize returns the host's real page size, used by differential
// tests to round bookkeeper ranges to something the kernel will accept.
func PageSize() int {
	return unix.Getpagesize()
}

func toUnixProt(p Prot) int {
	if p == ProtNone {
		return unix.PROT_NONE
	}
	var out int
	if p&ProtRead != 0 {
		out |= unix.PROT_READ
	}
	if p&ProtWrite != 0 {
		out |= unix.PROT_WRITE
	}
	if p&ProtExec != 0 {
		out |= unix.PROT_EXEC
	}
	return out
}

// New creates a new anonymous, private mapping of length bytes with
// the given initial protection. Anonymous mappings are used rather
// than a backing file because the sole purpose of this package is to
// mirror the bookkeeper's page-accounting decisions against the
// kernel's, not to exercise file I/O.
func New(length int, prot Prot) (*Region, error) {
	if length <= 0 {
		return nil, ErrInvalidSize
	}
	data, err := unix.Mmap(-1, 0, length, toUnixProt(prot), unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, &Error{Op: "mmap", Err: err}
	}
	return &Region{data: data, prot: int(prot)}, nil
}

// Protect changes the protection of [offset, offset+length) within
// the region, the same page-aligned granularity avmap.Protect
// requires of its own callers.
func (r *Region) Protect(offset, length int, prot Prot) error {
	if r.data == nil {
		return ErrNotMapped
	}
	if offset < 0 || length <= 0 || offset+length > len(r.data) {
		return ErrInvalidRange
	}
	return unix.Mprotect(r.data[offset:offset+length], toUnixProt(prot))
}

// Decommit unmaps [offset, offset+length) within the region without
// touching the rest of it, mirroring avmap.Window.Unmap's ability to
// carve a hole out of the middle of a larger mapping.
func (r *Region) Decommit(offset, length int) error {
	if r.data == nil {
		return ErrNotMapped
	}
	if offset < 0 || length <= 0 || offset+length > len(r.data) {
		return ErrInvalidRange
	}
	return unix.Munmap(r.data[offset : offset+length])
}

// Close unmaps the region. Calling Close twice is a no-op (unlike
// avmap.Window.Close, which reports ErrClosed on a second call).
func (r *Region) Close() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	return err
}
