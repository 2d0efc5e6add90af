package avmap

import "math/bits"

// Window is a fixed virtual-address range the caller wants tracked:
// immutable base, length, and page size, plus the address-space table
// that records what is currently mapped inside it. A Window performs
// no real mapping and touches no page tables; it is the bookkeeping a
// loader or syscall emulator consults before calling the host's mmap.
//
// A Window is not safe for concurrent use. The owner serialises every
// call; concurrent readers are fine only if the owner guarantees no
// writer overlaps them.
type Window struct {
	basePg       uint64
	lenPg        uint64
	pageSize     uint64
	log2PageSize uint
	closed       bool
	t            *table
}

// NewWindow creates a Window over [base, base+length) with the given
// page size, which must be a power of two within [MinPageSize,
// MaxPageSize]. base and length must already be page-aligned.
func NewWindow(base, length, pageSize uint64) (*Window, error) {
	if pageSize < MinPageSize || pageSize > MaxPageSize || pageSize&(pageSize-1) != 0 {
		return nil, NewError(ErrInvalidArgs)
	}
	if length == 0 || base%pageSize != 0 || length%pageSize != 0 {
		return nil, NewError(ErrInvalidArgs)
	}

	log2 := uint(bits.TrailingZeros64(pageSize))
	basePg := base >> log2
	lenPg := length >> log2

	t, err := newTable(basePg, lenPg)
	if err != nil {
		return nil, err
	}

	return &Window{
		basePg:       basePg,
		lenPg:        lenPg,
		pageSize:     pageSize,
		log2PageSize: log2,
		t:            t,
	}, nil
}

// Close marks the Window unusable. It returns ErrClosed if already closed.
func (w *Window) Close() error {
	if w.closed {
		return NewError(ErrClosed)
	}
	w.closed = true
	return nil
}

func (w *Window) pageOf(addr uint64) uint64    { return addr >> w.log2PageSize }
func (w *Window) bytesOf(pages uint64) uint64  { return pages << w.log2PageSize }
func (w *Window) ceilPages(length uint64) uint64 {
	return (length + w.pageSize - 1) >> w.log2PageSize
}

// validate applies R1 (alignment) and R2 (windowed) to a byte address
// and length, returning the equivalent page-unit range.
func (w *Window) validate(addr, length uint64) (startPg, lenPg uint64, err error) {
	if length == 0 {
		return 0, 0, NewError(ErrInvalidArgs)
	}
	if addr%w.pageSize != 0 {
		return 0, 0, NewError(ErrInvalidArgs)
	}
	lenPg = w.ceilPages(length)
	startPg = w.pageOf(addr)
	if startPg < w.basePg || startPg+lenPg > w.basePg+w.lenPg {
		return 0, 0, NewError(ErrInvalidArgs)
	}
	return startPg, lenPg, nil
}

// MapAnywhere finds a free range of at least length bytes, maps it
// with the given protection, flags, fd, and offset, and returns its
// base address. It returns ErrAddr with a non-nil error on failure.
func (w *Window) MapAnywhere(length uint64, prot Prot, flags Flags, fd int, offset int64) (uint64, error) {
	if w.closed {
		return ErrAddr, NewError(ErrClosed)
	}
	if length == 0 {
		return ErrAddr, NewError(ErrInvalidArgs)
	}
	lenPg := w.ceilPages(length)

	startPg, err := w.t.mapAnywhere(lenPg, Info{Prot: prot, Flags: flags, FD: fd, Offset: offset}, w.pageSize)
	if err != nil {
		return ErrAddr, err
	}
	return w.bytesOf(startPg), nil
}

// MapAt creates a mapping at exactly addr, either inside a single free
// region or by overwriting allocated regions it fully overlaps. A
// request straddling both free and allocated territory fails with
// ErrInvalidArgs. cb, if non-nil, is invoked once per affected
// sub-range after the tables reflect the new state.
func (w *Window) MapAt(addr, length uint64, prot Prot, flags Flags, fd int, offset int64, cb UpdateFunc) (uint64, error) {
	if w.closed {
		return ErrAddr, NewError(ErrClosed)
	}
	startPg, lenPg, err := w.validate(addr, length)
	if err != nil {
		return ErrAddr, err
	}

	freeOverlaps := w.t.free.CountOverlaps(startPg, lenPg)
	allocOverlaps := w.t.alloc.CountOverlaps(startPg, lenPg)

	switch {
	case freeOverlaps > 0 && allocOverlaps > 0:
		return ErrAddr, NewError(ErrInvalidArgs)
	case freeOverlaps > 0:
		info := Info{Prot: prot, Flags: flags, FD: fd, Offset: offset}
		if err := w.t.mapAtFreeHole(startPg, lenPg, info, w.pageSize); err != nil {
			return ErrAddr, err
		}
		if cb != nil {
			cb(addr, w.bytesOf(lenPg), Info{
				MappingBase: addr,
				MappingLen:  w.bytesOf(lenPg),
				Prot:        prot,
				Flags:       flags,
				FD:          fd,
				Offset:      offset,
			})
		}
		return addr, nil
	case allocOverlaps > 0:
		info := Info{
			MappingBase: addr,
			MappingLen:  w.bytesOf(lenPg),
			Prot:        prot,
			Flags:       flags,
			FD:          fd,
			Offset:      offset,
		}
		if err := w.t.mapAtOverwrite(startPg, lenPg, info, allocOverlaps, cb, w.pageSize); err != nil {
			return ErrAddr, err
		}
		return addr, nil
	default:
		return ErrAddr, NewError(ErrCorrupted)
	}
}

// Unmap releases [addr, addr+length) back to the free set, merging
// with neighbouring free ranges. Pages already free within the range
// are skipped silently. It fails with ErrNotMapped if the range
// overlaps no allocated page at all.
func (w *Window) Unmap(addr, length uint64, cb UpdateFunc) error {
	if w.closed {
		return NewError(ErrClosed)
	}
	startPg, lenPg, err := w.validate(addr, length)
	if err != nil {
		return err
	}
	return w.t.unmap(startPg, lenPg, cb, w.pageSize)
}

// Query reports whether addr is currently allocated and, if so, the
// Info of the containing region. A misaligned address reports false.
func (w *Window) Query(addr uint64) (Info, bool) {
	if w.closed || addr%w.pageSize != 0 {
		return Info{}, false
	}
	return w.t.query(w.pageOf(addr))
}

// Protect changes the protection of [addr, addr+length) to newProt.
// The range must have zero overlap with free pages.
func (w *Window) Protect(addr, length uint64, newProt Prot, cb UpdateFunc) error {
	if w.closed {
		return NewError(ErrClosed)
	}
	startPg, lenPg, err := w.validate(addr, length)
	if err != nil {
		return err
	}
	if w.t.free.CountOverlaps(startPg, lenPg) > 0 {
		return NewError(ErrInvalidArgs)
	}
	return w.t.protect(startPg, lenPg, newProt, cb, w.pageSize)
}

// CheckInvariants brute-force validates the cover, disjoint,
// normalised-free, balance, and augmentation invariants. It returns a
// description of the first violation found, or "" if consistent.
func (w *Window) CheckInvariants() string {
	return w.t.checkInvariants()
}
