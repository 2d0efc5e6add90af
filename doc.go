// Package avmap is an in-process virtual address-space bookkeeper: it
// tracks which page-aligned ranges of a fixed address window are
// mapped, remembers per-range protection bits and backing metadata,
// and supports the usual mutations of a memory-map table — allocate
// anywhere, map at a fixed address, unmap, query, and change
// protection. It performs no actual I/O and touches no page tables;
// it is the bookkeeping a loader or syscall emulator consults before
// calling the real host mapping primitive.
//
// Basic usage:
//
//	w, err := avmap.NewWindow(0, 16<<20, 4096)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	addr, err := w.MapAnywhere(8192, avmap.ProtRead|avmap.ProtWrite, 0, -1, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := w.Protect(addr, 8192, avmap.ProtRead, nil); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := w.Unmap(addr, 8192, nil); err != nil {
//	    log.Fatal(err)
//	}
package avmap
