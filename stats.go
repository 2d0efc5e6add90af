package avmap

// Stats is a diagnostic snapshot of a Window's two indexes, useful for
// crash forensics and for sizing the node arena ahead of a burst of
// operations.
type Stats struct {
	FreeRanges  int
	AllocRanges int
	FreePages   uint64
	AllocPages  uint64
	ArenaCap    int
	ArenaInUse  int
}

// Stats returns a snapshot of the Window's current state.
func (w *Window) Stats() Stats {
	var s Stats
	w.t.free.Walk(func(_, length uint64, _ any) {
		s.FreeRanges++
		s.FreePages += length
	})
	w.t.alloc.Walk(func(_, length uint64, _ any) {
		s.AllocRanges++
		s.AllocPages += length
	})
	s.ArenaCap = w.t.ar.Cap()
	s.ArenaInUse = w.t.ar.InUse()
	return s
}

// QueryRange reports every allocated sub-range overlapping
// [addr, addr+length), in ascending address order. It is a read-only
// convenience built on the same overlap-collection the mutating
// operations use internally.
func (w *Window) QueryRange(addr, length uint64) []Info {
	startPg, lenPg, err := w.validate(addr, length)
	if err != nil {
		return nil
	}
	nodes := w.t.alloc.CollectOverlaps(startPg, lenPg, nil)
	infos := make([]Info, len(nodes))
	for i, n := range nodes {
		infos[i] = infoOf(n.Value)
	}
	return infos
}
