package avmap

import (
	"github.com/avmap/avmap/internal/arena"
	"github.com/avmap/avmap/ivtree"
)

// table is the address-space table from the design: two interval
// indexes that together cover the window exactly once, plus the node
// arena both draw from. Every method here works in page units; byte
// conversion and R1/R2 validation (alignment, window bounds) happen
// one layer up, in Window.
type table struct {
	free, alloc ivtree.Tree
	ar          *arena.Arena
	basePg      uint64
	lenPg       uint64
}

func newTable(basePg, lenPg uint64) (*table, error) {
	t := &table{ar: arena.New(), basePg: basePg, lenPg: lenPg}
	res, err := t.ar.Reserve(1)
	if err != nil {
		return nil, WrapError(ErrNoMemory, err)
	}
	t.free.Put(basePg, lenPg, res.Take(), nil)
	res.Discard()
	return t, nil
}

// put installs [start, length) into dst, drawing its node from res. If
// free is true it first absorbs any adjacent predecessor/successor
// range already in dst so the free-normalisation invariant holds.
func (t *table) put(dst *ivtree.Tree, res *arena.Reservation, free bool, start, length uint64, value any) {
	if !free {
		dst.Put(start, length, res.Take(), value)
		return
	}

	finalStart, finalLen := start, length
	end := start + length

	if pred := dst.SearchEnd(start); pred != nil {
		predStart, predLen := pred.Start, pred.Len
		if removed := dst.Remove(predStart); removed != nil {
			t.ar.Release(removed)
		}
		finalStart = predStart
		finalLen += predLen
	}
	if succ := dst.SearchAddr(end); succ != nil {
		succLen := succ.Len
		if removed := dst.Remove(end); removed != nil {
			t.ar.Release(removed)
		}
		finalLen += succLen
	}
	dst.Put(finalStart, finalLen, res.Take(), nil)
}

// mapAnywhere finds any free range of at least lenPg pages, carves
// lenPg off it into alloc, and returns its start.
func (t *table) mapAnywhere(lenPg uint64, info Info, pageSize uint64) (uint64, error) {
	res, err := t.ar.Reserve(2)
	if err != nil {
		return 0, WrapError(ErrNoMemory, err)
	}
	defer res.Discard()

	hole := t.free.SearchSize(lenPg)
	if hole == nil {
		return 0, NewError(ErrNoSpace)
	}
	holeStart, holeLen := hole.Start, hole.Len

	if removed := t.free.Remove(holeStart); removed != nil {
		t.ar.Release(removed)
	}
	if holeLen > lenPg {
		t.put(&t.free, res, false, holeStart+lenPg, holeLen-lenPg, nil)
	}

	info.MappingBase = holeStart * pageSize
	info.MappingLen = lenPg * pageSize
	t.put(&t.alloc, res, false, holeStart, lenPg, info)
	return holeStart, nil
}

// mapAtFreeHole handles the branch of map-at where [startPg, startPg+lenPg)
// sits entirely inside one free range.
func (t *table) mapAtFreeHole(startPg, lenPg uint64, info Info, pageSize uint64) error {
	res, err := t.ar.Reserve(3)
	if err != nil {
		return WrapError(ErrNoMemory, err)
	}
	defer res.Discard()

	holder := t.free.SearchContains(startPg, lenPg)
	if holder == nil {
		return NewError(ErrCorrupted)
	}
	holderStart, holderLen := holder.Start, holder.Len
	if removed := t.free.Remove(holderStart); removed != nil {
		t.ar.Release(removed)
	}

	leadLen := startPg - holderStart
	trailLen := (holderStart + holderLen) - (startPg + lenPg)
	if leadLen > 0 {
		t.put(&t.free, res, false, holderStart, leadLen, nil)
	}
	if trailLen > 0 {
		t.put(&t.free, res, false, startPg+lenPg, trailLen, nil)
	}
	info.MappingBase = startPg * pageSize
	info.MappingLen = lenPg * pageSize
	t.put(&t.alloc, res, false, startPg, lenPg, info)
	return nil
}

// rewriteFunc computes the value to install for the sub-range of an
// overlapping node that intersects the request.
type rewriteFunc func(orig any, moveStart, moveLen uint64) any

// overlapParams configures runOverlapMutation for one of its three
// callers: map-at's overwrite branch, unmap, and protect.
type overlapParams struct {
	from, to   *ivtree.Tree
	toIsFree   bool
	rewrite    rewriteFunc
	reportOrig bool // callback reports the original value, not the rewritten one (unmap)
}

// runOverlapMutation is the overlap-iteration primitive shared by
// map-at's overwrite branch, unmap's multi-region branch, and
// protect's multi-region branch. It pre-allocates count+2 nodes (one
// per overlapping node plus up to two boundary leftovers, since only
// the first and last overlapping node can straddle the request), then
// moves or splits every node in from that intersects [start, start+length)
// into to, applying rewrite to compute the installed value.
func (t *table) runOverlapMutation(p overlapParams, start, length uint64, count int, cb UpdateFunc, pageSize uint64) error {
	res, err := t.ar.Reserve(count + 2)
	if err != nil {
		return WrapError(ErrNoMemory, err)
	}
	defer res.Discard()

	snapshots := p.from.CollectOverlaps(start, length, nil)
	if len(snapshots) != count {
		return NewError(ErrCorrupted)
	}

	// Callbacks are queued and fired only after every overlapping node
	// has been moved, so each one sees the tables in their final state.
	type notice struct {
		start, length uint64
		value         any
	}
	var notices []notice

	reqEnd := start + length
	for _, snap := range snapshots {
		origStart, origLen, origValue := snap.Start, snap.Len, snap.Value
		origEnd := origStart + origLen

		if removed := p.from.Remove(origStart); removed != nil {
			t.ar.Release(removed)
		}

		moveStart := max(origStart, start)
		moveEnd := min(origEnd, reqEnd)
		moveLen := moveEnd - moveStart
		leadLen := moveStart - origStart
		trailLen := origEnd - moveEnd

		if leadLen > 0 {
			t.put(p.from, res, false, origStart, leadLen, origValue)
		}
		if trailLen > 0 {
			t.put(p.from, res, false, moveEnd, trailLen, origValue)
		}

		newValue := p.rewrite(origValue, moveStart, moveLen)
		t.put(p.to, res, p.toIsFree, moveStart, moveLen, newValue)

		if cb != nil {
			reportValue := newValue
			if p.reportOrig {
				reportValue = origValue
			}
			notices = append(notices, notice{moveStart, moveLen, reportValue})
		}
	}
	for _, n := range notices {
		cb(n.start*pageSize, n.length*pageSize, infoOf(n.value))
	}
	return nil
}

// unmap releases pages back to the free set. It returns ErrNotMapped if the request
// overlaps no allocated range at all; pages already free within the
// request are skipped silently, matching the design's "already-free
// pages never error or callback" rule.
func (t *table) unmap(startPg, lenPg uint64, cb UpdateFunc, pageSize uint64) error {
	k := t.alloc.CountOverlaps(startPg, lenPg)
	if k == 0 {
		return NewError(ErrNotMapped)
	}
	return t.runOverlapMutation(overlapParams{
		from:       &t.alloc,
		to:         &t.free,
		toIsFree:   true,
		reportOrig: true,
		rewrite:    func(orig any, _, _ uint64) any { return nil },
	}, startPg, lenPg, k, cb, pageSize)
}

// mapAtOverwrite implements the overwrite branch of map-at: the
// request lies entirely within allocated territory (possibly spanning
// several regions), and every intersecting sub-range is rewritten to
// the new mapping's info.
func (t *table) mapAtOverwrite(startPg, lenPg uint64, info Info, k int, cb UpdateFunc, pageSize uint64) error {
	return t.runOverlapMutation(overlapParams{
		from:    &t.alloc,
		to:      &t.alloc,
		rewrite: func(orig any, _, _ uint64) any { return info },
	}, startPg, lenPg, k, cb, pageSize)
}

// protect changes the protection of an allocated range. The caller has
// already verified the request has zero overlap with free.
func (t *table) protect(startPg, lenPg uint64, newProt Prot, cb UpdateFunc, pageSize uint64) error {
	if holder := t.alloc.SearchContains(startPg, lenPg); holder != nil {
		if infoOf(holder.Value).Prot == newProt {
			return nil
		}
	}
	k := t.alloc.CountOverlaps(startPg, lenPg)
	if k == 0 {
		return NewError(ErrCorrupted)
	}
	return t.runOverlapMutation(overlapParams{
		from: &t.alloc,
		to:   &t.alloc,
		rewrite: func(orig any, _, _ uint64) any {
			updated := infoOf(orig)
			updated.Prot = newProt
			return updated
		},
	}, startPg, lenPg, k, cb, pageSize)
}

// query is a single-page point lookup.
func (t *table) query(pg uint64) (Info, bool) {
	n := t.alloc.SearchContains(pg, 1)
	if n == nil {
		return Info{}, false
	}
	return infoOf(n.Value), true
}

// checkInvariants brute-force validates the cover, disjoint,
// normalised-free, and per-tree augmentation invariants.
func (t *table) checkInvariants() string {
	if msg := t.free.CheckInvariants(); msg != "" {
		return "free_index: " + msg
	}
	if msg := t.alloc.CheckInvariants(); msg != "" {
		return "alloc_index: " + msg
	}

	type span struct{ start, end uint64 }
	var spans []span
	t.free.Walk(func(start, length uint64, _ any) { spans = append(spans, span{start, start + length}) })
	freeCount := len(spans)
	t.alloc.Walk(func(start, length uint64, _ any) { spans = append(spans, span{start, start + length}) })

	for i := range spans {
		for j := i + 1; j < len(spans); j++ {
			if spans[i].start < spans[j].end && spans[j].start < spans[i].end {
				return "disjoint: ranges overlap across indexes"
			}
		}
	}

	for i := 0; i < freeCount; i++ {
		for j := 0; j < freeCount; j++ {
			if i != j && spans[i].end == spans[j].start {
				return "normalised free: adjacent free ranges not coalesced"
			}
		}
	}

	covered := t.basePg
	// sort a copy by start for the cover check
	sorted := append([]span(nil), spans...)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].start < sorted[i].start {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	for _, s := range sorted {
		if s.start != covered {
			return "cover: gap in window coverage"
		}
		covered = s.end
	}
	if covered != t.basePg+t.lenPg {
		return "cover: window not fully covered"
	}
	return ""
}
