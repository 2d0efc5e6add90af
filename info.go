package avmap

// Info is the opaque-to-avmap metadata carried by an allocated range:
// everything the caller needs to hand to (or recall from) the real
// host mapping primitive. avmap never interprets these fields beyond
// comparing Prot values on Protect.
//
// MappingBase and MappingLen describe the mapping a range descends
// from and are preserved across splits, so a region produced by
// partially unmapping or re-protecting a larger mapping can still be
// traced back to the call that created it.
type Info struct {
	MappingBase uint64
	MappingLen  uint64
	Prot        Prot
	Flags       Flags
	FD          int
	Offset      int64
}

// UpdateFunc is the per-region notification fired after a mutation
// completes. start and length are byte values, not page units.
// Implementations must not call back into the Window that invoked
// them: the callback is a capability handed to one call, never stored,
// and the Window gives no re-entrancy guarantees.
type UpdateFunc func(start, length uint64, info Info)

func infoOf(v any) Info {
	if v == nil {
		return Info{}
	}
	return v.(Info)
}
