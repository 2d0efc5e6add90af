package arena

import "errors"

// ErrNoMemory is returned by Reserve when node storage cannot be grown
// to satisfy the request. The arena is left exactly as it was before
// the call: nothing is committed on a failed reservation.
var ErrNoMemory = errors.New("arena: no memory")
