package avmap

// Page size constraints. The configured page size must be a power of
// two within this range; it is stored internally as its base-2
// exponent so range math stays in page units.
const (
	MinPageSize = 1
	MaxPageSize = 1 << 30
)

// Prot holds the protection bits carried by a Range's Info. These are
// opaque payload as far as the index and table are concerned: avmap
// never interprets them beyond comparing old and new values on
// Protect, and never calls a real mprotect.
type Prot uint32

const (
	ProtNone  Prot = 0
	ProtRead  Prot = 0x1
	ProtWrite Prot = 0x2
	ProtExec  Prot = 0x4
)

// Flags holds the mapping flags carried by a Range's Info, mirroring
// the handful of bits a host mmap call distinguishes. Like Prot, avmap
// treats these as opaque payload.
type Flags uint32

const (
	FlagShared    Flags = 0x1
	FlagPrivate   Flags = 0x2
	FlagAnonymous Flags = 0x4
	FlagFixed     Flags = 0x8
)

// NoFD is the conventional fd value for an anonymous mapping with no
// backing file.
const NoFD = -1

// ErrAddr is the sentinel address returned by MapAnywhere and MapAt on
// failure: the all-ones bit pattern of the address type, matching the
// host mmap convention of returning MAP_FAILED.
const ErrAddr = ^uint64(0)
