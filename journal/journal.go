// Package journal is an optional crash-forensics recorder for an
// avmap.Window: it attaches as an UpdateFunc and appends every region
// change it observes to a bbolt database, so a post-mortem tool can
// replay exactly which ranges were mapped, protected, or unmapped and
// in what order, without the core address-space table itself ever
// touching disk. It depends on avmap; avmap never depends on it.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	bolt "go.etcd.io/bbolt"

	"github.com/avmap/avmap"
)

var bucketName = []byte("avmap_journal")

// Record is one logged region change, the same (op, start, len, info)
// shape a caller would need to reconstruct Window state by replay.
type Record struct {
	Seq    uint64     `json:"seq"`
	Op     string     `json:"op"`
	Start  uint64     `json:"start"`
	Length uint64     `json:"length"`
	Info   avmap.Info `json:"info"`
}

// Journal appends Records to a bbolt database as they are observed.
// It is safe for concurrent use by multiple callback invocations.
type Journal struct {
	db  *bolt.DB
	mu  sync.Mutex
	seq uint64
}

// Open creates or reopens a journal database at path.
func Open(path string) (*Journal, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{NoSync: true})
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	var seq uint64
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		// Continue numbering after the last stored record so a reopened
		// journal appends instead of overwriting earlier keys.
		if k, _ := b.Cursor().Last(); k != nil {
			seq = binary.BigEndian.Uint64(k)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: init bucket: %w", err)
	}
	return &Journal{db: db, seq: seq}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Recorder returns an avmap.UpdateFunc tagged with op that appends a
// Record for every callback invocation it receives. Pass the result
// straight through as the cb argument of MapAt/Unmap/Protect to record
// that operation's fan-out.
func (j *Journal) Recorder(op string) avmap.UpdateFunc {
	return func(start, length uint64, info avmap.Info) {
		seq := atomic.AddUint64(&j.seq, 1)
		rec := Record{Seq: seq, Op: op, Start: start, Length: length, Info: info}
		if err := j.append(rec); err != nil {
			// A journal write failure must never propagate into the
			// caller's mutation path; it only degrades forensics.
			return
		}
	}
}

func (j *Journal) append(rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, rec.Seq)
		return b.Put(key, payload)
	})
}

// Replay calls fn once per Record in ascending sequence order.
func (j *Journal) Replay(fn func(Record) error) error {
	return j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			return fn(rec)
		})
	})
}

// Len returns the number of records currently stored.
func (j *Journal) Len() (int, error) {
	var n int
	err := j.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketName).Stats().KeyN
		return nil
	})
	return n, err
}
