// Package benchmarks compares the augmented interval tree's
// allocate/free cycle against three naive designs that keep the free
// list as rows in a real storage engine instead of an in-memory tree.
// None of these run as part of the default test set beyond
// compilation; they are Benchmark* functions, invoked explicitly.
package benchmarks

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	mdbxgo "github.com/erigontech/mdbx-go/mdbx"
	"github.com/tecbot/gorocksdb"
	bolt "go.etcd.io/bbolt"

	"github.com/avmap/avmap"
)

const freelistBenchDir = "testdata/freelistbench"

// BenchmarkFreelistAllocFree drives the same allocate-N-pages-then-free
// cycle against four free-list designs so the cost of first-fit search
// in each is directly comparable.
func BenchmarkFreelistAllocFree(b *testing.B) {
	sizes := []int{1_000, 10_000}

	for _, size := range sizes {
		sizeName := fmt.Sprintf("%d", size)
		b.Run("tree/"+sizeName, func(b *testing.B) { benchTreeAllocFree(b, size) })
		b.Run("bolt/"+sizeName, func(b *testing.B) { benchBoltAllocFree(b, size) })
		b.Run("mdbx/"+sizeName, func(b *testing.B) { benchMdbxAllocFree(b, size) })
		b.Run("rocksdb/"+sizeName, func(b *testing.B) { benchRocksAllocFree(b, size) })
	}
}

// benchTreeAllocFree exercises avmap.Window directly: every iteration
// maps 4 pages somewhere in a window pre-fragmented into size holes,
// then unmaps them again.
func benchTreeAllocFree(b *testing.B, holes int) {
	w, err := avmap.NewWindow(0, uint64(holes)*8, 1)
	if err != nil {
		b.Fatal(err)
	}
	// Fragment the window into alternating 4-page alloc/free holes so a
	// first-fit search has to do real work.
	for i := 0; i < holes; i++ {
		if _, err := w.MapAt(uint64(i)*8, 4, avmap.ProtRead, 0, avmap.NoFD, 0, nil); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		addr, err := w.MapAnywhere(4, avmap.ProtRead, 0, avmap.NoFD, 0)
		if err != nil {
			b.Fatal(err)
		}
		if err := w.Unmap(addr, 4, nil); err != nil {
			b.Fatal(err)
		}
	}
}

// freeRowKey and freeRowValue encode the (start, length) pair stored per free range in the
// KV-engine-backed designs, keyed by start page so a scan returns
// ranges in ascending address order the same way ivtree's in-order
// walk does.
func freeRowKey(startPg uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, startPg)
	return k
}

func freeRowValue(lenPg uint64) []byte {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, lenPg)
	return v
}

// benchBoltAllocFree keeps the free list as rows in a bbolt bucket,
// scanning in key order for the first hole big enough: the same
// linear first-fit strategy as the tree's SearchSize, except every
// probe round-trips through a B+tree cursor instead of in-process
// pointer chasing.
func benchBoltAllocFree(b *testing.B, holes int) {
	if err := os.MkdirAll(freelistBenchDir, 0755); err != nil {
		b.Fatal(err)
	}
	path := filepath.Join(freelistBenchDir, fmt.Sprintf("bolt_%d.db", holes))
	defer os.Remove(path)

	db, err := bolt.Open(path, 0644, &bolt.Options{NoSync: true, NoFreelistSync: true})
	if err != nil {
		b.Fatal(err)
	}
	defer db.Close()

	bucketName := []byte("free")
	err = db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		for i := 0; i < holes; i++ {
			start := uint64(i) * 8
			if err := bucket.Put(freeRowKey(start+4), freeRowValue(4)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := db.Update(func(tx *bolt.Tx) error {
			bucket := tx.Bucket(bucketName)
			c := bucket.Cursor()
			for k, v := c.First(); k != nil; k, v = c.Next() {
				if binary.BigEndian.Uint64(v) >= 4 {
					if err := bucket.Delete(k); err != nil {
						return err
					}
					start := binary.BigEndian.Uint64(k)
					return bucket.Put(freeRowKey(start), freeRowValue(4))
				}
			}
			return nil
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

// benchMdbxAllocFree is the same first-fit scan against an mdbx-go
// environment.
func benchMdbxAllocFree(b *testing.B, holes int) {
	if err := os.MkdirAll(freelistBenchDir, 0755); err != nil {
		b.Fatal(err)
	}
	path := filepath.Join(freelistBenchDir, fmt.Sprintf("mdbx_%d", holes))
	defer os.RemoveAll(path)

	env, err := mdbxgo.NewEnv(mdbxgo.Label("freelist-bench"))
	if err != nil {
		b.Fatal(err)
	}
	defer env.Close()
	if err := env.SetOption(mdbxgo.OptMaxDB, 1); err != nil {
		b.Fatal(err)
	}
	if err := env.Open(path, mdbxgo.NoSubdir|mdbxgo.Create, 0644); err != nil {
		b.Fatal(err)
	}

	var dbi mdbxgo.DBI
	err = env.Update(func(txn *mdbxgo.Txn) error {
		var err error
		dbi, err = txn.OpenDBI("free", mdbxgo.Create, nil, nil)
		if err != nil {
			return err
		}
		for i := 0; i < holes; i++ {
			start := uint64(i) * 8
			if err := txn.Put(dbi, freeRowKey(start+4), freeRowValue(4), mdbxgo.Upsert); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := env.Update(func(txn *mdbxgo.Txn) error {
			cur, err := txn.OpenCursor(dbi)
			if err != nil {
				return err
			}
			defer cur.Close()
			for k, v, err := cur.Get(nil, nil, mdbxgo.First); err == nil; k, v, err = cur.Get(nil, nil, mdbxgo.Next) {
				if binary.BigEndian.Uint64(v) >= 4 {
					if err := txn.Del(dbi, k, nil); err != nil {
						return err
					}
					start := binary.BigEndian.Uint64(k)
					return txn.Put(dbi, freeRowKey(start), freeRowValue(4), mdbxgo.Upsert)
				}
			}
			return nil
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

// benchRocksAllocFree is the same first-fit scan against a RocksDB
// column family, using an iterator instead of a cursor.
func benchRocksAllocFree(b *testing.B, holes int) {
	if err := os.MkdirAll(freelistBenchDir, 0755); err != nil {
		b.Fatal(err)
	}
	path := filepath.Join(freelistBenchDir, fmt.Sprintf("rocks_%d", holes))
	defer os.RemoveAll(path)

	opts := gorocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	db, err := gorocksdb.OpenDb(opts, path)
	if err != nil {
		b.Fatal(err)
	}
	defer db.Close()

	wo := gorocksdb.NewDefaultWriteOptions()
	wo.DisableWAL(true)
	defer wo.Destroy()
	ro := gorocksdb.NewDefaultReadOptions()
	defer ro.Destroy()

	for i := 0; i < holes; i++ {
		start := uint64(i) * 8
		if err := db.Put(wo, freeRowKey(start+4), freeRowValue(4)); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		it := db.NewIterator(ro)
		var foundKey, foundVal []byte
		for it.SeekToFirst(); it.Valid(); it.Next() {
			v := it.Value().Data()
			if binary.BigEndian.Uint64(v) >= 4 {
				foundKey = append([]byte(nil), it.Key().Data()...)
				foundVal = append([]byte(nil), v...)
				break
			}
		}
		it.Close()
		if foundKey == nil {
			b.Fatal("no hole found")
		}
		if err := db.Delete(wo, foundKey); err != nil {
			b.Fatal(err)
		}
		start := binary.BigEndian.Uint64(foundKey)
		_ = foundVal
		if err := db.Put(wo, freeRowKey(start), freeRowValue(4)); err != nil {
			b.Fatal(err)
		}
	}
}
