// Package index builds and serializes the archive's two-level lookup
// index: a bucket table keyed on 16-bit hash prefixes, followed by a flat
// entry table ordered by (bucket key, residual hash).
package index

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Serialized record sizes in bytes.
const (
	BucketRecordSize = 8
	EntryRecordSize  = 24
)

// Entry is one member file's index record.
type Entry struct {
	BucketKey    uint16
	Residual     uint64
	Packed       bool
	UnpackedSize uint32
	PackedSize   uint32
	DataOffset   uint32
}

// Bucket summarizes the run of entries sharing one 16-bit hash prefix.
//
// Start is the position of the bucket's first entry in the table; the
// bucket's entries occupy [Start, Start+Count).
type Bucket struct {
	Key   uint16
	Count uint16
	Start uint32
}

// Build computes the bucket table for entries and the table ordering.
//
// The returned order holds input positions: order[i] is the index within
// entries of the record at table position i. Ordering is ascending by
// (bucket key, residual) and stable, so entries whose hashes collide keep
// their input order. Build does not mutate entries.
func Build(entries []Entry) (buckets []Bucket, order []int) {
	order = make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := entries[order[i]], entries[order[j]]
		if a.BucketKey != b.BucketKey {
			return a.BucketKey < b.BucketKey
		}
		return a.Residual < b.Residual
	})

	for i := 0; i < len(order); {
		key := entries[order[i]].BucketKey
		j := i
		for j < len(order) && entries[order[j]].BucketKey == key {
			j++
		}
		buckets = append(buckets, Bucket{
			Key:   key,
			Count: uint16(j - i),
			Start: uint32(i),
		})
		i = j
	}
	return buckets, order
}

// Marshal serializes the bucket table followed by the entry table as
// fixed-width little-endian records. There are no separators or length
// prefixes; field widths are implicit.
func Marshal(buckets []Bucket, entries []Entry) []byte {
	buf := make([]byte, 0, len(buckets)*BucketRecordSize+len(entries)*EntryRecordSize)
	for _, b := range buckets {
		buf = binary.LittleEndian.AppendUint16(buf, b.Key)
		buf = binary.LittleEndian.AppendUint16(buf, b.Count)
		buf = binary.LittleEndian.AppendUint32(buf, b.Start)
	}
	for _, e := range entries {
		var packed uint32
		if e.Packed {
			packed = 1
		}
		buf = binary.LittleEndian.AppendUint64(buf, e.Residual)
		buf = binary.LittleEndian.AppendUint32(buf, packed)
		buf = binary.LittleEndian.AppendUint32(buf, e.UnpackedSize)
		buf = binary.LittleEndian.AppendUint32(buf, e.DataOffset)
		buf = binary.LittleEndian.AppendUint32(buf, e.PackedSize)
	}
	return buf
}

// Parse decodes a blob produced by Marshal. Record counts come from the
// archive header; the blob length must match them exactly.
func Parse(data []byte, bucketCount, entryCount int) ([]Bucket, []Entry, error) {
	if bucketCount < 0 || entryCount < 0 {
		return nil, nil, fmt.Errorf("negative record count")
	}
	want := bucketCount*BucketRecordSize + entryCount*EntryRecordSize
	if len(data) != want {
		return nil, nil, fmt.Errorf("index blob is %d bytes, want %d for %d buckets and %d entries",
			len(data), want, bucketCount, entryCount)
	}

	buckets := make([]Bucket, bucketCount)
	for i := range buckets {
		rec := data[i*BucketRecordSize:]
		buckets[i] = Bucket{
			Key:   binary.LittleEndian.Uint16(rec),
			Count: binary.LittleEndian.Uint16(rec[2:]),
			Start: binary.LittleEndian.Uint32(rec[4:]),
		}
	}

	entries := make([]Entry, entryCount)
	base := bucketCount * BucketRecordSize
	for i := range entries {
		rec := data[base+i*EntryRecordSize:]
		entries[i] = Entry{
			Residual:     binary.LittleEndian.Uint64(rec),
			Packed:       binary.LittleEndian.Uint32(rec[8:]) != 0,
			UnpackedSize: binary.LittleEndian.Uint32(rec[12:]),
			DataOffset:   binary.LittleEndian.Uint32(rec[16:]),
			PackedSize:   binary.LittleEndian.Uint32(rec[20:]),
		}
	}

	// Entry records do not carry the bucket key; recover it from the
	// bucket table so lookups can compare full (key, residual) pairs.
	for _, b := range buckets {
		end := uint64(b.Start) + uint64(b.Count)
		if end > uint64(entryCount) {
			return nil, nil, fmt.Errorf("bucket %#04x covers entries [%d, %d) beyond table of %d",
				b.Key, b.Start, end, entryCount)
		}
		for i := uint64(b.Start); i < end; i++ {
			entries[i].BucketKey = b.Key
		}
	}

	return buckets, entries, nil
}

// Validate checks the structural invariants of a bucket and entry table:
// bucket keys strictly ascending, starts contiguous from zero, counts
// covering the entry table exactly, and entries ordered ascending by
// (bucket key, residual).
func Validate(buckets []Bucket, entries []Entry) error {
	var next uint32
	for i, b := range buckets {
		if i > 0 && buckets[i-1].Key >= b.Key {
			return fmt.Errorf("bucket keys not strictly ascending at %d (%#04x >= %#04x)",
				i, buckets[i-1].Key, b.Key)
		}
		if b.Start != next {
			return fmt.Errorf("bucket %#04x starts at %d, want %d", b.Key, b.Start, next)
		}
		next += uint32(b.Count)
	}
	if int(next) != len(entries) {
		return fmt.Errorf("buckets cover %d entries, table has %d", next, len(entries))
	}
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if prev.BucketKey > cur.BucketKey ||
			(prev.BucketKey == cur.BucketKey && prev.Residual > cur.Residual) {
			return fmt.Errorf("entries out of order at %d", i)
		}
	}
	return nil
}
