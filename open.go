package tac

import (
	"encoding/binary"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"sort"

	"github.com/tanukiforge/tac/internal/index"
	"github.com/tanukiforge/tac/internal/indexcrypt"
	"github.com/tanukiforge/tac/internal/pathhash"
	"github.com/tanukiforge/tac/internal/zcodec"
)

// EntryInfo describes one archive member. The format stores hashes, not
// paths, so an EntryInfo never carries a name.
type EntryInfo struct {
	BucketKey    uint16
	Residual     uint64
	Packed       bool
	UnpackedSize uint32
	PackedSize   uint32
	DataOffset   uint32
}

// Archive provides read access to a packed file.
//
// The index is decrypted and parsed eagerly at Open; member content is
// read and decompressed on demand. An Archive is safe for concurrent
// reads and must be closed to release the underlying file.
type Archive struct {
	f         *os.File
	size      int64
	seed      uint32
	indexSize uint32
	buckets   []index.Bucket
	entries   []index.Entry
}

// Open reads an archive's header and index and validates its structure.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	a, err := load(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

func load(f *os.File) (*Archive, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	hdr := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, hdr); err != nil {
		return nil, fmt.Errorf("%w: short header", ErrBadSignature)
	}
	if string(hdr[offSignature:offSignature+len(Signature)]) != Signature {
		return nil, ErrBadSignature
	}
	if string(hdr[offVersion:offVersion+len(Version)]) != Version {
		return nil, ErrBadVersion
	}

	entryCount := binary.LittleEndian.Uint32(hdr[offEntryCount:])
	bucketCount := binary.LittleEndian.Uint32(hdr[offBucketCount:])
	indexSize := binary.LittleEndian.Uint32(hdr[offIndexSize:])
	seed := binary.LittleEndian.Uint32(hdr[offSeed:])

	if int64(HeaderSize)+int64(indexSize) > info.Size() {
		return nil, fmt.Errorf("%w: index size %d exceeds file", ErrIndexCorrupt, indexSize)
	}

	encrypted := make([]byte, indexSize)
	if _, err := io.ReadFull(f, encrypted); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	packed, err := indexcrypt.Decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}
	blob, err := zcodec.Decompress(packed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}

	buckets, entries, err := index.Parse(blob, int(bucketCount), int(entryCount))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}
	if err := index.Validate(buckets, entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}

	return &Archive{
		f:         f,
		size:      info.Size(),
		seed:      seed,
		indexSize: indexSize,
		buckets:   buckets,
		entries:   entries,
	}, nil
}

// Close releases the underlying file.
func (a *Archive) Close() error {
	if a.f == nil {
		return nil
	}
	err := a.f.Close()
	a.f = nil
	return err
}

// Len returns the number of entries in the archive.
func (a *Archive) Len() int {
	return len(a.entries)
}

// BucketCount returns the number of hash buckets in the index.
func (a *Archive) BucketCount() int {
	return len(a.buckets)
}

// Seed returns the archive-wide hash seed from the header.
func (a *Archive) Seed() uint32 {
	return a.seed
}

// Lookup returns the entry for relPath, hashing it under the archive
// seed. Path matching follows the format's normalization: separators and
// case are ignored. When several paths collide on the full 64-bit hash,
// the first entry in table order wins; the format keeps no further
// discriminator.
func (a *Archive) Lookup(relPath string) (EntryInfo, bool) {
	bucket, residual := pathhash.Split(pathhash.Sum(relPath, a.seed))

	b := sort.Search(len(a.buckets), func(i int) bool {
		return a.buckets[i].Key >= bucket
	})
	if b == len(a.buckets) || a.buckets[b].Key != bucket {
		return EntryInfo{}, false
	}

	start, count := int(a.buckets[b].Start), int(a.buckets[b].Count)
	run := a.entries[start : start+count]
	i := sort.Search(len(run), func(i int) bool {
		return run[i].Residual >= residual
	})
	if i == len(run) || run[i].Residual != residual {
		return EntryInfo{}, false
	}
	return entryInfo(run[i]), true
}

// Read returns the decompressed content of e.
func (a *Archive) Read(e EntryInfo) ([]byte, error) {
	packed := make([]byte, e.PackedSize)
	if _, err := a.f.ReadAt(packed, int64(e.DataOffset)); err != nil {
		return nil, fmt.Errorf("read entry at %#x: %w", e.DataOffset, err)
	}
	if !e.Packed {
		return packed, nil
	}
	raw, err := zcodec.Decompress(packed)
	if err != nil {
		return nil, fmt.Errorf("entry at %#x: %w", e.DataOffset, err)
	}
	if uint32(len(raw)) != e.UnpackedSize {
		return nil, fmt.Errorf("%w: entry at %#x inflates to %d bytes, header says %d",
			ErrIndexCorrupt, e.DataOffset, len(raw), e.UnpackedSize)
	}
	return raw, nil
}

// ReadFile looks up relPath and returns its decompressed content.
// Returns ErrNotFound when no entry matches.
func (a *Archive) ReadFile(relPath string) ([]byte, error) {
	e, ok := a.Lookup(relPath)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, relPath)
	}
	return a.Read(e)
}

// Entries returns an iterator over all entries in table order.
func (a *Archive) Entries() iter.Seq[EntryInfo] {
	return func(yield func(EntryInfo) bool) {
		for _, e := range a.entries {
			if !yield(entryInfo(e)) {
				return
			}
		}
	}
}

// VerifyLayout checks that entry data ranges tile the payload region
// exactly: the first starts at the base offset, each begins where the
// previous ended, and the last ends at the end of the file.
func (a *Archive) VerifyLayout() error {
	off := uint64(HeaderSize) + uint64(a.indexSize)
	for i, e := range a.entries {
		if uint64(e.DataOffset) != off {
			return fmt.Errorf("%w: entry %d at offset %d, want %d", ErrIndexCorrupt, i, e.DataOffset, off)
		}
		off += uint64(e.PackedSize)
	}
	if off != uint64(a.size) {
		return fmt.Errorf("%w: payload ends at %d, file is %d bytes", ErrIndexCorrupt, off, a.size)
	}
	return nil
}

// Extract writes the named members below dir, creating directories as
// needed. The format stores no paths, so the caller supplies the names,
// typically from a listing manifest. Names that resolve outside dir or
// match no entry are errors.
func (a *Archive) Extract(dir string, names []string) error {
	for _, name := range names {
		rel := filepath.FromSlash(name)
		if !filepath.IsLocal(rel) {
			return fmt.Errorf("refusing to extract outside %s: %s", dir, name)
		}
		data, err := a.ReadFile(name)
		if err != nil {
			return err
		}
		dest := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
			return fmt.Errorf("extract %s: %w", name, err)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return fmt.Errorf("extract %s: %w", name, err)
		}
	}
	return nil
}

func entryInfo(e index.Entry) EntryInfo {
	return EntryInfo{
		BucketKey:    e.BucketKey,
		Residual:     e.Residual,
		Packed:       e.Packed,
		UnpackedSize: e.UnpackedSize,
		PackedSize:   e.PackedSize,
		DataOffset:   e.DataOffset,
	}
}
