package tac

import (
	"context"
	"encoding/binary"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/tanukiforge/tac/internal/index"
	"github.com/tanukiforge/tac/internal/indexcrypt"
	"github.com/tanukiforge/tac/internal/pathhash"
	"github.com/tanukiforge/tac/internal/zcodec"
)

// Stats reports what Create packed.
type Stats struct {
	EntryCount   int
	BucketCount  int
	IndexSize    int    // encrypted index bytes
	PayloadBytes uint64 // compressed payload bytes
	Skipped      int    // unreadable files dropped (CreateWithSkipUnreadable)
	Seed         uint32
}

// member carries one file through the packing pipeline.
type member struct {
	relPath  string
	data     []byte // compressed content
	bucket   uint16
	residual uint64
	unpacked uint32
	failed   bool
}

// Create packs the contents of dir into a single archive file at out.
//
// Every regular file under dir is included except files named after the
// output archive itself and the reserved listing manifest. Symbolic links
// are not followed. Each member is zlib-compressed independently; the
// index is compressed and encrypted as a whole.
//
// Offsets depend on the index size and the index contains the offsets, so
// layout runs twice: a provisional pass measures the encrypted index,
// then a final pass rebuilds it with true offsets. Fixed-width index
// fields keep the size stable between passes; a change aborts with
// ErrIndexSizeChanged.
//
// The archive is written through a temp file and renamed into place, so a
// failed run leaves no output. The context can cancel a long-running pack.
func Create(ctx context.Context, dir, out string, opts ...CreateOption) (*Stats, error) {
	cfg := createConfig{workers: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &packer{cfg: cfg}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, dir)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, dir)
	}
	defer root.Close()

	seed := cfg.seed
	if !cfg.seedSet {
		seed = rand.Uint32()
	}
	p.log().Info("creating archive", "dir", dir, "out", out, "seed", seed)

	members, err := p.collect(ctx, root, filepath.Base(out))
	if err != nil {
		return nil, err
	}

	skipped, err := p.load(ctx, root, members, seed)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		kept := members[:0]
		for _, m := range members {
			if !m.failed {
				kept = append(kept, m)
			}
		}
		members = kept
	}

	p.log().Debug("files processed", "count", len(members), "skipped", skipped)

	// Table order is fixed here; both layout passes and the payload
	// write follow it.
	records := make([]index.Entry, len(members))
	for i, m := range members {
		records[i] = index.Entry{
			BucketKey:    m.bucket,
			Residual:     m.residual,
			Packed:       true,
			UnpackedSize: m.unpacked,
			PackedSize:   uint32(len(m.data)),
		}
	}
	buckets, order := index.Build(records)
	tabled := make([]*member, len(order))
	for i, src := range order {
		tabled[i] = members[src]
	}

	// Provisional pass: offsets from zero, only to learn the encrypted
	// index size.
	provisional, err := p.encodeIndex(buckets, tabled, 0)
	if err != nil {
		return nil, err
	}

	indexSize := len(provisional)
	base := uint64(HeaderSize) + uint64(indexSize)
	if base > math.MaxUint32 {
		return nil, ErrSizeOverflow
	}

	// Final pass: true offsets from the payload base.
	encrypted, err := p.encodeIndex(buckets, tabled, uint32(base))
	if err != nil {
		return nil, err
	}
	if len(encrypted) != indexSize {
		return nil, fmt.Errorf("%w: %d then %d bytes", ErrIndexSizeChanged, indexSize, len(encrypted))
	}

	var payload uint64
	for _, m := range tabled {
		payload += uint64(len(m.data))
	}

	p.log().Debug("layout resolved",
		"entries", len(tabled), "buckets", len(buckets),
		"index_size", indexSize, "base_offset", base, "payload_bytes", payload)

	if err := writeArchive(out, seed, len(tabled), len(buckets), encrypted, tabled); err != nil {
		return nil, err
	}

	p.log().Info("archive created", "out", out, "entries", len(tabled), "bytes", base+payload)
	return &Stats{
		EntryCount:   len(tabled),
		BucketCount:  len(buckets),
		IndexSize:    indexSize,
		PayloadBytes: payload,
		Skipped:      skipped,
		Seed:         seed,
	}, nil
}

// packer holds state for archive creation.
type packer struct {
	cfg createConfig
}

// log returns the logger, falling back to a discard logger if nil.
func (p *packer) log() *slog.Logger {
	if p.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.cfg.logger
}

// collect walks the tree and returns one member per regular file, in
// enumeration order. Files named after the output archive or the
// reserved listing manifest are excluded wherever they appear.
func (p *packer) collect(ctx context.Context, root *os.Root, outName string) ([]*member, error) {
	var members []*member
	err := fs.WalkDir(root.FS(), ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if name := d.Name(); name == outName || name == ReservedListName {
			p.log().Debug("excluded reserved file", "path", path)
			return nil
		}
		members = append(members, &member{relPath: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root.Name(), err)
	}
	return members, nil
}

// load reads, compresses, and hashes every member. Members are
// independent given the fixed enumeration order, so the work fans out
// across the configured workers without changing the result.
func (p *packer) load(ctx context.Context, root *os.Root, members []*member, seed uint32) (skipped int, err error) {
	g, gctx := errgroup.WithContext(ctx)
	workers := p.cfg.workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for _, m := range members {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, readErr := fs.ReadFile(root.FS(), m.relPath)
			if readErr != nil {
				if p.cfg.skipUnreadable {
					p.log().Warn("skipping unreadable file", "path", m.relPath, "error", readErr)
					m.failed = true
					return nil
				}
				return fmt.Errorf("read %s: %w", m.relPath, readErr)
			}
			if uint64(len(raw)) > math.MaxUint32 {
				return fmt.Errorf("%w: %s is %d bytes", ErrSizeOverflow, m.relPath, len(raw))
			}
			m.unpacked = uint32(len(raw))

			packed, zerr := zcodec.Compress(raw)
			if zerr != nil {
				return fmt.Errorf("compress %s: %w", m.relPath, zerr)
			}
			if uint64(len(packed)) > math.MaxUint32 {
				return fmt.Errorf("%w: %s compresses to %d bytes", ErrSizeOverflow, m.relPath, len(packed))
			}
			m.data = packed

			m.bucket, m.residual = pathhash.Split(pathhash.Sum(m.relPath, seed))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	for _, m := range members {
		if m.failed {
			skipped++
		}
	}
	return skipped, nil
}

// encodeIndex serializes, compresses, and encrypts the index with entry
// offsets laid out as a running sum from base. Records are built fresh
// each pass; members are never mutated.
func (p *packer) encodeIndex(buckets []index.Bucket, tabled []*member, base uint32) ([]byte, error) {
	records := make([]index.Entry, len(tabled))
	off := uint64(base)
	for i, m := range tabled {
		if off > math.MaxUint32 {
			return nil, ErrSizeOverflow
		}
		records[i] = index.Entry{
			BucketKey:    m.bucket,
			Residual:     m.residual,
			Packed:       true,
			UnpackedSize: m.unpacked,
			PackedSize:   uint32(len(m.data)),
			DataOffset:   uint32(off),
		}
		off += uint64(len(m.data))
	}
	if off > math.MaxUint32 {
		return nil, ErrSizeOverflow
	}

	blob := index.Marshal(buckets, records)
	packed, err := zcodec.Compress(blob)
	if err != nil {
		return nil, fmt.Errorf("compress index: %w", err)
	}
	encrypted, err := indexcrypt.Encrypt(packed)
	if err != nil {
		return nil, fmt.Errorf("encrypt index: %w", err)
	}
	return encrypted, nil
}

// writeArchive writes the final file through a temp file in the target
// directory, renaming into place on success.
func writeArchive(out string, seed uint32, entryCount, bucketCount int, encIndex []byte, tabled []*member) error {
	hdr := make([]byte, HeaderSize)
	copy(hdr[offSignature:], Signature)
	copy(hdr[offVersion:], Version)
	binary.LittleEndian.PutUint32(hdr[offEntryCount:], uint32(entryCount))
	binary.LittleEndian.PutUint32(hdr[offBucketCount:], uint32(bucketCount))
	binary.LittleEndian.PutUint32(hdr[offIndexSize:], uint32(len(encIndex)))
	binary.LittleEndian.PutUint32(hdr[offSeed:], seed)

	dir := filepath.Dir(out)
	tmp, err := os.CreateTemp(dir, ".tac-*")
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	tmpPath := tmp.Name()

	write := func(b []byte) error {
		_, werr := tmp.Write(b)
		return werr
	}
	err = write(hdr)
	if err == nil {
		err = write(encIndex)
	}
	for i := 0; err == nil && i < len(tabled); i++ {
		err = write(tabled[i].data)
	}
	if err == nil {
		err = tmp.Close()
	} else {
		tmp.Close()
	}
	if err == nil {
		err = os.Rename(tmpPath, out)
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}
