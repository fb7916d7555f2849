package tac

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree materializes files (slash-separated paths to content) under a
// fresh temp directory.
func writeTree(t *testing.T, files map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for path, content := range files {
		dest := filepath.Join(dir, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o750))
		require.NoError(t, os.WriteFile(dest, content, 0o644))
	}
	return dir
}

// createTestArchive packs files with a fixed seed and opens the result.
func createTestArchive(t *testing.T, files map[string][]byte, opts ...CreateOption) (*Archive, string, *Stats) {
	t.Helper()
	dir := writeTree(t, files)
	out := filepath.Join(t.TempDir(), "test.tac")

	opts = append([]CreateOption{CreateWithSeed(0x1234ABCD)}, opts...)
	stats, err := Create(context.Background(), dir, out, opts...)
	require.NoError(t, err)

	a, err := Open(out)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, out, stats
}

func TestCreateRoundTrip(t *testing.T) {
	t.Parallel()

	a, _, stats := createTestArchive(t, map[string][]byte{
		"a.txt":     []byte("hello"),
		"sub/b.txt": []byte("world"),
	})

	assert.Equal(t, 2, a.Len())
	assert.Contains(t, []int{1, 2}, a.BucketCount())
	assert.Equal(t, uint32(0x1234ABCD), a.Seed())
	assert.Equal(t, 2, stats.EntryCount)
	assert.Equal(t, a.BucketCount(), stats.BucketCount)

	got, err := a.ReadFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	got, err = a.ReadFile("sub/b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("world"), got)

	require.NoError(t, a.VerifyLayout())
}

func TestCreateEmptyDir(t *testing.T) {
	t.Parallel()

	a, out, stats := createTestArchive(t, nil)

	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 0, a.BucketCount())
	assert.Equal(t, 0, stats.EntryCount)
	assert.Zero(t, stats.PayloadBytes)
	require.NoError(t, a.VerifyLayout())

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, int64(HeaderSize+stats.IndexSize), info.Size())

	_, ok := a.Lookup("anything")
	assert.False(t, ok)
}

func TestCreateHeaderLayout(t *testing.T) {
	t.Parallel()

	a, out, stats := createTestArchive(t, map[string][]byte{
		"one.bin": bytes.Repeat([]byte{1}, 100),
		"two.bin": bytes.Repeat([]byte{2}, 200),
	})

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), HeaderSize)

	assert.Equal(t, []byte("TArc"), raw[0:4])
	assert.Equal(t, []byte{'1', '.', '1', '0', 0}, raw[4:9])
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(raw[0x09:]))
	assert.Equal(t, uint32(a.BucketCount()), binary.LittleEndian.Uint32(raw[0x0D:]))
	assert.Equal(t, uint32(stats.IndexSize), binary.LittleEndian.Uint32(raw[0x11:]))
	assert.Equal(t, uint32(0x1234ABCD), binary.LittleEndian.Uint32(raw[0x15:]))

	// Unspecified header padding is written as zeros.
	assert.Equal(t, make([]byte, HeaderSize-0x19), raw[0x19:HeaderSize])

	// Encrypted index length is a whole number of cipher blocks.
	assert.Zero(t, stats.IndexSize%8)
}

func TestCreateDeterministicWithSeed(t *testing.T) {
	t.Parallel()

	files := map[string][]byte{
		"a.txt":       []byte("alpha"),
		"b/c.txt":     []byte("bravo"),
		"b/d/e.dat":   bytes.Repeat([]byte{0xAB}, 4096),
		"z/last.file": []byte("zulu"),
	}
	dir := writeTree(t, files)

	outA := filepath.Join(t.TempDir(), "a.tac")
	outB := filepath.Join(t.TempDir(), "b.tac")
	_, err := Create(context.Background(), dir, outA, CreateWithSeed(99))
	require.NoError(t, err)
	_, err = Create(context.Background(), dir, outB, CreateWithSeed(99))
	require.NoError(t, err)

	bytesA, err := os.ReadFile(outA)
	require.NoError(t, err)
	bytesB, err := os.ReadFile(outB)
	require.NoError(t, err)
	assert.Equal(t, bytesA, bytesB)
}

func TestCreateParallelMatchesSequential(t *testing.T) {
	t.Parallel()

	files := make(map[string][]byte)
	for i := range 50 {
		files[filepath.ToSlash(filepath.Join("dir", string(rune('a'+i%26)), "file"+string(rune('0'+i%10))+".bin"))] =
			bytes.Repeat([]byte{byte(i)}, 100+i*37)
	}
	dir := writeTree(t, files)

	outSeq := filepath.Join(t.TempDir(), "seq.tac")
	outPar := filepath.Join(t.TempDir(), "par.tac")
	_, err := Create(context.Background(), dir, outSeq, CreateWithSeed(7), CreateWithWorkers(1))
	require.NoError(t, err)
	_, err = Create(context.Background(), dir, outPar, CreateWithSeed(7), CreateWithWorkers(8))
	require.NoError(t, err)

	seq, err := os.ReadFile(outSeq)
	require.NoError(t, err)
	par, err := os.ReadFile(outPar)
	require.NoError(t, err)
	assert.Equal(t, seq, par)
}

func TestCreateExcludesReservedNames(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string][]byte{
		"keep.txt":       []byte("keep"),
		"tanuki.lst":     []byte("listing"),
		"sub/tanuki.lst": []byte("nested listing"),
		"game.tac":       []byte("stale archive"),
	})
	out := filepath.Join(dir, "game.tac")

	stats, err := Create(context.Background(), dir, out, CreateWithSeed(1))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EntryCount)

	a, err := Open(out)
	require.NoError(t, err)
	defer a.Close()

	got, err := a.ReadFile("keep.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("keep"), got)

	_, ok := a.Lookup("tanuki.lst")
	assert.False(t, ok)
}

func TestCreateMissingInput(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "out.tac")
	_, err := Create(context.Background(), filepath.Join(t.TempDir(), "nope"), out)
	require.ErrorIs(t, err, ErrInputNotFound)
	assert.NoFileExists(t, out)
}

func TestCreateInputIsFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := Create(context.Background(), file, filepath.Join(dir, "out.tac"))
	require.ErrorIs(t, err, ErrInputNotFound)
}

func TestCreateCancelled(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string][]byte{"a.txt": []byte("a")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Create(ctx, dir, filepath.Join(t.TempDir(), "out.tac"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestCreateEntryOrderInvariant(t *testing.T) {
	t.Parallel()

	files := make(map[string][]byte)
	for i := range 200 {
		name := "assets/f" + string(rune('a'+i%26)) + string(rune('a'+(i/26)%26)) + string(rune('0'+i%10)) + ".dat"
		files[name] = []byte{byte(i), byte(i >> 1)}
	}
	a, _, stats := createTestArchive(t, files)
	require.Equal(t, len(files), a.Len())

	var prev EntryInfo
	first := true
	var payload uint64
	for e := range a.Entries() {
		if !first {
			less := prev.BucketKey < e.BucketKey ||
				(prev.BucketKey == e.BucketKey && prev.Residual <= e.Residual)
			assert.True(t, less, "entries out of (bucket, residual) order")
		}
		assert.True(t, e.Packed)
		payload += uint64(e.PackedSize)
		prev, first = e, false
	}
	assert.Equal(t, stats.PayloadBytes, payload)
	require.NoError(t, a.VerifyLayout())
}

func TestLookupNormalizesPath(t *testing.T) {
	t.Parallel()

	a, _, _ := createTestArchive(t, map[string][]byte{
		"sub/b.txt": []byte("world"),
	})

	for _, alias := range []string{"sub/b.txt", `SUB\B.TXT`, `Sub\b.Txt`} {
		got, err := a.ReadFile(alias)
		require.NoError(t, err, "alias %q", alias)
		assert.Equal(t, []byte("world"), got)
	}
}

func TestReadFileMissing(t *testing.T) {
	t.Parallel()

	a, _, _ := createTestArchive(t, map[string][]byte{"a.txt": []byte("a")})
	_, err := a.ReadFile("missing.txt")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateKeepsHashCollidingPaths(t *testing.T) {
	t.Parallel()

	// "readme.txt" and "README.TXT" normalize to the same hash. The
	// packer is permissive: both are archived, lookup returns the first
	// in table order.
	dir := writeTree(t, map[string][]byte{
		"readme.txt": []byte("lower"),
		"README.TXT": []byte("upper"),
	})
	if ents, err := os.ReadDir(dir); err != nil || len(ents) != 2 {
		t.Skip("needs a case-sensitive filesystem")
	}

	out := filepath.Join(t.TempDir(), "dup.tac")
	stats, err := Create(context.Background(), dir, out, CreateWithSeed(0x1234ABCD))
	require.NoError(t, err)

	a, err := Open(out)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 2, stats.EntryCount)
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 1, a.BucketCount())

	got, err := a.ReadFile("readme.txt")
	require.NoError(t, err)
	assert.Contains(t, [][]byte{[]byte("lower"), []byte("upper")}, got)
}

func TestCreateSkipUnreadable(t *testing.T) {
	t.Parallel()
	if os.Geteuid() == 0 {
		t.Skip("permission bits do not bind root")
	}

	dir := writeTree(t, map[string][]byte{
		"ok.txt":  []byte("fine"),
		"bad.txt": []byte("unreadable"),
	})
	require.NoError(t, os.Chmod(filepath.Join(dir, "bad.txt"), 0o000))
	out := filepath.Join(t.TempDir(), "out.tac")

	_, err := Create(context.Background(), dir, out, CreateWithSeed(1))
	require.Error(t, err)

	stats, err := Create(context.Background(), dir, out, CreateWithSeed(1), CreateWithSkipUnreadable(true))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EntryCount)
	assert.Equal(t, 1, stats.Skipped)
}
