package pathhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumDeterministic(t *testing.T) {
	t.Parallel()

	first := Sum("data/ui/title.png", 0xDEADBEEF)
	for range 10 {
		require.Equal(t, first, Sum("data/ui/title.png", 0xDEADBEEF))
	}
}

func TestSumKnownValues(t *testing.T) {
	t.Parallel()

	// h = code + 0x19919*h + seed, accumulated left to right.
	assert.Equal(t, uint64(0), Sum("", 0))
	assert.Equal(t, uint64('A'), Sum("a", 0))
	assert.Equal(t, uint64('A')+7, Sum("a", 7))
	assert.Equal(t, uint64('B')+0x19919*uint64('A'), Sum("ab", 0))
}

func TestSumNormalizesCaseAndSeparators(t *testing.T) {
	t.Parallel()

	seeds := []uint32{0, 1, 0x19919, 0xFFFFFFFF}
	for _, seed := range seeds {
		want := Sum("a/b.txt", seed)
		assert.Equal(t, want, Sum(`A\B.TXT`, seed), "seed %#x", seed)
		assert.Equal(t, want, Sum(`a\B.Txt`, seed), "seed %#x", seed)
	}
}

func TestSumSeedDependent(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, Sum("a.txt", 1), Sum("a.txt", 2))
}

func TestSplit(t *testing.T) {
	t.Parallel()

	bucket, residual := Split(0xABCD_1234_5678_9ABC)
	assert.Equal(t, uint16(0xABCD), bucket)
	assert.Equal(t, uint64(0x1234_5678_9ABC), residual)

	bucket, residual = Split(0)
	assert.Equal(t, uint16(0), bucket)
	assert.Equal(t, uint64(0), residual)

	bucket, residual = Split(^uint64(0))
	assert.Equal(t, uint16(0xFFFF), bucket)
	assert.Equal(t, uint64(1<<48-1), residual)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SUB/B.TXT", Normalize(`sub\b.txt`))
	assert.Equal(t, "A/B/C", Normalize("a/b/c"))
	assert.Equal(t, "", Normalize(""))
}
