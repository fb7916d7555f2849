package tac

// Archive file constants.
const (
	// Signature begins every archive file.
	Signature = "TArc"

	// Version is the 5-byte format revision marker, trailing NUL included.
	Version = "1.10\x00"

	// HeaderSize is the fixed byte count before the encrypted index.
	// The four header fields end at 0x19; the bytes up to 0x2C are
	// unspecified padding, written as zeros.
	HeaderSize = 0x2C

	// ReservedListName is the listing manifest filename the packer never
	// archives.
	ReservedListName = "tanuki.lst"
)

// Header field offsets from the start of the file. All counts and sizes
// are unsigned 32-bit little-endian.
const (
	offSignature   = 0x00
	offVersion     = 0x04
	offEntryCount  = 0x09
	offBucketCount = 0x0D
	offIndexSize   = 0x11
	offSeed        = 0x15
)
