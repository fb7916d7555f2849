package tac

import "errors"

var (
	// ErrInputNotFound is returned when the pack source does not exist or
	// is not a directory.
	ErrInputNotFound = errors.New("tac: input directory not found")

	// ErrIndexSizeChanged is returned when the encrypted index size
	// differs between the provisional and final layout passes. Offsets
	// are fixed-width fields, so the size must be stable; a change means
	// an encoder bug, never a recoverable condition.
	ErrIndexSizeChanged = errors.New("tac: encrypted index size changed between layout passes")

	// ErrSizeOverflow is returned when a file or the archive layout
	// exceeds the format's unsigned 32-bit size fields.
	ErrSizeOverflow = errors.New("tac: size exceeds 32-bit format limit")

	// ErrBadSignature is returned when an archive does not start with the
	// format signature.
	ErrBadSignature = errors.New("tac: bad archive signature")

	// ErrBadVersion is returned when an archive carries an unsupported
	// format version.
	ErrBadVersion = errors.New("tac: unsupported archive version")

	// ErrIndexCorrupt is returned when the decrypted index fails to parse
	// or violates the bucket table invariants.
	ErrIndexCorrupt = errors.New("tac: index is corrupt")

	// ErrNotFound is returned when no entry matches a looked-up path.
	ErrNotFound = errors.New("tac: entry not found")
)
