// Package tac implements the TAC archive container: a single file packing
// a directory tree behind a hash-bucketed, zlib-compressed,
// Blowfish-encrypted index.
//
// Members are addressed by relative path. Paths are never stored; each is
// reduced to a 64-bit hash under a per-archive seed, the top 16 bits
// selecting a bucket and the low 48 bits ordering entries within it. A
// reader recomputes the hash from the seed in the header, so lookup costs
// one bucket binary search plus a scan of that bucket.
//
// The file layout is:
//   - signature "TArc" and version "1.10\x00"
//   - header: entry count, bucket count, encrypted index size, seed
//     (u32 little-endian each), zero padding to offset 0x2C
//   - the index (bucket table then entry table, fixed-width records),
//     zlib-compressed and Blowfish-ECB encrypted under a fixed format key
//   - every member's zlib stream, concatenated in entry-table order
//
// [Create] packs a directory; [Open] reads an archive back. Because the
// format stores hashes rather than names, extraction needs a caller-
// supplied name list (conventionally a tanuki.lst manifest, which the
// packer itself never archives).
package tac
