// Package section defines the binary records of the archive layout written by mezip.
//
// The layout follows the classic ZIP structure without ZIP64 extensions:
//
//	┌──────────────────────────────────────────────┐
//	│ Prefix (optional, e.g. a self-extractor stub) │
//	├──────────────────────────────────────────────┤
//	│ Local header 1 (30 bytes + name + extra)      │
//	│ Payload 1                                     │
//	│ ...                                           │
//	│ Local header N                                │
//	│ Payload N                                     │
//	├──────────────────────────────────────────────┤
//	│ Central header 1..N (46 bytes + name +        │
//	│                      extra + comment)         │
//	├──────────────────────────────────────────────┤
//	│ End of central directory (22 bytes + comment) │
//	└──────────────────────────────────────────────┘
//
// Every record type provides Bytes/AppendTo for serialization and Parse for
// decoding. All multi-byte fields are little-endian, encoded through the
// endian package.
//
// Offsets are absolute positions in the archive stream, so a prefix stub
// shifts every LocalHeaderOffset by its length.
package section
