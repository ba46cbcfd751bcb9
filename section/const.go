package section

import "math"

// Record signatures.
const (
	LocalHeaderSignature    uint32 = 0x04034b50
	CentralHeaderSignature  uint32 = 0x02014b50
	EndOfCentralSignature   uint32 = 0x06054b50
	DataDescriptorSignature uint32 = 0x08074b50
)

// Fixed record sizes in bytes, excluding variable-length name, extra and comment.
const (
	LocalHeaderSize    = 30
	CentralHeaderSize  = 46
	EndOfCentralSize   = 22
	DataDescriptorSize = 16 // signature + crc + packed + unpacked
	ExtraBlockHeader   = 4  // id + size
)

// Limits of the non-ZIP64 layout.
const (
	MaxNameLength    = math.MaxUint16
	MaxExtraLength   = math.MaxUint16
	MaxCommentLength = math.MaxUint16
	MaxEntries       = math.MaxUint16
	MaxOffset        = math.MaxUint32
	MaxSize          = math.MaxUint32
)

// Extra field ids.
const (
	ExtraIDAES uint16 = 0x9901
)

// IsDataDescriptorSignature reports whether b starts with the optional data descriptor signature.
func IsDataDescriptorSignature(b []byte) bool {
	return len(b) >= 4 && engine.Uint32(b) == DataDescriptorSignature
}
