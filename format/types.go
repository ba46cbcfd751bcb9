package format

import "fmt"

type (
	Method uint16
	HostOS uint8
)

const (
	MethodStore   Method = 0      // MethodStore stores the payload without compression.
	MethodDeflate Method = 8      // MethodDeflate represents raw DEFLATE.
	MethodZstd    Method = 93     // MethodZstd represents Zstandard.
	MethodWzAES   Method = 99     // MethodWzAES marks an entry whose real method lives in the AES sub-record.
	MethodS2      Method = 0x5332 // MethodS2 is a private id for S2 streams.
	MethodLZ4     Method = 0x4c34 // MethodLZ4 is a private id for LZ4 frames.
)

const (
	HostFAT  HostOS = 0
	HostUnix HostOS = 3
)

// General purpose flag bits.
const (
	FlagEncrypted      uint16 = 0x0001
	FlagDataDescriptor uint16 = 0x0008
	FlagUTF8           uint16 = 0x0800
)

// Version needed to extract, multiplied by ten as in the record.
const (
	VersionStore   uint16 = 10
	VersionDeflate uint16 = 20
	VersionAES     uint16 = 51
	VersionZstd    uint16 = 63
	VersionMadeBy  uint16 = 63
)

// DOS directory attribute bit of the external attributes field.
const AttrDirectory uint32 = 0x10

func (m Method) String() string {
	switch m {
	case MethodStore:
		return "Store"
	case MethodDeflate:
		return "Deflate"
	case MethodZstd:
		return "Zstd"
	case MethodWzAES:
		return "WzAES"
	case MethodS2:
		return "S2"
	case MethodLZ4:
		return "LZ4"
	default:
		return fmt.Sprintf("Method(%d)", uint16(m))
	}
}

// ParseMethod parses the lower-case method name used in configuration files.
func ParseMethod(name string) (Method, error) {
	switch name {
	case "store", "none":
		return MethodStore, nil
	case "deflate":
		return MethodDeflate, nil
	case "zstd":
		return MethodZstd, nil
	case "s2":
		return MethodS2, nil
	case "lz4":
		return MethodLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression method: %q", name)
	}
}

// MadeBy packs the host OS and program version into the made-by field.
func MadeBy(host HostOS, version uint16) uint16 {
	return uint16(host)<<8 | version&0xff
}
