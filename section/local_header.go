package section

import (
	"fmt"

	"github.com/arloliu/mezip/endian"
	"github.com/arloliu/mezip/errs"
)

var engine = endian.GetLittleEndianEngine()

// LocalHeader is the record written immediately before each entry payload.
type LocalHeader struct {
	ExtractVersion uint16 // byte offset 4-5
	Flags          uint16 // byte offset 6-7
	Method         uint16 // byte offset 8-9
	ModTime        uint16 // byte offset 10-11
	ModDate        uint16 // byte offset 12-13
	CRC32          uint32 // byte offset 14-17
	PackSize       uint32 // byte offset 18-21
	UnpackSize     uint32 // byte offset 22-25
	// byte offset 26-27 name length, 28-29 extra length

	Name  string
	Extra []byte
}

// Size returns the encoded size of the header including name and extra.
func (h *LocalHeader) Size() int {
	return LocalHeaderSize + len(h.Name) + len(h.Extra)
}

// Bytes serializes the header.
func (h *LocalHeader) Bytes() []byte {
	b := make([]byte, 0, h.Size())

	return h.AppendTo(b)
}

// AppendTo appends the encoded header to b and returns the extended slice.
func (h *LocalHeader) AppendTo(b []byte) []byte {
	b = engine.AppendUint32(b, LocalHeaderSignature)
	b = engine.AppendUint16(b, h.ExtractVersion)
	b = engine.AppendUint16(b, h.Flags)
	b = engine.AppendUint16(b, h.Method)
	b = engine.AppendUint16(b, h.ModTime)
	b = engine.AppendUint16(b, h.ModDate)
	b = engine.AppendUint32(b, h.CRC32)
	b = engine.AppendUint32(b, h.PackSize)
	b = engine.AppendUint32(b, h.UnpackSize)
	b = engine.AppendUint16(b, uint16(len(h.Name)))  //nolint: gosec
	b = engine.AppendUint16(b, uint16(len(h.Extra))) //nolint: gosec
	b = append(b, h.Name...)
	b = append(b, h.Extra...)

	return b
}

// ParseFixed parses the fixed 30-byte part of a local header.
//
// Returns:
//   - nameLen, extraLen: lengths of the variable part that follows the fixed part
//   - error: ErrInvalidHeaderSize or ErrInvalidSignature
func (h *LocalHeader) ParseFixed(data []byte) (nameLen, extraLen int, err error) {
	if len(data) < LocalHeaderSize {
		return 0, 0, errs.ErrInvalidHeaderSize
	}
	if sig := engine.Uint32(data[0:4]); sig != LocalHeaderSignature {
		return 0, 0, fmt.Errorf("%w: local header 0x%08x", errs.ErrInvalidSignature, sig)
	}

	h.ExtractVersion = engine.Uint16(data[4:6])
	h.Flags = engine.Uint16(data[6:8])
	h.Method = engine.Uint16(data[8:10])
	h.ModTime = engine.Uint16(data[10:12])
	h.ModDate = engine.Uint16(data[12:14])
	h.CRC32 = engine.Uint32(data[14:18])
	h.PackSize = engine.Uint32(data[18:22])
	h.UnpackSize = engine.Uint32(data[22:26])

	return int(engine.Uint16(data[26:28])), int(engine.Uint16(data[28:30])), nil
}

// Parse parses a complete local header including name and extra.
func (h *LocalHeader) Parse(data []byte) error {
	nameLen, extraLen, err := h.ParseFixed(data)
	if err != nil {
		return err
	}
	if len(data) < LocalHeaderSize+nameLen+extraLen {
		return errs.ErrInvalidHeaderSize
	}

	h.Name = string(data[LocalHeaderSize : LocalHeaderSize+nameLen])
	h.Extra = append([]byte(nil), data[LocalHeaderSize+nameLen:LocalHeaderSize+nameLen+extraLen]...)

	return nil
}
