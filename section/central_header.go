package section

import (
	"fmt"

	"github.com/arloliu/mezip/errs"
)

// CentralHeader is one record of the trailing central directory.
type CentralHeader struct {
	MadeBy         uint16
	ExtractVersion uint16
	Flags          uint16
	Method         uint16
	ModTime        uint16
	ModDate        uint16
	CRC32          uint32
	PackSize       uint32
	UnpackSize     uint32
	DiskStart      uint16
	InternalAttrs  uint16
	ExternalAttrs  uint32
	// LocalHeaderOffset is the absolute position of the entry's local header.
	LocalHeaderOffset uint32

	Name    string
	Extra   []byte
	Comment []byte
}

// Size returns the encoded size of the record.
func (h *CentralHeader) Size() int {
	return CentralHeaderSize + len(h.Name) + len(h.Extra) + len(h.Comment)
}

// AppendTo appends the encoded record to b.
func (h *CentralHeader) AppendTo(b []byte) []byte {
	b = engine.AppendUint32(b, CentralHeaderSignature)
	b = engine.AppendUint16(b, h.MadeBy)
	b = engine.AppendUint16(b, h.ExtractVersion)
	b = engine.AppendUint16(b, h.Flags)
	b = engine.AppendUint16(b, h.Method)
	b = engine.AppendUint16(b, h.ModTime)
	b = engine.AppendUint16(b, h.ModDate)
	b = engine.AppendUint32(b, h.CRC32)
	b = engine.AppendUint32(b, h.PackSize)
	b = engine.AppendUint32(b, h.UnpackSize)
	b = engine.AppendUint16(b, uint16(len(h.Name)))    //nolint: gosec
	b = engine.AppendUint16(b, uint16(len(h.Extra)))   //nolint: gosec
	b = engine.AppendUint16(b, uint16(len(h.Comment))) //nolint: gosec
	b = engine.AppendUint16(b, h.DiskStart)
	b = engine.AppendUint16(b, h.InternalAttrs)
	b = engine.AppendUint32(b, h.ExternalAttrs)
	b = engine.AppendUint32(b, h.LocalHeaderOffset)
	b = append(b, h.Name...)
	b = append(b, h.Extra...)
	b = append(b, h.Comment...)

	return b
}

// Bytes serializes the record.
func (h *CentralHeader) Bytes() []byte {
	return h.AppendTo(make([]byte, 0, h.Size()))
}

// Parse parses one central directory record at the start of data.
//
// Returns:
//   - int: number of bytes consumed
//   - error: ErrInvalidHeaderSize or ErrInvalidSignature
func (h *CentralHeader) Parse(data []byte) (int, error) {
	if len(data) < CentralHeaderSize {
		return 0, errs.ErrInvalidHeaderSize
	}
	if sig := engine.Uint32(data[0:4]); sig != CentralHeaderSignature {
		return 0, fmt.Errorf("%w: central header 0x%08x", errs.ErrInvalidSignature, sig)
	}

	h.MadeBy = engine.Uint16(data[4:6])
	h.ExtractVersion = engine.Uint16(data[6:8])
	h.Flags = engine.Uint16(data[8:10])
	h.Method = engine.Uint16(data[10:12])
	h.ModTime = engine.Uint16(data[12:14])
	h.ModDate = engine.Uint16(data[14:16])
	h.CRC32 = engine.Uint32(data[16:20])
	h.PackSize = engine.Uint32(data[20:24])
	h.UnpackSize = engine.Uint32(data[24:28])
	nameLen := int(engine.Uint16(data[28:30]))
	extraLen := int(engine.Uint16(data[30:32]))
	commentLen := int(engine.Uint16(data[32:34]))
	h.DiskStart = engine.Uint16(data[34:36])
	h.InternalAttrs = engine.Uint16(data[36:38])
	h.ExternalAttrs = engine.Uint32(data[38:42])
	h.LocalHeaderOffset = engine.Uint32(data[42:46])

	end := CentralHeaderSize + nameLen + extraLen + commentLen
	if len(data) < end {
		return 0, errs.ErrInvalidHeaderSize
	}

	pos := CentralHeaderSize
	h.Name = string(data[pos : pos+nameLen])
	pos += nameLen
	h.Extra = append([]byte(nil), data[pos:pos+extraLen]...)
	pos += extraLen
	h.Comment = append([]byte(nil), data[pos:pos+commentLen]...)

	return end, nil
}
