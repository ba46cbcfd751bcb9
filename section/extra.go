package section

import (
	"fmt"

	"github.com/arloliu/mezip/errs"
)

// ExtraBlock is one sub-block of an extra field.
type ExtraBlock struct {
	ID   uint16
	Data []byte
}

// Size returns the encoded size of the sub-block.
func (b ExtraBlock) Size() int {
	return ExtraBlockHeader + len(b.Data)
}

// ParseExtra splits an extra field into its sub-blocks.
func ParseExtra(data []byte) ([]ExtraBlock, error) {
	var blocks []ExtraBlock
	for len(data) > 0 {
		if len(data) < ExtraBlockHeader {
			return nil, errs.ErrInvalidExtraField
		}
		id := engine.Uint16(data[0:2])
		size := int(engine.Uint16(data[2:4]))
		if len(data) < ExtraBlockHeader+size {
			return nil, fmt.Errorf("%w: sub-block 0x%04x truncated", errs.ErrInvalidExtraField, id)
		}
		blocks = append(blocks, ExtraBlock{ID: id, Data: data[ExtraBlockHeader : ExtraBlockHeader+size]})
		data = data[ExtraBlockHeader+size:]
	}

	return blocks, nil
}

// AppendExtra appends the encoded sub-blocks to dst.
func AppendExtra(dst []byte, blocks ...ExtraBlock) []byte {
	for _, b := range blocks {
		dst = engine.AppendUint16(dst, b.ID)
		dst = engine.AppendUint16(dst, uint16(len(b.Data))) //nolint: gosec
		dst = append(dst, b.Data...)
	}

	return dst
}

// KeepKnownExtra drops every sub-block whose id is not understood by the writer.
// Malformed fields are dropped entirely.
func KeepKnownExtra(data []byte) []byte {
	blocks, err := ParseExtra(data)
	if err != nil {
		return nil
	}

	var out []byte
	for _, b := range blocks {
		if b.ID == ExtraIDAES {
			out = AppendExtra(out, b)
		}
	}

	return out
}

// HasExtra reports whether the extra field carries a sub-block with the given id.
func HasExtra(data []byte, id uint16) bool {
	blocks, err := ParseExtra(data)
	if err != nil {
		return false
	}
	for _, b := range blocks {
		if b.ID == id {
			return true
		}
	}

	return false
}

// AESExtra is the WinZip AES sub-record carried by encrypted entries.
// The real compression method is stored here while the header method is 99.
type AESExtra struct {
	VendorVersion uint16 // 1 = AE-1, 2 = AE-2 (CRC not stored)
	Strength      uint8  // 1 = 128, 2 = 192, 3 = 256 bit
	Method        uint16
}

// AESExtraSize is the encoded size of the AES sub-block including its header.
const AESExtraSize = ExtraBlockHeader + 7

// Block encodes the sub-record.
func (a AESExtra) Block() ExtraBlock {
	data := make([]byte, 0, 7)
	data = engine.AppendUint16(data, a.VendorVersion)
	data = append(data, 'A', 'E')
	data = append(data, a.Strength)
	data = engine.AppendUint16(data, a.Method)

	return ExtraBlock{ID: ExtraIDAES, Data: data}
}

// ParseAESExtra decodes the AES sub-record from a sub-block.
func ParseAESExtra(b ExtraBlock) (AESExtra, error) {
	if b.ID != ExtraIDAES || len(b.Data) != 7 || b.Data[2] != 'A' || b.Data[3] != 'E' {
		return AESExtra{}, errs.ErrInvalidExtraField
	}

	return AESExtra{
		VendorVersion: engine.Uint16(b.Data[0:2]),
		Strength:      b.Data[4],
		Method:        engine.Uint16(b.Data[5:7]),
	}, nil
}
