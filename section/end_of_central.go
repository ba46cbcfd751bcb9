package section

import (
	"fmt"

	"github.com/arloliu/mezip/errs"
)

// EndOfCentral is the end of central directory record that closes an archive.
type EndOfCentral struct {
	DiskNumber   uint16
	DirDisk      uint16
	DiskEntries  uint16
	TotalEntries uint16
	DirSize      uint32
	DirOffset    uint32
	Comment      []byte
}

// Size returns the encoded size of the record including the comment.
func (e *EndOfCentral) Size() int {
	return EndOfCentralSize + len(e.Comment)
}

// Bytes serializes the record.
func (e *EndOfCentral) Bytes() []byte {
	b := make([]byte, 0, e.Size())
	b = engine.AppendUint32(b, EndOfCentralSignature)
	b = engine.AppendUint16(b, e.DiskNumber)
	b = engine.AppendUint16(b, e.DirDisk)
	b = engine.AppendUint16(b, e.DiskEntries)
	b = engine.AppendUint16(b, e.TotalEntries)
	b = engine.AppendUint32(b, e.DirSize)
	b = engine.AppendUint32(b, e.DirOffset)
	b = engine.AppendUint16(b, uint16(len(e.Comment))) //nolint: gosec
	b = append(b, e.Comment...)

	return b
}

// Parse parses the record at the start of data.
func (e *EndOfCentral) Parse(data []byte) error {
	if len(data) < EndOfCentralSize {
		return errs.ErrInvalidHeaderSize
	}
	if sig := engine.Uint32(data[0:4]); sig != EndOfCentralSignature {
		return fmt.Errorf("%w: end of central 0x%08x", errs.ErrInvalidSignature, sig)
	}

	e.DiskNumber = engine.Uint16(data[4:6])
	e.DirDisk = engine.Uint16(data[6:8])
	e.DiskEntries = engine.Uint16(data[8:10])
	e.TotalEntries = engine.Uint16(data[10:12])
	e.DirSize = engine.Uint32(data[12:16])
	e.DirOffset = engine.Uint32(data[16:20])
	commentLen := int(engine.Uint16(data[20:22]))
	if len(data) < EndOfCentralSize+commentLen {
		return errs.ErrInvalidHeaderSize
	}
	e.Comment = append([]byte(nil), data[EndOfCentralSize:EndOfCentralSize+commentLen]...)

	return nil
}

// FindEndOfCentral scans tail backwards for the end of central directory
// signature and returns its index in tail, or -1.
//
// tail should hold the last EndOfCentralSize+MaxCommentLength bytes of the archive.
// A candidate is accepted only when its comment length reaches exactly the end of tail.
func FindEndOfCentral(tail []byte) int {
	for i := len(tail) - EndOfCentralSize; i >= 0; i-- {
		if engine.Uint32(tail[i:i+4]) != EndOfCentralSignature {
			continue
		}
		commentLen := int(engine.Uint16(tail[i+20 : i+22]))
		if i+EndOfCentralSize+commentLen == len(tail) {
			return i
		}
	}

	return -1
}
