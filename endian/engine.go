// Package endian provides the byte order engine used to encode and decode
// archive records.
//
// Every multi-byte field of a ZIP record is little-endian, so the package
// exposes a single engine. The EndianEngine interface combines ByteOrder and
// AppendByteOrder so record encoders can either patch fixed offsets or append
// fields to a growing buffer:
//
//	engine := endian.GetLittleEndianEngine()
//	buf = engine.AppendUint32(buf, section.LocalHeaderSignature)
//	size := engine.Uint32(record[18:22])
//
// The returned engine is immutable and safe for concurrent use.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder interfaces from encoding/binary
// into a single interface for convenient byte order operations.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// AppendUint8 appends a single byte. Provided so record encoders can chain
// all field appends through one helper set.
func AppendUint8(b []byte, v uint8) []byte {
	return append(b, v)
}
