// Package compress provides the streaming codecs used to produce archive entry payloads.
//
// # Overview
//
// Every codec streams: a caller obtains an io.WriteCloser from NewWriter,
// copies the item content into it and closes it to finalize the stream. The
// Compressor type wraps that flow and additionally reports the IEEE CRC-32 and
// both sizes, which is everything an entry header needs.
//
// The package defines three core interfaces:
//
//	type Encoder interface {
//	    Method() format.Method
//	    ExtractVersion() uint16
//	    ConcurrencyUnit() int64
//	    NewWriter(w io.Writer, level, concurrency int) (io.WriteCloser, error)
//	}
//
//	type Decoder interface {
//	    Method() format.Method
//	    NewReader(r io.Reader) (io.ReadCloser, error)
//	}
//
//	type Codec interface {
//	    Encoder
//	    Decoder
//	}
//
// # Supported Methods
//
//	Method   | Id     | Parallel stream | Library
//	---------|--------|-----------------|-------------------------------
//	Store    | 0      | no              | none
//	Deflate  | 8      | no              | klauspost/compress/flate
//	Zstd     | 93     | yes             | klauspost/compress/zstd (gozstd with the "gozstd" tag)
//	S2       | 0x5332 | yes             | klauspost/compress/s2
//	LZ4      | 0x4c34 | yes             | pierrec/lz4/v4
//
// S2 and LZ4 use private method ids, so only readers that register matching
// decompressors can extract them.
//
// # Concurrency
//
// ConcurrencyUnit reports how many input bytes one internal goroutine of the
// codec works on. The update coordinator uses it to split its thread budget
// between whole-file workers and per-stream goroutines; a value of 0 means
// the codec is sequential and every thread becomes a file worker.
//
// # Registry
//
// A Registry maps method ids to codecs. NewRegistry installs all built-ins;
// tests register instrumented codecs on an empty registry.
//
//	reg := compress.NewRegistry()
//	codec, err := reg.Resolve([]format.Method{format.MethodZstd, format.MethodDeflate})
//	res, err := compress.NewCompressor(codec, 0, 1).Compress(src, dst, nil)
//
// # Thread Safety
//
// Codecs and Registry are safe for concurrent use. A Compressor holds no
// per-call state and may be shared as well.
package compress
