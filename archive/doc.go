// Package archive writes and reads the ZIP container produced by an update.
//
// Writer is the single-owner, append-only sink of an update run. Every entry
// starts with a reserved local header placeholder; its payload is streamed
// through a direct sink (or copied from the prior archive) and the header is
// backpatched by Finalize once the method, checksum and sizes are known. The
// central directory and the end record are written last by WriteDirectory.
//
// Prior is the parsed directory of an existing archive. It supplies the byte
// ranges of entries that are reused unchanged or under new properties.
//
// The layout is plain ZIP without ZIP64: every size and offset must fit in 32
// bits and at most 65535 entries are supported. Anything larger is reported
// as errs.ErrUnsupportedOperation.
package archive
