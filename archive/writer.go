package archive

import (
	"fmt"
	"io"

	"github.com/arloliu/mezip/compress"
	"github.com/arloliu/mezip/errs"
	"github.com/arloliu/mezip/format"
	"github.com/arloliu/mezip/internal/options"
	"github.com/arloliu/mezip/internal/pool"
	"github.com/arloliu/mezip/section"
)

// AES key strength codes of the AES sub-record.
const (
	AES128 uint8 = 1
	AES192 uint8 = 2
	AES256 uint8 = 3
)

const aesVendorAE2 = 2

type writerState uint8

const (
	stateOpen writerState = iota
	stateDirect
	stateClosed
)

// WriterOption configures a Writer.
type WriterOption = options.Option[*Writer]

// WithEncryption marks every non-directory entry as encrypted with the given
// AES key strength (AES128, AES192 or AES256).
func WithEncryption(strength uint8) WriterOption {
	return options.New(func(w *Writer) error {
		if strength < AES128 || strength > AES256 {
			return fmt.Errorf("%w: AES strength %d", errs.ErrInvalidConfig, strength)
		}
		w.encrypt = true
		w.strength = strength

		return nil
	})
}

// WithHostOS sets the host system recorded in the made-by field.
func WithHostOS(host format.HostOS) WriterOption {
	return options.NoError(func(w *Writer) {
		w.host = host
	})
}

// Writer is the append-only archive sink of an update run.
//
// A Writer is owned by one goroutine. Payload bytes reach it only through a
// DirectSink, WriteRange or the copy operations, so the writer always knows
// the current end offset without asking the underlying file.
type Writer struct {
	w        io.WriteSeeker
	pos      int64
	state    writerState
	entries  []Entry
	pending  int // reserved but not finalized placeholders
	encrypt  bool
	strength uint8
	host     format.HostOS
}

// NewWriter creates a writer appending at the current position of w.
func NewWriter(w io.WriteSeeker, opts ...WriterOption) (*Writer, error) {
	pos, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("archive writer position: %w", err)
	}

	aw := &Writer{w: w, pos: pos, host: format.HostFAT}
	if err := options.Apply(aw, opts...); err != nil {
		return nil, err
	}

	return aw, nil
}

// Pos returns the current end offset.
func (w *Writer) Pos() int64 {
	return w.pos
}

// Entries returns the finalized entries in write order.
func (w *Writer) Entries() []Entry {
	return w.entries
}

// Encrypted reports whether the writer marks entries as encrypted.
func (w *Writer) Encrypted() bool {
	return w.encrypt
}

// CopyPrefix copies the first n bytes of src verbatim. It must precede every entry.
//
// The prefix carries self-extractor stubs; entry offsets written afterwards
// stay absolute, so the stub keeps working.
func (w *Writer) CopyPrefix(src io.ReaderAt, n int64) error {
	if len(w.entries) > 0 || w.pending > 0 {
		return fmt.Errorf("%w: prefix after entries", errs.ErrWriterState)
	}

	return w.WriteRange(src, 0, n)
}

// WriteRange streams n bytes of src starting at off to the end of the archive.
func (w *Writer) WriteRange(src io.ReaderAt, off, n int64) error {
	if err := w.expect(stateOpen); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	buf, release := pool.GetCopyBuffer()
	defer release()

	written, err := io.CopyBuffer(w.w, io.NewSectionReader(src, off, n), buf)
	w.pos += written
	if err != nil {
		return fmt.Errorf("copy range [%d, %d): %w", off, off+n, err)
	}
	if written != n {
		return fmt.Errorf("copy range [%d, %d): %w", off, off+n, io.ErrUnexpectedEOF)
	}

	return nil
}

// Placeholder is a reserved local header waiting for Finalize.
type Placeholder struct {
	offset  int64
	size    int
	name    string
	info    Info
	written int64
	done    bool
}

// Reserve writes a placeholder local header for info and returns its handle.
//
// The placeholder already has its final size: the name is fixed and, in
// encryption mode, room for the AES sub-record is reserved for files.
func (w *Writer) Reserve(info Info) (*Placeholder, error) {
	if err := w.expect(stateOpen); err != nil {
		return nil, err
	}

	name := entryName(info)
	if name == "" || name == "/" {
		return nil, fmt.Errorf("%w: empty name", errs.ErrInvalidName)
	}
	if len(name) > section.MaxNameLength {
		return nil, fmt.Errorf("%w: name of %d bytes", errs.ErrUnsupportedOperation, len(name))
	}
	if w.pos > section.MaxOffset {
		return nil, fmt.Errorf("%w: local header offset %d exceeds 32 bits", errs.ErrUnsupportedOperation, w.pos)
	}

	p := &Placeholder{offset: w.pos, name: name, info: info}
	hdr := w.localHeader(p, compress.Result{})
	buf := pool.GetHeaderBuffer()
	defer pool.PutHeaderBuffer(buf)
	buf.B = hdr.AppendTo(buf.B)
	b := buf.Bytes()
	p.size = len(b)

	if err := w.write(b); err != nil {
		return nil, err
	}
	w.pending++

	return p, nil
}

// DirectSink streams one entry payload straight into the archive.
type DirectSink struct {
	w *Writer
	p *Placeholder
}

// Write implements io.Writer.
func (d *DirectSink) Write(b []byte) (int, error) {
	if d.w.state != stateDirect {
		return 0, fmt.Errorf("%w: direct sink closed", errs.ErrWriterState)
	}

	n, err := d.w.w.Write(b)
	d.w.pos += int64(n)
	d.p.written += int64(n)

	return n, err
}

// OpenDirect opens the payload sink of p. p must be the most recent reservation.
func (w *Writer) OpenDirect(p *Placeholder) (*DirectSink, error) {
	if err := w.expect(stateOpen); err != nil {
		return nil, err
	}
	if p.done || p.offset+int64(p.size)+p.written != w.pos {
		return nil, fmt.Errorf("%w: placeholder at %d is not the archive tail", errs.ErrWriterState, p.offset)
	}
	w.state = stateDirect

	return &DirectSink{w: w, p: p}, nil
}

// CloseDirect closes d and returns the payload size written through it.
func (w *Writer) CloseDirect(d *DirectSink) (int64, error) {
	if err := w.expect(stateDirect); err != nil {
		return 0, err
	}
	w.state = stateOpen

	return d.p.written, nil
}

// Finalize backpatches the header of p with the compression result.
//
// The payload size recorded in res must equal the bytes written through the
// direct sink. In encryption mode file entries get the encrypted flag, method
// 99, a cleared checksum and the AES sub-record holding the real method.
func (w *Writer) Finalize(p *Placeholder, res compress.Result) (Entry, error) {
	if err := w.expect(stateOpen); err != nil {
		return Entry{}, err
	}
	if p.done {
		return Entry{}, fmt.Errorf("%w: placeholder at %d finalized twice", errs.ErrWriterState, p.offset)
	}
	if int64(res.PackSize) != p.written { //nolint: gosec
		return Entry{}, fmt.Errorf("%w: packed size %d, payload written %d",
			errs.ErrPlaceholderMismatch, res.PackSize, p.written)
	}
	if res.PackSize > section.MaxSize || res.UnpackSize > section.MaxSize {
		return Entry{}, fmt.Errorf("%w: %q needs ZIP64 sizes", errs.ErrUnsupportedOperation, p.name)
	}

	hdr := w.localHeader(p, res)
	buf := pool.GetHeaderBuffer()
	defer pool.PutHeaderBuffer(buf)
	buf.B = hdr.AppendTo(buf.B)
	b := buf.Bytes()
	if len(b) != p.size {
		return Entry{}, fmt.Errorf("%w: header of %d bytes, reserved %d", errs.ErrPlaceholderMismatch, len(b), p.size)
	}

	if _, err := w.w.Seek(p.offset, io.SeekStart); err != nil {
		return Entry{}, fmt.Errorf("seek to header: %w", err)
	}
	if _, err := w.w.Write(b); err != nil {
		return Entry{}, fmt.Errorf("patch header: %w", err)
	}
	if _, err := w.w.Seek(w.pos, io.SeekStart); err != nil {
		return Entry{}, fmt.Errorf("seek to end: %w", err)
	}

	entry := Entry{
		Name:              hdr.Name,
		MadeBy:            format.MadeBy(w.host, format.VersionMadeBy),
		ExtractVersion:    hdr.ExtractVersion,
		Flags:             hdr.Flags,
		Method:            format.Method(hdr.Method),
		ModTime:           hdr.ModTime,
		ModDate:           hdr.ModDate,
		CRC32:             hdr.CRC32,
		PackSize:          hdr.PackSize,
		UnpackSize:        hdr.UnpackSize,
		ExternalAttrs:     p.info.ExternalAttrs,
		LocalHeaderOffset: uint32(p.offset), //nolint: gosec
		Extra:             hdr.Extra,
	}
	if p.info.IsDir {
		entry.ExternalAttrs |= format.AttrDirectory
	}

	p.done = true
	w.pending--
	w.entries = append(w.entries, entry)

	return entry, nil
}

// localHeader builds the header of p for res. With a zero res it is the placeholder.
func (w *Writer) localHeader(p *Placeholder, res compress.Result) *section.LocalHeader {
	date, tm := section.TimeToDOS(p.info.Modified)
	hdr := &section.LocalHeader{
		ExtractVersion: max(res.ExtractVersion, format.VersionStore),
		Flags:          nameFlags(p.name),
		Method:         uint16(res.Method),
		ModTime:        tm,
		ModDate:        date,
		CRC32:          res.CRC32,
		PackSize:       uint32(res.PackSize),   //nolint: gosec
		UnpackSize:     uint32(res.UnpackSize), //nolint: gosec
		Name:           p.name,
	}

	if p.info.IsDir {
		hdr.ExtractVersion = format.VersionDeflate
		hdr.Method = uint16(format.MethodStore)
		hdr.CRC32 = 0
		hdr.PackSize = 0
		hdr.UnpackSize = 0

		return hdr
	}

	if w.encrypt {
		aes := section.AESExtra{VendorVersion: aesVendorAE2, Strength: w.strength, Method: uint16(res.Method)}
		hdr.Extra = section.AppendExtra(nil, aes.Block())
		hdr.Flags |= format.FlagEncrypted
		hdr.Method = uint16(format.MethodWzAES)
		hdr.CRC32 = 0
		hdr.ExtractVersion = max(hdr.ExtractVersion, format.VersionAES)
	}

	return hdr
}

// CopyEntry copies a prior entry verbatim: header, payload and any trailing descriptor.
func (w *Writer) CopyEntry(prior *Prior, e *PriorEntry) (Entry, error) {
	if err := w.expect(stateOpen); err != nil {
		return Entry{}, err
	}
	if w.pos > section.MaxOffset {
		return Entry{}, fmt.Errorf("%w: local header offset %d exceeds 32 bits", errs.ErrUnsupportedOperation, w.pos)
	}

	offset := w.pos
	if err := w.WriteRange(prior.r, e.LocalHeaderOffset, e.LocalFullSize()); err != nil {
		return Entry{}, err
	}

	entry := e.Entry
	entry.LocalHeaderOffset = uint32(offset) //nolint: gosec
	w.entries = append(w.entries, entry)

	return entry, nil
}

// CopyRenamed copies the payload of a prior entry under new properties.
//
// Method, checksum, sizes and flags are kept; only the name, time and
// attributes change. Extra sub-blocks other than the AES sub-record are
// dropped because they may describe the old name. Entries followed by a data
// descriptor are rejected with ErrUnsupportedOperation.
func (w *Writer) CopyRenamed(prior *Prior, e *PriorEntry, info Info) (Entry, error) {
	if err := w.expect(stateOpen); err != nil {
		return Entry{}, err
	}
	if e.HasDescriptor {
		return Entry{}, fmt.Errorf("%w: %q has a data descriptor", errs.ErrUnsupportedOperation, e.Name)
	}
	if w.pos > section.MaxOffset {
		return Entry{}, fmt.Errorf("%w: local header offset %d exceeds 32 bits", errs.ErrUnsupportedOperation, w.pos)
	}

	info.IsDir = info.IsDir || e.IsDir()
	name := entryName(info)
	if len(name) > section.MaxNameLength {
		return Entry{}, fmt.Errorf("%w: name of %d bytes", errs.ErrUnsupportedOperation, len(name))
	}

	date, tm := section.TimeToDOS(info.Modified)
	flags := e.Flags&^format.FlagUTF8 | nameFlags(name)
	hdr := section.LocalHeader{
		ExtractVersion: e.ExtractVersion,
		Flags:          flags,
		Method:         uint16(e.Method),
		ModTime:        tm,
		ModDate:        date,
		CRC32:          e.CRC32,
		PackSize:       e.PackSize,
		UnpackSize:     e.UnpackSize,
		Name:           name,
		Extra:          section.KeepKnownExtra(e.LocalExtra),
	}

	buf := pool.GetHeaderBuffer()
	defer pool.PutHeaderBuffer(buf)
	buf.B = hdr.AppendTo(buf.B)

	offset := w.pos
	if err := w.write(buf.Bytes()); err != nil {
		return Entry{}, err
	}
	if err := w.WriteRange(prior.r, e.DataPosition, int64(e.PackSize)); err != nil {
		return Entry{}, err
	}

	entry := e.Entry
	entry.Name = name
	entry.Flags = flags
	entry.ModTime = tm
	entry.ModDate = date
	entry.ExternalAttrs = info.ExternalAttrs
	if info.IsDir {
		entry.ExternalAttrs |= format.AttrDirectory
	}
	entry.LocalHeaderOffset = uint32(offset) //nolint: gosec
	entry.Extra = section.KeepKnownExtra(e.Extra)
	w.entries = append(w.entries, entry)

	return entry, nil
}

// WriteDirectory writes the central directory and the end record and closes the writer.
func (w *Writer) WriteDirectory(comment []byte) error {
	if err := w.expect(stateOpen); err != nil {
		return err
	}
	if w.pending > 0 {
		return fmt.Errorf("%w: %d placeholders not finalized", errs.ErrWriterState, w.pending)
	}
	if len(w.entries) > section.MaxEntries {
		return fmt.Errorf("%w: %d entries", errs.ErrUnsupportedOperation, len(w.entries))
	}
	if len(comment) > section.MaxCommentLength {
		return fmt.Errorf("%w: comment of %d bytes", errs.ErrUnsupportedOperation, len(comment))
	}

	dirOffset := w.pos
	buf := pool.GetDirectoryBuffer()
	defer pool.PutDirectoryBuffer(buf)

	for i := range w.entries {
		h := w.entries[i].central()
		buf.Grow(h.Size())
		buf.B = h.AppendTo(buf.B)
	}
	dirSize := int64(buf.Len())

	if dirOffset > section.MaxOffset || dirSize > section.MaxSize {
		return fmt.Errorf("%w: directory at %d of %d bytes", errs.ErrUnsupportedOperation, dirOffset, dirSize)
	}

	eocd := section.EndOfCentral{
		DiskEntries:  uint16(len(w.entries)), //nolint: gosec
		TotalEntries: uint16(len(w.entries)), //nolint: gosec
		DirSize:      uint32(dirSize),        //nolint: gosec
		DirOffset:    uint32(dirOffset),      //nolint: gosec
		Comment:      comment,
	}
	buf.MustWrite(eocd.Bytes())

	if err := w.write(buf.Bytes()); err != nil {
		return err
	}
	w.state = stateClosed

	return nil
}

func (w *Writer) write(b []byte) error {
	n, err := w.w.Write(b)
	w.pos += int64(n)
	if err != nil {
		return fmt.Errorf("archive write: %w", err)
	}

	return nil
}

func (w *Writer) expect(s writerState) error {
	if w.state != s {
		return fmt.Errorf("%w: state %d, want %d", errs.ErrWriterState, w.state, s)
	}

	return nil
}
