package archive

import (
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/mezip/errs"
	"github.com/arloliu/mezip/format"
	"github.com/arloliu/mezip/section"
)

// descriptorNoSig is the size of a data descriptor written without its optional signature.
const descriptorNoSig = section.DataDescriptorSize - 4

// PriorEntry is an entry of an existing archive together with the layout of
// its local record.
type PriorEntry struct {
	Entry

	LocalHeaderOffset int64
	LocalExtra        []byte
	DataPosition      int64 // first payload byte
	HasDescriptor     bool
	DescriptorSize    int64
}

// LocalFullSize returns the size of the local record: header, payload and descriptor.
func (e *PriorEntry) LocalFullSize() int64 {
	return e.DataPosition - e.LocalHeaderOffset + int64(e.PackSize) + e.DescriptorSize
}

// Prior is the parsed directory of an existing archive.
type Prior struct {
	r       io.ReaderAt
	size    int64
	Entries []PriorEntry
	Comment []byte
	// PrefixSize is the number of bytes before the first local header, such
	// as a self-extractor stub.
	PrefixSize int64
}

// ReaderAt returns the archive content.
func (p *Prior) ReaderAt() io.ReaderAt {
	return p.r
}

// OpenPrior reads the directory of the archive in r.
//
// Returns:
//   - *Prior: Parsed directory
//   - error: ErrDirectoryNotFound when no end record exists, ErrUnsupportedOperation
//     for multi-disk archives or archives whose directory is not where the end
//     record says (data prepended without adjusting offsets)
func OpenPrior(r io.ReaderAt, size int64) (*Prior, error) {
	tailLen := min(size, int64(section.EndOfCentralSize+section.MaxCommentLength))
	tail := make([]byte, tailLen)
	if _, err := r.ReadAt(tail, size-tailLen); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read archive tail: %w", err)
	}

	idx := section.FindEndOfCentral(tail)
	if idx < 0 {
		return nil, errs.ErrDirectoryNotFound
	}

	var eocd section.EndOfCentral
	if err := eocd.Parse(tail[idx:]); err != nil {
		return nil, err
	}
	if eocd.DiskNumber != 0 || eocd.DirDisk != 0 || eocd.DiskEntries != eocd.TotalEntries {
		return nil, fmt.Errorf("%w: multi-disk archive", errs.ErrUnsupportedOperation)
	}

	eocdPos := size - tailLen + int64(idx)
	if int64(eocd.DirOffset)+int64(eocd.DirSize) != eocdPos {
		return nil, fmt.Errorf("%w: directory at %d+%d does not end at %d",
			errs.ErrUnsupportedOperation, eocd.DirOffset, eocd.DirSize, eocdPos)
	}

	dir := make([]byte, eocd.DirSize)
	if _, err := r.ReadAt(dir, int64(eocd.DirOffset)); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read central directory: %w", err)
	}

	p := &Prior{
		r:          r,
		size:       size,
		Entries:    make([]PriorEntry, 0, eocd.TotalEntries),
		Comment:    eocd.Comment,
		PrefixSize: int64(eocd.DirOffset),
	}

	for i := 0; i < int(eocd.TotalEntries); i++ {
		var ch section.CentralHeader
		n, err := ch.Parse(dir)
		if err != nil {
			return nil, fmt.Errorf("central record %d: %w", i, err)
		}
		dir = dir[n:]

		e, err := p.readLocal(&ch)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", ch.Name, err)
		}
		p.Entries = append(p.Entries, e)
		p.PrefixSize = min(p.PrefixSize, e.LocalHeaderOffset)
	}

	return p, nil
}

func (p *Prior) readLocal(ch *section.CentralHeader) (PriorEntry, error) {
	e := PriorEntry{
		Entry:             entryFromCentral(ch),
		LocalHeaderOffset: int64(ch.LocalHeaderOffset),
		HasDescriptor:     ch.Flags&format.FlagDataDescriptor != 0,
	}

	fixed := make([]byte, section.LocalHeaderSize)
	if _, err := p.r.ReadAt(fixed, e.LocalHeaderOffset); err != nil {
		return e, fmt.Errorf("%w: %w", errs.ErrInvalidEntryOffset, err)
	}

	var lh section.LocalHeader
	nameLen, extraLen, err := lh.ParseFixed(fixed)
	if err != nil {
		return e, err
	}

	if extraLen > 0 {
		e.LocalExtra = make([]byte, extraLen)
		if _, err := p.r.ReadAt(e.LocalExtra, e.LocalHeaderOffset+section.LocalHeaderSize+int64(nameLen)); err != nil {
			return e, fmt.Errorf("%w: %w", errs.ErrInvalidEntryOffset, err)
		}
	}
	e.DataPosition = e.LocalHeaderOffset + section.LocalHeaderSize + int64(nameLen) + int64(extraLen)

	if e.DataPosition+int64(e.PackSize) > p.size {
		return e, fmt.Errorf("%w: payload ends past the archive", errs.ErrInvalidEntryOffset)
	}

	if e.HasDescriptor {
		e.DescriptorSize = descriptorNoSig
		sig := make([]byte, 4)
		if _, err := p.r.ReadAt(sig, e.DataPosition+int64(e.PackSize)); err == nil &&
			section.IsDataDescriptorSignature(sig) {
			e.DescriptorSize = section.DataDescriptorSize
		}
	}

	return e, nil
}
