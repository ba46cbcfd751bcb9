package archive

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/mezip/compress"
	"github.com/arloliu/mezip/errs"
	"github.com/arloliu/mezip/format"
	"github.com/arloliu/mezip/internal/memfile"
	"github.com/arloliu/mezip/section"
)

func openPrior(t *testing.T, b []byte) *Prior {
	t.Helper()

	p, err := OpenPrior(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)

	return p
}

func TestOpenPrior(t *testing.T) {
	files := map[string][]byte{
		"a.txt": bytes.Repeat([]byte("alpha "), 100),
		"b.txt": []byte("bravo"),
	}
	src := buildArchive(t, "prior comment", files, []string{"dir/", "a.txt", "b.txt"})

	p := openPrior(t, src.Bytes())
	assert.Equal(t, []byte("prior comment"), p.Comment)
	assert.Zero(t, p.PrefixSize)
	require.Len(t, p.Entries, 3)

	assert.Equal(t, "dir/", p.Entries[0].Name)
	assert.True(t, p.Entries[0].IsDir())
	assert.False(t, p.Entries[1].IsDir())
	assert.Equal(t, format.MethodDeflate, p.Entries[1].Method)
	assert.True(t, p.Entries[1].Modified().Equal(testTime))

	for i := range p.Entries {
		e := &p.Entries[i]
		assert.False(t, e.HasDescriptor)
		assert.Equal(t, e.LocalHeaderOffset+section.LocalHeaderSize+int64(len(e.Name)), e.DataPosition)
		assert.Equal(t, int64(section.LocalHeaderSize+len(e.Name))+int64(e.PackSize), e.LocalFullSize())
	}

	// The stored payload of a deflate entry inflates back to the content.
	rc, err := zip.NewReader(bytes.NewReader(src.Bytes()), src.Size())
	require.NoError(t, err)
	raw, err := io.ReadAll(payload(p, &p.Entries[2]))
	require.NoError(t, err)
	assert.Equal(t, int(p.Entries[2].PackSize), len(raw))
	assert.Equal(t, "b.txt", rc.File[2].Name)
}

func TestOpenPrior_Empty(t *testing.T) {
	src := buildArchive(t, "", nil, nil)

	p := openPrior(t, src.Bytes())
	assert.Empty(t, p.Entries)
	assert.Empty(t, p.Comment)
	assert.Zero(t, p.PrefixSize)
}

func TestOpenPrior_Errors(t *testing.T) {
	t.Run("not an archive", func(t *testing.T) {
		data := []byte("definitely not a zip file")
		_, err := OpenPrior(bytes.NewReader(data), int64(len(data)))
		require.ErrorIs(t, err, errs.ErrDirectoryNotFound)
	})

	t.Run("prepended bytes", func(t *testing.T) {
		src := buildArchive(t, "", map[string][]byte{"a": []byte("a")}, []string{"a"})
		data := append([]byte("STUB"), src.Bytes()...)
		_, err := OpenPrior(bytes.NewReader(data), int64(len(data)))
		require.ErrorIs(t, err, errs.ErrUnsupportedOperation)
	})

	t.Run("bad local offset", func(t *testing.T) {
		src := buildArchive(t, "", map[string][]byte{"a": []byte("a")}, []string{"a"})
		data := append([]byte(nil), src.Bytes()...)
		// Corrupt the local header signature.
		data[0] = 'X'
		_, err := OpenPrior(bytes.NewReader(data), int64(len(data)))
		require.ErrorIs(t, err, errs.ErrInvalidSignature)
	})
}

func TestCopyEntry_Idempotent(t *testing.T) {
	files := map[string][]byte{
		"a.txt": bytes.Repeat([]byte("alpha "), 1000),
		"b.txt": []byte("bravo"),
	}
	src := buildArchive(t, "c", files, []string{"dir/", "a.txt", "b.txt"})
	prior := openPrior(t, src.Bytes())

	out := memfile.New()
	w, err := NewWriter(out)
	require.NoError(t, err)

	// Reverse order proves offsets are rewritten.
	for i := len(prior.Entries) - 1; i >= 0; i-- {
		_, err := w.CopyEntry(prior, &prior.Entries[i])
		require.NoError(t, err)
	}
	require.NoError(t, w.WriteDirectory(prior.Comment))

	zr := openZip(t, out.Bytes())
	require.Len(t, zr.File, 3)
	assert.Equal(t, "b.txt", zr.File[0].Name)
	assert.Equal(t, files["b.txt"], readZipFile(t, zr.File[0]))
	assert.Equal(t, files["a.txt"], readZipFile(t, zr.File[1]))
	assert.Equal(t, "dir/", zr.File[2].Name)
	assert.Equal(t, "c", zr.Comment)
}

func TestCopyRenamed(t *testing.T) {
	data := bytes.Repeat([]byte("payload "), 300)

	// Source entry with an unknown extra sub-block in both headers.
	src := memfile.New()
	zw := zip.NewWriter(src)
	fw, err := zw.CreateRaw(&zip.FileHeader{
		Name:               "old/name.txt",
		Method:             zip.Store,
		CRC32:              0x12345678,
		CompressedSize64:   uint64(len(data)),
		UncompressedSize64: uint64(len(data)),
		Extra:              section.AppendExtra(nil, section.ExtraBlock{ID: 0xcafe, Data: []byte("old")}),
	})
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	prior := openPrior(t, src.Bytes())
	require.Len(t, prior.Entries, 1)
	require.False(t, prior.Entries[0].HasDescriptor)
	require.NotEmpty(t, prior.Entries[0].LocalExtra)

	out := memfile.New()
	w, err := NewWriter(out)
	require.NoError(t, err)

	e, err := w.CopyRenamed(prior, &prior.Entries[0], Info{Name: "new/name.txt", Modified: testTime, ExternalAttrs: 0x21})
	require.NoError(t, err)
	require.NoError(t, w.WriteDirectory(nil))

	assert.Equal(t, "new/name.txt", e.Name)
	assert.Equal(t, uint32(0x12345678), e.CRC32)
	assert.Equal(t, uint32(0x21), e.ExternalAttrs)
	assert.Empty(t, e.Extra)

	renamed := openPrior(t, out.Bytes())
	require.Len(t, renamed.Entries, 1)
	assert.Empty(t, renamed.Entries[0].LocalExtra)
	assert.True(t, renamed.Entries[0].Modified().Equal(testTime))

	raw, err := io.ReadAll(payload(renamed, &renamed.Entries[0]))
	require.NoError(t, err)
	assert.Equal(t, data, raw)
}

func TestDescriptorEntries(t *testing.T) {
	data := []byte("streamed with a trailing data descriptor")

	src := memfile.New()
	zw := zip.NewWriter(src)
	fw, err := zw.Create("streamed.txt")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	prior := openPrior(t, src.Bytes())
	require.Len(t, prior.Entries, 1)
	e := &prior.Entries[0]
	require.True(t, e.HasDescriptor)
	assert.Equal(t, int64(section.DataDescriptorSize), e.DescriptorSize)

	t.Run("unmodified copy keeps the descriptor", func(t *testing.T) {
		out := memfile.New()
		w, err := NewWriter(out)
		require.NoError(t, err)
		_, err = w.CopyEntry(prior, e)
		require.NoError(t, err)
		require.NoError(t, w.WriteDirectory(nil))

		zr := openZip(t, out.Bytes())
		assert.Equal(t, data, readZipFile(t, zr.File[0]))
	})

	t.Run("rename is unsupported", func(t *testing.T) {
		w, err := NewWriter(memfile.New())
		require.NoError(t, err)
		_, err = w.CopyRenamed(prior, e, Info{Name: "renamed.txt"})
		require.ErrorIs(t, err, errs.ErrUnsupportedOperation)
	})
}

func TestCopyPrefix(t *testing.T) {
	stub := []byte("#!/bin/sh\necho self-extracting stub\nexit 0\n")

	// Build a prefixed archive whose offsets already account for the stub.
	src := memfile.New()
	_, err := src.Write(stub)
	require.NoError(t, err)
	w, err := NewWriter(src)
	require.NoError(t, err)
	addFile(t, w, "inside.txt", []byte("inside"), compress.NewStoreCodec())
	require.NoError(t, w.WriteDirectory(nil))

	prior := openPrior(t, src.Bytes())
	assert.Equal(t, int64(len(stub)), prior.PrefixSize)

	out := memfile.New()
	w2, err := NewWriter(out)
	require.NoError(t, err)
	require.NoError(t, w2.CopyPrefix(prior.ReaderAt(), prior.PrefixSize))
	_, err = w2.CopyEntry(prior, &prior.Entries[0])
	require.NoError(t, err)
	require.NoError(t, w2.WriteDirectory(nil))

	assert.True(t, bytes.HasPrefix(out.Bytes(), stub))
	assert.Equal(t, uint32(len(stub)), w2.Entries()[0].LocalHeaderOffset)

	zr := openZip(t, out.Bytes())
	assert.Equal(t, []byte("inside"), readZipFile(t, zr.File[0]))

	require.ErrorIs(t, w2.CopyPrefix(prior.ReaderAt(), 1), errs.ErrWriterState)
}

// payload returns the stored bytes of e.
func payload(p *Prior, e *PriorEntry) io.Reader {
	return io.NewSectionReader(p.ReaderAt(), e.DataPosition, int64(e.PackSize))
}
