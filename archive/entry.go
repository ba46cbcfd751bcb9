package archive

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/arloliu/mezip/format"
	"github.com/arloliu/mezip/section"
)

// Info holds the properties of an entry that the caller chooses.
type Info struct {
	Name          string
	Modified      time.Time
	ExternalAttrs uint32
	IsDir         bool
}

// Entry is one finalized directory record.
type Entry struct {
	Name              string
	MadeBy            uint16
	ExtractVersion    uint16
	Flags             uint16
	Method            format.Method
	ModTime           uint16
	ModDate           uint16
	CRC32             uint32
	PackSize          uint32
	UnpackSize        uint32
	InternalAttrs     uint16
	ExternalAttrs     uint32
	LocalHeaderOffset uint32
	Extra             []byte
	Comment           []byte
}

// Modified returns the entry modification time.
func (e *Entry) Modified() time.Time {
	return section.DOSToTime(e.ModDate, e.ModTime)
}

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool {
	return strings.HasSuffix(e.Name, "/") || e.ExternalAttrs&format.AttrDirectory != 0
}

// Encrypted reports whether the entry carries the encrypted flag.
func (e *Entry) Encrypted() bool {
	return e.Flags&format.FlagEncrypted != 0
}

// RealMethod returns the compression method, looking through the AES sub-record.
func (e *Entry) RealMethod() format.Method {
	if e.Method != format.MethodWzAES {
		return e.Method
	}

	blocks, err := section.ParseExtra(e.Extra)
	if err != nil {
		return e.Method
	}
	for _, b := range blocks {
		if aes, err := section.ParseAESExtra(b); err == nil {
			return format.Method(aes.Method)
		}
	}

	return e.Method
}

func (e *Entry) central() *section.CentralHeader {
	return &section.CentralHeader{
		MadeBy:            e.MadeBy,
		ExtractVersion:    e.ExtractVersion,
		Flags:             e.Flags,
		Method:            uint16(e.Method),
		ModTime:           e.ModTime,
		ModDate:           e.ModDate,
		CRC32:             e.CRC32,
		PackSize:          e.PackSize,
		UnpackSize:        e.UnpackSize,
		InternalAttrs:     e.InternalAttrs,
		ExternalAttrs:     e.ExternalAttrs,
		LocalHeaderOffset: e.LocalHeaderOffset,
		Name:              e.Name,
		Extra:             e.Extra,
		Comment:           e.Comment,
	}
}

func entryFromCentral(h *section.CentralHeader) Entry {
	return Entry{
		Name:              h.Name,
		MadeBy:            h.MadeBy,
		ExtractVersion:    h.ExtractVersion,
		Flags:             h.Flags,
		Method:            format.Method(h.Method),
		ModTime:           h.ModTime,
		ModDate:           h.ModDate,
		CRC32:             h.CRC32,
		PackSize:          h.PackSize,
		UnpackSize:        h.UnpackSize,
		InternalAttrs:     h.InternalAttrs,
		ExternalAttrs:     h.ExternalAttrs,
		LocalHeaderOffset: h.LocalHeaderOffset,
		Extra:             h.Extra,
		Comment:           h.Comment,
	}
}

// entryName returns the stored name: forward slashes, directories end with '/'.
func entryName(info Info) string {
	name := strings.ReplaceAll(info.Name, "\\", "/")
	if info.IsDir && !strings.HasSuffix(name, "/") {
		name += "/"
	}

	return name
}

func nameFlags(name string) uint16 {
	for i := 0; i < len(name); i++ {
		if name[i] >= utf8.RuneSelf {
			return format.FlagUTF8
		}
	}

	return 0
}
