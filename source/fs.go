// Package source builds update items from the file system and serves their
// content to an update run.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arloliu/mezip/archive"
	"github.com/arloliu/mezip/errs"
	"github.com/arloliu/mezip/format"
	"github.com/arloliu/mezip/update"
)

// FAT attribute bits stored for new entries.
const (
	attrReadOnly = 0x01
	attrArchive  = 0x20
)

// FS collects items in archive order and implements update.Source.
//
// Items added from disk keep their path; GetStream opens it again when the
// item is written, so files removed in between are skipped, not fatal.
type FS struct {
	items   []update.Item
	paths   []string
	logger  zerolog.Logger
	written int
	skipped int
}

// New creates an empty FS.
func New(logger zerolog.Logger) *FS {
	return &FS{logger: logger}
}

// Items returns the collected items in archive order.
func (f *FS) Items() []update.Item {
	return f.items
}

// Len returns the number of collected items.
func (f *FS) Len() int {
	return len(f.items)
}

// Stats returns how many items with new data were written and skipped.
func (f *FS) Stats() (written, skipped int) {
	return f.written, f.skipped
}

// Append moves the items of other to the end of f.
func (f *FS) Append(other *FS) {
	f.items = append(f.items, other.items...)
	f.paths = append(f.paths, other.paths...)
	other.items, other.paths = nil, nil
}

// AddReused appends prior entry index unchanged.
func (f *FS) AddReused(index int, e *archive.PriorEntry) {
	f.items = append(f.items, update.Item{
		SourceIndex: index,
		Name:        e.Name,
		Size:        uint64(e.UnpackSize),
		Attributes:  e.ExternalAttrs,
		Modified:    e.Modified(),
		IsDir:       e.IsDir(),
	})
	f.paths = append(f.paths, "")
}

// AddRenamed appends prior entry index under a new name, keeping its payload.
func (f *FS) AddRenamed(index int, e *archive.PriorEntry, name string) {
	f.items = append(f.items, update.Item{
		NewProperties: true,
		SourceIndex:   index,
		Name:          name,
		Size:          uint64(e.UnpackSize),
		Attributes:    e.ExternalAttrs,
		Modified:      e.Modified(),
		IsDir:         e.IsDir(),
	})
	f.paths = append(f.paths, "")
}

// AddPath appends the file or directory tree at p under the archive name
// prefix. Directories are walked in lexical order and added before their
// content.
func (f *FS) AddPath(p, prefix string) error {
	root, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("add %s: %w", p, err)
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return fmt.Errorf("add %s: %w", p, err)
	}
	base := ArchiveName(prefix, filepath.Base(abs))
	if !root.IsDir() {
		f.addFile(p, base, root)
		return nil
	}

	return filepath.WalkDir(p, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", fp, err)
		}

		rel, err := filepath.Rel(p, fp)
		if err != nil {
			return err
		}
		name := ArchiveName(base, rel)
		if name == "" || name == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", fp, err)
		}

		switch {
		case d.IsDir():
			f.addDir(name, info)
		case info.Mode().IsRegular():
			f.addFile(fp, name, info)
		default:
			f.logger.Debug().Str("path", fp).Stringer("mode", info.Mode()).Msg("skip non-regular file")
		}

		return nil
	})
}

func (f *FS) addFile(p, name string, info fs.FileInfo) {
	f.items = append(f.items, update.Item{
		NewData:       true,
		NewProperties: true,
		SourceIndex:   -1,
		Name:          name,
		Size:          uint64(info.Size()), //nolint: gosec
		Attributes:    attributes(info),
		Modified:      info.ModTime(),
	})
	f.paths = append(f.paths, p)
}

func (f *FS) addDir(name string, info fs.FileInfo) {
	f.items = append(f.items, update.Item{
		NewData:       true,
		NewProperties: true,
		SourceIndex:   -1,
		Name:          name,
		Attributes:    attributes(info),
		Modified:      info.ModTime(),
		IsDir:         true,
	})
	f.paths = append(f.paths, "")
}

// GetStream implements update.Source.
func (f *FS) GetStream(_ context.Context, index int, item *update.Item) (io.ReadCloser, error) {
	if index < 0 || index >= len(f.paths) || f.paths[index] == "" {
		return nil, fmt.Errorf("%w: no file behind item %d (%q)", errs.ErrInvalidSourceIndex, index, item.Name)
	}

	file, err := os.Open(f.paths[index])
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %w", errs.ErrSourceUnavailable, err)
		}

		return nil, err
	}

	return file, nil
}

// ReportResult implements update.Source.
func (f *FS) ReportResult(index int, item *update.Item, outcome update.Outcome) error {
	if outcome == update.OutcomeSkipped {
		f.skipped++
	} else {
		f.written++
	}

	f.logger.Debug().
		Int("index", index).
		Str("name", item.Name).
		Stringer("outcome", outcome).
		Msg("item done")

	return nil
}

// ArchiveName joins archive path elements with forward slashes.
func ArchiveName(elem ...string) string {
	parts := make([]string, 0, len(elem))
	for _, e := range elem {
		e = strings.Trim(filepath.ToSlash(e), "/")
		if e != "" {
			parts = append(parts, e)
		}
	}

	return path.Join(parts...)
}

func attributes(info fs.FileInfo) uint32 {
	var attrs uint32
	switch {
	case info.IsDir():
		attrs = format.AttrDirectory
	default:
		attrs = attrArchive
	}
	if info.Mode().Perm()&0o200 == 0 {
		attrs |= attrReadOnly
	}

	return attrs
}
