// Package mezip updates ZIP archives with ordered, multithreaded compression.
//
// An update takes an ordered list of items. Each item either reuses an entry
// of the prior archive, copied without recompression, or brings new content
// that is compressed on a pool of workers. Whatever the thread count, the
// entries appear in the new archive in item order and the archive bytes do
// not depend on how the work was scheduled.
//
// # Core Features
//
//   - Bounded memory: workers buffer into a fixed block pool sized
//     threads × memory-per-thread
//   - Head-of-line promotion: the worker of the next entry writes straight
//     into the archive, later entries wait in a reorder buffer
//   - Store, Deflate, Zstd, S2 and LZ4 codecs with a pluggable registry
//   - Verbatim entry copy and rename without recompression
//   - Self-extractor prefixes and archive comments carried over
//   - Unavailable sources are skipped and reported, not fatal
//
// # Basic Usage
//
// Writing a new archive:
//
//	items := []update.Item{{
//	    NewData: true, NewProperties: true, SourceIndex: -1,
//	    Name: "hello.txt", Size: 5, Modified: time.Now(),
//	}}
//	report, err := mezip.Update(ctx, out, items, src,
//	    update.WithThreads(8),
//	    update.WithMethods(format.MethodZstd),
//	)
//
// Updating an existing archive:
//
//	prior, err := mezip.OpenArchive(f, size)
//	items := mezip.ReuseAll(prior)
//	items = append(items, newItems...)
//	report, err := mezip.Update(ctx, out, items, src, update.WithPrior(prior))
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the update and
// archive packages. For fine-grained control use those packages directly;
// the source package builds items from the file system.
package mezip

import (
	"context"
	"io"

	"github.com/arloliu/mezip/archive"
	"github.com/arloliu/mezip/format"
	"github.com/arloliu/mezip/update"
)

var defaultOptions = []update.Option{
	update.WithMethods(format.MethodDeflate),
	update.WithMemoryPerThread(update.DefaultMemoryPerThread),
	update.WithBlockSize(update.DefaultBlockSize),
}

// NewCoordinator creates an update coordinator with custom options.
//
// Parameters:
//   - opts: Options applied over the defaults (see update.Option)
//
// Returns:
//   - *update.Coordinator: The created coordinator
//   - error: An error if the configuration is invalid
//
// Example:
//
//	coord, err := mezip.NewCoordinator(
//	    update.WithThreads(4),
//	    update.WithMethods(format.MethodZstd, format.MethodDeflate),
//	)
func NewCoordinator(opts ...update.Option) (*update.Coordinator, error) {
	return update.NewCoordinator(append(defaultOptions[:len(defaultOptions):len(defaultOptions)], opts...)...)
}

// Update writes items to out in one run.
//
// Returns:
//   - *update.Report: Written entries, skipped items and the chosen thread split
//   - error: *update.RunError when the run aborted
func Update(ctx context.Context, out io.WriteSeeker, items []update.Item, src update.Source, opts ...update.Option) (*update.Report, error) {
	coord, err := NewCoordinator(opts...)
	if err != nil {
		return nil, err
	}

	return coord.Run(ctx, out, items, src)
}

// OpenArchive reads the directory of an existing archive.
func OpenArchive(r io.ReaderAt, size int64) (*archive.Prior, error) {
	return archive.OpenPrior(r, size)
}

// ReuseAll returns one unchanged item per entry of prior, in archive order.
func ReuseAll(prior *archive.Prior) []update.Item {
	items := make([]update.Item, len(prior.Entries))
	for i := range prior.Entries {
		e := &prior.Entries[i]
		items[i] = update.Item{
			SourceIndex: i,
			Name:        e.Name,
			Size:        uint64(e.UnpackSize),
			Attributes:  e.ExternalAttrs,
			Modified:    e.Modified(),
			IsDir:       e.IsDir(),
		}
	}

	return items
}
