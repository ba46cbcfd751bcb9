package update

import (
	"fmt"

	"github.com/arloliu/mezip/archive"
	"github.com/arloliu/mezip/compress"
	"github.com/arloliu/mezip/errs"
	"github.com/arloliu/mezip/format"
	"github.com/arloliu/mezip/internal/collision"
	"github.com/arloliu/mezip/section"
)

// action is what the coordinator does with an item.
type action uint8

const (
	// actionCompress streams new file data through a codec.
	actionCompress action = iota
	// actionDirectory writes an empty stored directory entry.
	actionDirectory
	// actionCopy copies a prior entry verbatim.
	actionCopy
	// actionRename copies a prior payload under a new local header.
	actionRename
)

// step is the resolved form of an item.
type step struct {
	action action
	info   archive.Info
	prior  *archive.PriorEntry
	// cost is the progress credit estimated for the item.
	cost uint64
}

// plan holds the resolved steps and the progress total of a run.
type plan struct {
	steps         []step
	total         uint64
	compressItems int
	compressBytes uint64
	names         int
	// nameCollision is set when two distinct names share a name id.
	nameCollision bool
}

// resolve validates items against the prior archive and computes the
// progress total.
func resolve(items []Item, prior *archive.Prior, comment []byte) (*plan, error) {
	p := &plan{steps: make([]step, len(items))}
	names := collision.NewTracker(false)

	for i := range items {
		it := &items[i]
		st := &p.steps[i]

		if !it.NewData || !it.NewProperties {
			if prior == nil || it.SourceIndex < 0 || it.SourceIndex >= len(prior.Entries) {
				return nil, fmt.Errorf("%w: item %d (%q) references entry %d",
					errs.ErrInvalidSourceIndex, i, it.Name, it.SourceIndex)
			}
			st.prior = &prior.Entries[it.SourceIndex]
		}

		switch {
		case it.NewProperties:
			st.info = archive.Info{
				Name:          it.Name,
				Modified:      it.Modified,
				ExternalAttrs: it.Attributes,
				IsDir:         it.IsDir,
			}
		default:
			st.info = archive.Info{
				Name:          st.prior.Name,
				Modified:      st.prior.Modified(),
				ExternalAttrs: st.prior.ExternalAttrs,
				IsDir:         st.prior.IsDir(),
			}
		}

		switch {
		case it.NewData && st.info.IsDir:
			st.action = actionDirectory
		case it.NewData:
			st.action = actionCompress
			p.compressItems++
			p.compressBytes += it.Size
		case it.NewProperties:
			st.action = actionRename
		default:
			st.action = actionCopy
		}

		if err := names.Track(st.info.Name); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		if it.NewData {
			st.cost = it.Size
		} else {
			st.cost = uint64(st.prior.LocalFullSize()) //nolint: gosec
		}
		st.cost += section.LocalHeaderSize
		p.total += st.cost + section.CentralHeaderSize
	}

	p.total += uint64(len(comment)) + section.EndOfCentralSize
	if prior != nil {
		p.total += uint64(prior.PrefixSize) //nolint: gosec
	}

	p.names = names.Count()
	p.nameCollision = names.HasCollision()

	return p, nil
}

// directoryResult finalizes directory entries: stored and empty.
var directoryResult = compress.Result{Method: format.MethodStore, ExtractVersion: format.VersionStore}
