// Package collision detects duplicate entry names before an archive is written.
package collision

import (
	"fmt"

	"github.com/arloliu/mezip/errs"
	"github.com/arloliu/mezip/internal/hash"
)

// Tracker records entry names by their xxHash64 id.
//
// Two names with the same id but different normalized text are a hash
// collision, not a duplicate; the tracker keeps both and flags the collision.
type Tracker struct {
	names        map[uint64][]string // id → normalized names sharing the id
	count        int
	fold         bool
	hasCollision bool
}

// NewTracker creates a new name tracker.
//
// Parameters:
//   - fold: Compare names case-insensitively
func NewTracker(fold bool) *Tracker {
	return &Tracker{
		names: make(map[uint64][]string),
		fold:  fold,
	}
}

// Track records name.
//
// Returns:
//   - error: ErrInvalidName for an empty name, ErrDuplicateName when an
//     equivalent name was tracked before
func (t *Tracker) Track(name string) error {
	norm := hash.NormalizeName(name, t.fold)
	if norm == "" {
		return fmt.Errorf("%w: empty name", errs.ErrInvalidName)
	}

	id := hash.ID(norm)
	existing := t.names[id]
	for _, n := range existing {
		if n == norm {
			return fmt.Errorf("%w: %q", errs.ErrDuplicateName, name)
		}
	}
	if len(existing) > 0 {
		t.hasCollision = true
	}

	t.names[id] = append(existing, norm)
	t.count++

	return nil
}

// HasCollision returns true if two different names shared an id.
func (t *Tracker) HasCollision() bool {
	return t.hasCollision
}

// Count returns the number of tracked names.
func (t *Tracker) Count() int {
	return t.count
}
