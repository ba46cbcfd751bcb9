// Package options provides the generic functional option plumbing shared by
// the configurable types of mezip.
package options

// Option represents a functional option for configuring any type T.
type Option[T any] interface {
	apply(T) error
}

// Validator is implemented by configuration targets that check their
// combined state once every option has been applied.
type Validator interface {
	Validate() error
}

// Func is a generic functional option that wraps a function.
// It implements the Option interface for any type T.
type Func[T any] struct {
	applyFunc func(T) error
}

func (f *Func[T]) apply(target T) error {
	return f.applyFunc(target)
}

// New creates a new functional option from a function.
func New[T any](fn func(T) error) *Func[T] {
	return &Func[T]{applyFunc: fn}
}

// NoError creates a functional option from a function that cannot fail.
func NoError[T any](fn func(T)) *Func[T] {
	return &Func[T]{
		applyFunc: func(target T) error {
			fn(target)
			return nil
		},
	}
}

// Apply applies opts to target in order and stops at the first error.
func Apply[T any](target T, opts ...Option[T]) error {
	for _, opt := range opts {
		if err := opt.apply(target); err != nil {
			return err
		}
	}

	return nil
}

// ApplyAndValidate applies opts and then runs target.Validate.
//
// Per-option checks catch values that are invalid on their own, Validate
// catches combinations (for example a block size larger than the per-thread budget).
func ApplyAndValidate[T Validator](target T, opts ...Option[T]) error {
	if err := Apply(target, opts...); err != nil {
		return err
	}

	return target.Validate()
}
