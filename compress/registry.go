package compress

import (
	"fmt"
	"slices"
	"sync"

	"github.com/arloliu/mezip/errs"
	"github.com/arloliu/mezip/format"
)

// Registry maps method ids to codecs.
//
// A Registry is passed explicitly to the update coordinator, so tests can
// install instrumented codecs without touching any global state.
type Registry struct {
	mu     sync.RWMutex
	codecs map[format.Method]Codec
}

// NewRegistry returns a registry holding every built-in codec.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	for _, m := range []format.Method{
		format.MethodStore,
		format.MethodDeflate,
		format.MethodZstd,
		format.MethodS2,
		format.MethodLZ4,
	} {
		c, _ := CreateCodec(m)
		r.Register(c)
	}

	return r
}

// NewEmptyRegistry returns a registry without any codec.
func NewEmptyRegistry() *Registry {
	return &Registry{codecs: make(map[format.Method]Codec)}
}

// Register installs c under c.Method(), replacing any previous codec for that id.
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.codecs[c.Method()] = c
}

// Lookup returns the codec registered for method.
func (r *Registry) Lookup(method format.Method) (Codec, error) {
	r.mu.RLock()
	c, ok := r.codecs[method]
	r.mu.RUnlock()

	if !ok {
		return nil, unknownMethod(method)
	}

	return c, nil
}

// Resolve returns the first method of seq that has a registered codec.
func (r *Registry) Resolve(seq []format.Method) (Codec, error) {
	for _, m := range seq {
		if c, err := r.Lookup(m); err == nil {
			return c, nil
		}
	}

	return nil, fmt.Errorf("%w: none of %v is registered", errs.ErrUnknownMethod, seq)
}

// Methods returns the registered method ids in ascending order.
func (r *Registry) Methods() []format.Method {
	r.mu.RLock()
	defer r.mu.RUnlock()

	methods := make([]format.Method, 0, len(r.codecs))
	for m := range r.codecs {
		methods = append(methods, m)
	}
	slices.Sort(methods)

	return methods
}

func unknownMethod(method format.Method) error {
	return fmt.Errorf("%w: %s", errs.ErrUnknownMethod, method)
}
