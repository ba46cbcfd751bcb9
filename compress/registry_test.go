package compress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/mezip/errs"
	"github.com/arloliu/mezip/format"
)

func TestNewRegistry_Builtins(t *testing.T) {
	reg := NewRegistry()

	assert.Equal(t, []format.Method{
		format.MethodStore,
		format.MethodDeflate,
		format.MethodZstd,
		format.MethodLZ4,
		format.MethodS2,
	}, reg.Methods())
}

func TestRegistry_Lookup(t *testing.T) {
	reg := NewEmptyRegistry()

	_, err := reg.Lookup(format.MethodDeflate)
	require.ErrorIs(t, err, errs.ErrUnknownMethod)

	reg.Register(NewDeflateCodec())
	c, err := reg.Lookup(format.MethodDeflate)
	require.NoError(t, err)
	assert.Equal(t, format.MethodDeflate, c.Method())
}

func TestRegistry_Resolve(t *testing.T) {
	reg := NewEmptyRegistry()
	reg.Register(NewStoreCodec())
	reg.Register(NewS2Codec())

	t.Run("first registered wins", func(t *testing.T) {
		c, err := reg.Resolve([]format.Method{format.MethodZstd, format.MethodS2, format.MethodStore})
		require.NoError(t, err)
		assert.Equal(t, format.MethodS2, c.Method())
	})

	t.Run("none registered", func(t *testing.T) {
		_, err := reg.Resolve([]format.Method{format.MethodZstd, format.MethodLZ4})
		require.ErrorIs(t, err, errs.ErrUnknownMethod)
	})

	t.Run("empty sequence", func(t *testing.T) {
		_, err := reg.Resolve(nil)
		require.ErrorIs(t, err, errs.ErrUnknownMethod)
	})
}
