package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteBuffer_WriteAndReset(t *testing.T) {
	bb := NewByteBuffer(HeaderBufferDefaultSize)

	n, err := bb.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	bb.MustWrite([]byte(" world"))
	assert.Equal(t, []byte("hello world"), bb.Bytes())
	assert.Equal(t, 11, bb.Len())

	originalCap := bb.Cap()
	bb.Reset()
	assert.Zero(t, bb.Len())
	assert.Equal(t, originalCap, bb.Cap())
}

func TestByteBuffer_Grow(t *testing.T) {
	tests := []struct {
		name     string
		initial  int
		required int
	}{
		{"sufficient", 64, 10},
		{"small buffer", 16, 32},
		{"large buffer", 8 * HeaderBufferDefaultSize, 8*HeaderBufferDefaultSize + 1},
		{"more than default", 16, 4096},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bb := NewByteBuffer(tt.initial)
			bb.MustWrite(bytes.Repeat([]byte("a"), tt.initial))
			bb.Grow(tt.required)

			assert.GreaterOrEqual(t, bb.Cap()-bb.Len(), min(tt.required, bb.Cap()))
			assert.Equal(t, bytes.Repeat([]byte("a"), tt.initial), bb.Bytes())
		})
	}
}

func TestByteBuffer_WriteTo(t *testing.T) {
	bb := NewByteBuffer(16)
	bb.MustWrite([]byte("payload"))

	var out bytes.Buffer
	n, err := bb.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "payload", out.String())
}

func TestByteBufferPool_MaxThreshold(t *testing.T) {
	p := NewByteBufferPool(16, 64)

	bb := p.Get()
	bb.MustWrite(make([]byte, 128))
	p.Put(bb)
	p.Put(nil)

	got := p.Get()
	assert.Zero(t, got.Len())
}

func TestDefaultPools(t *testing.T) {
	hb := GetHeaderBuffer()
	require.NotNil(t, hb)
	assert.GreaterOrEqual(t, hb.Cap(), 0)
	hb.MustWrite([]byte("x"))
	PutHeaderBuffer(hb)

	db := GetDirectoryBuffer()
	require.NotNil(t, db)
	assert.Zero(t, db.Len())
	PutDirectoryBuffer(db)
}

func TestGetCopyBuffer(t *testing.T) {
	buf, release := GetCopyBuffer()
	defer release()

	assert.Len(t, buf, CopyBufferSize)
}
