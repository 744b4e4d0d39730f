package iocoro

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferAdvanceConsumesPrefix(t *testing.T) {
	b := NewBuffer([]byte("hello world"))
	assert.Equal(t, 11, b.Len())

	b.Advance(6)
	assert.Equal(t, "world", string(b.Bytes()))
	assert.Equal(t, 5, b.Len())
}

func TestBufferAdvanceClampsToLength(t *testing.T) {
	b := NewBuffer([]byte("hi"))
	b.Advance(100)
	assert.Equal(t, 0, b.Len())
}

func TestBufferReset(t *testing.T) {
	b := NewBuffer([]byte("data"))
	b.Advance(2)
	b.Reset()
	assert.Equal(t, "data", string(b.Bytes()))
}

func TestConstBufferIsReadOnlyView(t *testing.T) {
	data := []byte("immutable")
	c := NewConstBuffer(data)
	assert.Equal(t, len(data), c.Len())
	assert.Equal(t, data, c.Bytes())
}
