package utils

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBuffer_NewRingBuffer(t *testing.T) {
	rb := NewRingBuffer[int](3)
	require.NotNil(t, rb)
	assert.Equal(t, 3, rb.Cap())
	assert.Equal(t, 0, rb.Len())
	assert.Empty(t, rb.ToSlice())

	assert.Panics(t, func() { NewRingBuffer[int](0) }, "zero size")
	assert.Panics(t, func() { NewRingBuffer[int](-1) }, "negative size")
}

func TestRingBuffer_Push(t *testing.T) {
	rb := NewRingBuffer[int](3)
	rb.Push(1)
	rb.Push(2)

	assert.Equal(t, 2, rb.Len())
	assert.Equal(t, 1, rb.At(0))
	assert.Equal(t, 2, rb.At(1))
	assert.Equal(t, []int{1, 2}, rb.ToSlice())
}

func TestRingBuffer_OverwriteOnFull(t *testing.T) {
	rb := NewRingBuffer[string](2)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		rb.Push(s)
		assert.LessOrEqual(t, rb.Len(), rb.Cap())
	}

	assert.Equal(t, []string{"d", "e"}, rb.ToSlice())
	assert.Equal(t, 2, rb.Cap())
}

func TestRingBuffer_At_IndexOutOfBounds(t *testing.T) {
	rb := NewRingBuffer[int](3)
	rb.Push(10)

	assert.Panics(t, func() { rb.At(-1) })
	assert.Panics(t, func() { rb.At(1) })
}

func TestRingBuffer_Last(t *testing.T) {
	rb := NewRingBuffer[int](2)
	_, ok := rb.Last()
	assert.False(t, ok)

	for i := 1; i <= 5; i++ {
		rb.Push(i)
		last, ok := rb.Last()
		require.True(t, ok)
		assert.Equal(t, i, last)
	}
}

func TestRingBuffer_ConcurrentPush(t *testing.T) {
	rb := NewRingBuffer[int](16)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				rb.Push(i)
				_ = rb.ToSlice()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 16, rb.Len())
}
