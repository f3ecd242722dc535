package ring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferEvictsOldestFirst(t *testing.T) {
	b := New[int](3)
	for i := 1; i <= 5; i++ {
		b.Push(i)
	}
	assert.Equal(t, []int{3, 4, 5}, b.Items())
	assert.Equal(t, 3, len(b.Items()))
	assert.Equal(t, uint64(2), b.Dropped())
}

func TestBufferUnbounded(t *testing.T) {
	b := New[string](0)
	for i := 0; i < 1000; i++ {
		b.Push("x")
	}
	assert.Equal(t, 1000, len(b.Items()))
	assert.Zero(t, b.Dropped())
}

func TestBufferItemsIsACopy(t *testing.T) {
	b := New[int](2)
	b.Push(1)
	items := b.Items()
	items[0] = 42
	assert.Equal(t, []int{1}, b.Items())
}

func TestBufferNeverExceedsCapacityUnderConcurrency(t *testing.T) {
	b := New[int](50)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				b.Push(w*1000 + i)
				assert.LessOrEqual(t, len(b.Items()), 50)
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 50, len(b.Items()))
	assert.Equal(t, uint64(8*500-50), b.Dropped())
}
