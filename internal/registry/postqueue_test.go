package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostQueueDrainAllRunsInOrder(t *testing.T) {
	q := NewPostQueue()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		q.Post(func() { order = append(order, i) })
	}
	q.DrainAll()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.Equal(t, 0, q.Len())
}

func TestPostQueueDrainDuringDrainDoesNotDeadlock(t *testing.T) {
	q := NewPostQueue()
	ran := false
	q.Post(func() {
		q.Post(func() { ran = true })
	})
	q.DrainAll()
	assert.False(t, ran, "thunk queued mid-drain should wait for the next DrainAll")
	q.DrainAll()
	assert.True(t, ran)
}

func TestPostQueueRequeuePutsThunksAtFront(t *testing.T) {
	q := NewPostQueue()
	q.Post(func() {})
	var order []string
	q.Requeue([]func(){
		func() { order = append(order, "a") },
		func() { order = append(order, "b") },
	})
	assert.Equal(t, 3, q.Len())
	q.DrainAll()
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestPostQueueDrainUpTo(t *testing.T) {
	q := NewPostQueue()
	count := 0
	for i := 0; i < 3; i++ {
		q.Post(func() { count++ })
	}
	n := q.DrainUpTo(2)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, q.Len())
}
