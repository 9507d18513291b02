package local

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueRunsInOrder(t *testing.T) {
	q := newQueue()
	var mu sync.Mutex
	var got []int
	for i := range 100 {
		q.push(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	q.close()

	want := make([]int, 100)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)

	assert.False(t, q.push(func() { t.Error("ran after close") }))
	assert.True(t, q.isClosed())
	q.close()
}

func TestLimiterPerKey(t *testing.T) {
	l := newLimiter(0.0001, 1)
	assert.True(t, l.allow("email:a@example.com"))
	assert.False(t, l.allow("email:a@example.com"))
	assert.True(t, l.allow("email:b@example.com"))
}
