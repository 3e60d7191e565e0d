package reactor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaskQueueSingleProducerOrder(t *testing.T) {
	q := newTaskQueue()

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		q.push(func() { got = append(got, i) })
	}

	for {
		fn, ok := q.pop()
		if !ok {
			break
		}
		fn()
	}

	require.Len(t, got, 100)
	for i, v := range got {
		require.Equal(t, i, v, "tasks from one producer must run in push order")
	}
}

func TestTaskQueuePopEmpty(t *testing.T) {
	q := newTaskQueue()

	fn, ok := q.pop()
	require.False(t, ok)
	require.Nil(t, fn)

	q.push(func() {})
	_, ok = q.pop()
	require.True(t, ok)
	_, ok = q.pop()
	require.False(t, ok)
}

// TestTaskQueueConcurrentProducers verifies that no task is lost or
// duplicated when many goroutines push against a single draining consumer
func TestTaskQueueConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 2000

	q := newTaskQueue()

	var mu sync.Mutex
	seen := make(map[int]int)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				id := p*perProducer + i
				q.push(func() {
					mu.Lock()
					seen[id]++
					mu.Unlock()
				})
			}
		}(p)
	}

	// single consumer drains while producers are still pushing
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	total := 0
	for {
		fn, ok := q.pop()
		if ok {
			fn()
			total++
			continue
		}
		select {
		case <-done:
			// producers finished; drain the remainder
			for {
				fn, ok := q.pop()
				if !ok {
					require.Equal(t, producers*perProducer, total)
					mu.Lock()
					defer mu.Unlock()
					for id, n := range seen {
						require.Equal(t, 1, n, "task %d ran %d times", id, n)
					}
					return
				}
				fn()
				total++
			}
		default:
		}
	}
}
