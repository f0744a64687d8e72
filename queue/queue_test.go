package queue_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	woodchuck "github.com/klaatu01/woodchuck-go"
	"github.com/klaatu01/woodchuck-go/queue"
)

func logN(n int) []woodchuck.Log {
	logs := make([]woodchuck.Log, n)
	for i := range logs {
		logs[i] = woodchuck.FormattedLog(map[string]any{"i": i})
	}
	return logs
}

func TestLogQueue_AppendLen(t *testing.T) {
	q := queue.New()
	require.Equal(t, 0, q.Len())

	q.Append(logN(3))
	require.Equal(t, 3, q.Len())

	q.Append(logN(2))
	require.Equal(t, 5, q.Len())
}

func TestLogQueue_DrainAll(t *testing.T) {
	q := queue.New()
	require.Nil(t, q.DrainAll())

	q.Append(logN(4))
	drained := q.DrainAll()
	require.Len(t, drained, 4)
	require.Equal(t, 0, q.Len())
}

// TestLogQueue_DrainThenExtendIdempotence checks the invariant that
// drain_all() followed by extend(x) leaves the queue with exactly the
// elements of x.
func TestLogQueue_DrainThenExtendIdempotence(t *testing.T) {
	q := queue.New()
	q.Append(logN(10))

	q.DrainAll()
	require.Equal(t, 0, q.Len())

	failed := logN(3)
	q.Extend(failed)
	require.Equal(t, 3, q.Len())

	require.Equal(t, failed, q.DrainAll())
}

func TestLogQueue_ConcurrentAppend(t *testing.T) {
	q := queue.New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Append(logN(1))
		}()
	}
	wg.Wait()
	require.Equal(t, 50, q.Len())
}
