package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestQueue_PollStates(t *testing.T) {
	q := New(2)
	assert.Equal(t, 2, q.Cap())

	_, state := q.Poll()
	assert.Equal(t, PollEmpty, state)

	require.NoError(t, q.Push(context.Background(), Record{Key: []byte{1}}))
	assert.Equal(t, 1, q.Len())

	q.Close()
	q.Close()

	rec, state := q.Poll()
	assert.Equal(t, PollItem, state)
	assert.Equal(t, []byte{1}, rec.Key)

	_, state = q.Poll()
	assert.Equal(t, PollClosed, state)
}

func TestQueue_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, New(0).Cap())
}

func TestQueue_PushRespectsContext(t *testing.T) {
	q := New(1)
	require.NoError(t, q.Push(context.Background(), Record{}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Push(ctx, Record{}), context.DeadlineExceeded)
}

func TestQueue_Next(t *testing.T) {
	q := FromRecords([]Record{{Key: []byte("a")}, {Key: []byte("b")}})

	var keys []string
	for {
		rec, ok, err := q.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		keys = append(keys, string(rec.Key))
	}
	assert.Equal(t, []string{"a", "b"}, keys)

	open := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err := open.Next(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueue_ManyConsumersSeeEveryRecordOnce(t *testing.T) {
	const n = 5000
	q := New(64)

	go func() {
		for i := 0; i < n; i++ {
			_ = q.Push(context.Background(), Record{Key: []byte{byte(i)}})
		}
		q.Close()
	}()

	var received atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				_, state := q.Poll()
				switch state {
				case PollItem:
					received.Add(1)
				case PollEmpty:
					time.Sleep(time.Microsecond)
				case PollClosed:
					return
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(n), received.Load())
}

func TestPollState_String(t *testing.T) {
	assert.Equal(t, "item", PollItem.String())
	assert.Equal(t, "empty", PollEmpty.String())
	assert.Equal(t, "closed", PollClosed.String())
}
