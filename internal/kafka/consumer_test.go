package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeReader hands out msgs once, then blocks like an idle partition.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []kafka.Message
	want      int
	done      chan struct{}
}

func newFakeReader(want int, msgs ...kafka.Message) *fakeReader {
	return &fakeReader{msgs: msgs, want: want, done: make(chan struct{})}
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.msgs) > 0 {
		m := f.msgs[0]
		f.msgs = f.msgs[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	if len(f.committed) == f.want {
		close(f.done)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

func (f *fakeReader) offsets(partition int) []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int64
	for _, m := range f.committed {
		if m.Partition == partition {
			out = append(out, m.Offset)
		}
	}
	return out
}

func msg(partition int, offset int64) kafka.Message {
	return kafka.Message{Topic: "store.test", Partition: partition, Offset: offset, Value: []byte(`{}`)}
}

func startConsumer(t *testing.T, r *fakeReader, workers int, h Handler) (context.CancelFunc, <-chan error) {
	t.Helper()
	c := newConsumer(r, workers, zap.NewNop())
	c.minBackoff, c.maxBackoff = time.Millisecond, 5*time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	exit := make(chan error, 1)
	go func() { exit <- c.Start(ctx, h) }()
	return cancel, exit
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out")
	}
}

func TestFailedMessageIsRetriedBeforeLaterOffsetsCommit(t *testing.T) {
	r := newFakeReader(3, msg(0, 10), msg(0, 11), msg(0, 12))

	var mu sync.Mutex
	var calls []int64
	failures := 2
	h := func(_ context.Context, m kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, m.Offset)
		if m.Offset == 10 && failures > 0 {
			failures--
			return errors.New("redis down")
		}
		return nil
	}

	cancel, exit := startConsumer(t, r, 4, h)
	waitFor(t, r.done)
	cancel()
	require.NoError(t, <-exit)

	assert.Equal(t, []int64{10, 11, 12}, r.offsets(0))
	mu.Lock()
	assert.Equal(t, []int64{10, 10, 10, 11, 12}, calls)
	mu.Unlock()
}

func TestPartitionsKeepTheirOrderAcrossWorkers(t *testing.T) {
	var in []kafka.Message
	for off := int64(0); off < 20; off++ {
		in = append(in, msg(int(off%3), off))
	}
	r := newFakeReader(len(in), in...)

	cancel, exit := startConsumer(t, r, 2, func(context.Context, kafka.Message) error { return nil })
	waitFor(t, r.done)
	cancel()
	require.NoError(t, <-exit)

	for p := 0; p < 3; p++ {
		got := r.offsets(p)
		assert.IsIncreasing(t, got, "partition %d", p)
	}
}

func TestPermanentErrorIsCommittedWithoutRetry(t *testing.T) {
	r := newFakeReader(2, msg(0, 1), msg(0, 2))
	var calls int
	var mu sync.Mutex
	h := func(_ context.Context, m kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if m.Offset == 1 {
			return Permanent(errors.New("decode envelope: bad json"))
		}
		return nil
	}

	cancel, exit := startConsumer(t, r, 1, h)
	waitFor(t, r.done)
	cancel()
	require.NoError(t, <-exit)

	assert.Equal(t, []int64{1, 2}, r.offsets(0))
	mu.Lock()
	assert.Equal(t, 2, calls)
	mu.Unlock()
}

func TestShutdownDuringRetryLeavesOffsetUncommitted(t *testing.T) {
	r := newFakeReader(-1, msg(0, 5), msg(0, 6))
	attempts := make(chan struct{}, 100)
	h := func(_ context.Context, m kafka.Message) error {
		attempts <- struct{}{}
		return errors.New("redis down")
	}

	cancel, exit := startConsumer(t, r, 1, h)
	for i := 0; i < 3; i++ {
		select {
		case <-attempts:
		case <-time.After(3 * time.Second):
			t.Fatal("handler not retried")
		}
	}
	cancel()
	require.NoError(t, <-exit)

	assert.Empty(t, r.offsets(0))
}

func TestPermanentWrapsAndUnwraps(t *testing.T) {
	base := errors.New("bad payload")
	err := Permanent(base)

	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
	assert.NoError(t, Permanent(nil))
}
