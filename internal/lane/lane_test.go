package lane

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_SameKeyRunsInOrder(t *testing.T) {
	m := NewManager(ManagerConfig{})

	var (
		mu  sync.Mutex
		got []int
		wg  sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		i := i // per-iteration copy (go directive < 1.22)
		wg.Add(1)
		require.NoError(t, m.Submit(context.Background(), -100, func() {
			defer wg.Done()
			if i%3 == 0 {
				time.Sleep(time.Millisecond)
			}
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	wg.Wait()

	want := make([]int, 20)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
}

func TestSubmit_DifferentKeysRunConcurrently(t *testing.T) {
	m := NewManager(ManagerConfig{})

	release := make(chan struct{})
	blocked := make(chan struct{})
	require.NoError(t, m.Submit(context.Background(), 1, func() {
		close(blocked)
		<-release
	}))
	<-blocked

	done := make(chan struct{})
	require.NoError(t, m.Submit(context.Background(), 2, func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("key 2 was held up by key 1")
	}
	close(release)
}

func TestSubmit_CancelledWhileQueueFull(t *testing.T) {
	m := NewManager(ManagerConfig{QueueSize: 1})

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, m.Submit(context.Background(), 7, func() {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, m.Submit(context.Background(), 7, func() {}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	var ran atomic.Bool
	err := m.Submit(ctx, 7, func() { ran.Store(true) })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	time.Sleep(20 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestIdleLaneRetires(t *testing.T) {
	m := NewManager(ManagerConfig{IdleTimeout: 10 * time.Millisecond})

	done := make(chan struct{})
	require.NoError(t, m.Submit(context.Background(), 3, func() { close(done) }))
	<-done
	assert.Equal(t, 1, m.Len())

	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)

	// a retired key gets a fresh lane
	again := make(chan struct{})
	require.NoError(t, m.Submit(context.Background(), 3, func() { close(again) }))
	<-again

	assert.Equal(t, int64(2), m.Stats()["lanesCreated"])
	assert.Eventually(t, func() bool { return m.Stats()["jobsDone"] == int64(2) }, time.Second, 5*time.Millisecond)
}
