package router

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrowableBuffer_SendReceive(t *testing.T) {
	buf := NewGrowableBuffer[int](10)
	for i := 0; i < 5; i++ {
		require.True(t, buf.Send(i))
	}
	assert.Equal(t, 5, buf.Len())

	for i := 0; i < 5; i++ {
		v, ok := buf.TryReceive()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := buf.TryReceive()
	assert.False(t, ok)
}

func TestGrowableBuffer_Grows(t *testing.T) {
	t.Run("at seventy percent", func(t *testing.T) {
		buf := NewGrowableBuffer[int](10)
		for i := 0; i < 7; i++ {
			buf.Send(i)
		}
		stats := buf.Stats()
		assert.Equal(t, 20, stats.Capacity)
		assert.Equal(t, 1, stats.ResizeCount)
	})

	t.Run("many times", func(t *testing.T) {
		buf := NewGrowableBuffer[int](4)
		for i := 0; i < 100; i++ {
			require.True(t, buf.Send(i))
		}
		assert.Equal(t, 100, buf.Len())
		assert.Greater(t, buf.Cap(), 100)
		assert.Equal(t, []int{0, 1, 2}, buf.DrainTo(3))
	})

	t.Run("while wrapped", func(t *testing.T) {
		buf := NewGrowableBuffer[int](5)
		buf.Send(1)
		buf.Send(2)
		buf.Send(3)
		buf.TryReceive()
		buf.TryReceive()
		for i := 4; i <= 8; i++ {
			buf.Send(i)
		}
		assert.Equal(t, []int{3, 4, 5, 6, 7, 8}, buf.DrainTo(0))
	})

	t.Run("minimum capacity", func(t *testing.T) {
		assert.Equal(t, 1, NewGrowableBuffer[int](0).Cap())
		assert.Equal(t, 1, NewGrowableBuffer[int](-5).Cap())
	})
}

func TestGrowableBuffer_Close(t *testing.T) {
	buf := NewGrowableBuffer[int](4)
	buf.Send(1)
	buf.Close()
	buf.Close()

	assert.False(t, buf.Send(2))

	v, ok := buf.Receive()
	require.True(t, ok, "items sent before close are delivered")
	assert.Equal(t, 1, v)

	_, ok = buf.Receive()
	assert.False(t, ok)
}

func TestGrowableBuffer_BlockingReceive(t *testing.T) {
	buf := NewGrowableBuffer[string](2)
	got := make(chan string, 1)
	go func() {
		v, _ := buf.Receive()
		got <- v
	}()

	time.Sleep(10 * time.Millisecond)
	buf.Send("hello")

	select {
	case v := <-got:
		assert.Equal(t, "hello", v)
	case <-time.After(time.Second):
		t.Fatal("Receive did not unblock")
	}
}

func TestGrowableBuffer_CloseUnblocksReceive(t *testing.T) {
	buf := NewGrowableBuffer[int](2)
	done := make(chan bool, 1)
	go func() {
		_, ok := buf.Receive()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	buf.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Close did not unblock Receive")
	}
}

func TestGrowableBuffer_ReceiveContext(t *testing.T) {
	buf := NewGrowableBuffer[int](2)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := buf.ReceiveContext(ctx)
	assert.False(t, ok)
}

func TestGrowableBuffer_ConcurrentSendReceive(t *testing.T) {
	buf := NewGrowableBuffer[int](10)
	const n = 1000

	go func() {
		for i := 0; i < n; i++ {
			buf.Send(i)
		}
	}()

	var (
		wg       sync.WaitGroup
		received []int
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			v, ok := buf.Receive()
			if !ok {
				return
			}
			received = append(received, v)
		}
	}()
	wg.Wait()

	require.Len(t, received, n)
	for i, v := range received {
		assert.Equal(t, i, v, "single producer order is preserved")
	}
}

func TestGrowableBuffer_Stats(t *testing.T) {
	buf := NewGrowableBuffer[int](10)
	assert.Equal(t, BufferStats{Capacity: 10}, buf.Stats())

	buf.Send(1)
	buf.Send(2)
	buf.Send(3)
	buf.TryReceive()
	buf.TryReceive()

	stats := buf.Stats()
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, int64(3), stats.TotalReceived)
	assert.Equal(t, int64(2), stats.TotalSent)
}
