package syncutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignaller_WaitForTimeout(t *testing.T) {
	tests := []struct {
		name     string
		signal   bool
		timeout  time.Duration
		expected bool
	}{
		{name: "Signalled before wait", signal: true, timeout: 50 * time.Millisecond, expected: true},
		{name: "Not signalled times out", signal: false, timeout: 30 * time.Millisecond, expected: false},
		{name: "Zero timeout", signal: true, timeout: 0, expected: false},
		{name: "Negative timeout", signal: false, timeout: -time.Second, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSignaller()
			if tt.signal {
				s.Signal()
			}
			assert.Equal(t, tt.expected, s.WaitForTimeout(tt.timeout))
		})
	}
}

func TestSignaller_WakesAllWaiters(t *testing.T) {
	var s Signaller

	const waiters = 5
	var wg sync.WaitGroup
	results := make(chan bool, waiters)

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.WaitForTimeout(2 * time.Second)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	s.Signal()
	wg.Wait()
	close(results)

	for r := range results {
		assert.True(t, r)
	}
}

func TestSignaller_WaitIndefinitely(t *testing.T) {
	s := NewSignaller()
	done := make(chan struct{})

	go func() {
		s.WaitIndefinitely()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("waiter returned before signal")
	case <-time.After(20 * time.Millisecond):
	}

	s.Signal()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken")
	}
}

func TestSignaller_Reset(t *testing.T) {
	s := NewSignaller()
	s.Signal()
	require.True(t, s.IsSignalled())

	s.Reset()
	assert.False(t, s.IsSignalled())
	assert.False(t, s.WaitForTimeout(10*time.Millisecond))

	// повторный сигнал после сброса
	s.Signal()
	assert.True(t, s.WaitForTimeout(10*time.Millisecond))
}

func TestSignaller_WaitContext(t *testing.T) {
	s := NewSignaller()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)

	s.Signal()
	assert.NoError(t, s.Wait(context.Background()))
}
