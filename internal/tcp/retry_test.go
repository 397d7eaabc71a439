package tcp

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closedAddr returns an address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestCalculateExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		max     time.Duration
		want    time.Duration
	}{
		{attempt: 0, max: time.Second, want: 100 * time.Millisecond},
		{attempt: 1, max: time.Second, want: 200 * time.Millisecond},
		{attempt: 3, max: time.Second, want: 800 * time.Millisecond},
		{attempt: 4, max: time.Second, want: time.Second},
		{attempt: 4, max: 0, want: 1600 * time.Millisecond},
	}

	for _, tt := range tests {
		got := calculateExponentialBackoff(100*time.Millisecond, tt.attempt, tt.max)
		assert.Equal(t, tt.want, got, "attempt %d", tt.attempt)
	}
}

func TestConnectWithRetry_Success(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	c := NewClient(64, nil)
	err = c.ConnectWithRetry(context.Background(), ln.Addr().String(), RetryOptions{MaxAttempts: 3})
	require.NoError(t, err)
	assert.True(t, c.IsConnected())
	require.NoError(t, c.Close())
}

func TestConnectWithRetry_GivesUp(t *testing.T) {
	c := NewClient(64, nil)

	start := time.Now()
	err := c.ConnectWithRetry(context.Background(), closedAddr(t), RetryOptions{
		MaxAttempts:    3,
		UseExponential: true,
		InitialDelay:   10 * time.Millisecond,
		MaxDelay:       50 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 attempts")
	// 10ms + 20ms между попытками
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.False(t, c.IsConnected())
}

func TestConnectWithRetry_ContextCancelled(t *testing.T) {
	c := NewClient(64, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	err := c.ConnectWithRetry(ctx, closedAddr(t), RetryOptions{
		MaxAttempts:  5,
		InitialDelay: time.Hour,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestConnectWithRetry_AlreadyConnected(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	c := NewClient(64, nil)
	require.NoError(t, c.Connect(context.Background(), ln.Addr().String()))
	defer c.Close()

	err = c.ConnectWithRetry(context.Background(), ln.Addr().String(), RetryOptions{MaxAttempts: 3})
	assert.ErrorIs(t, err, ErrAlreadyConnected)
}
