//go:build linux

package poller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func socketpair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	return fds[0], fds[1]
}

func TestWaitReportsReadable(t *testing.T) {
	p, err := New(16)
	require.NoError(t, err)
	defer p.Close()

	a, b := socketpair(t)
	defer unix.Close(a)
	defer unix.Close(b)
	require.NoError(t, p.Register(a, true, false))

	events := make([]Event, 16)
	n, err := p.Wait(events, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = unix.Write(b, []byte("hello"))
	require.NoError(t, err)
	n, err = p.Wait(events, time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, a, events[0].FD)
	assert.True(t, events[0].Readable)
	assert.False(t, events[0].Err)

	// 边缘触发：数据未读完也不会再次通知
	n, err = p.Wait(events, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestModWritableAndUnregister(t *testing.T) {
	p, err := New(16)
	require.NoError(t, err)
	defer p.Close()

	a, b := socketpair(t)
	defer unix.Close(a)
	defer unix.Close(b)
	require.NoError(t, p.Register(a, true, false))
	require.NoError(t, p.Mod(a, true, true))

	events := make([]Event, 16)
	n, err := p.Wait(events, time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.True(t, events[0].Writable)

	require.NoError(t, p.Unregister(a))
	_, err = unix.Write(b, []byte("x"))
	require.NoError(t, err)
	n, err = p.Wait(events, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWaitReportsHangup(t *testing.T) {
	p, err := New(16)
	require.NoError(t, err)
	defer p.Close()

	a, b := socketpair(t)
	defer unix.Close(a)
	require.NoError(t, p.Register(a, true, false))
	require.NoError(t, unix.Close(b))

	events := make([]Event, 16)
	n, err := p.Wait(events, time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.True(t, events[0].Err)
}

func TestWakeInterruptsWait(t *testing.T) {
	p, err := New(16)
	require.NoError(t, err)
	defer p.Close()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = p.Wake()
	}()
	start := time.Now()
	n, err := p.Wait(make([]Event, 4), 10*time.Second)
	require.NoError(t, err)
	assert.Zero(t, n, "wake events are not reported to the caller")
	assert.Less(t, time.Since(start), 5*time.Second)
}
