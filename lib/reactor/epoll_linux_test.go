//go:build linux

package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func testSocketPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestEpollReadReadiness(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	local, peer := testSocketPair(t)
	require.NoError(t, p.Add(local, true, false))

	_, err = unix.Write(peer, []byte("ping"))
	require.NoError(t, err)

	events := make([]Event, 8)
	n, err := p.Wait(events)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, local, events[0].FD)
	require.True(t, events[0].Readable)
	require.False(t, events[0].Writable)
}

func TestEpollWriteReadinessAndMod(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	local, _ := testSocketPair(t)
	require.NoError(t, p.Add(local, false, false))

	// an idle stream socket with room in its send buffer is write-ready
	require.NoError(t, p.Mod(local, false, true))

	events := make([]Event, 8)
	n, err := p.Wait(events)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.True(t, events[0].Writable)

	require.NoError(t, p.Del(local))
}

func TestEpollWakeupInterruptsWait(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	woke := make(chan struct{})
	go func() {
		events := make([]Event, 8)
		n, err := p.Wait(events)
		// a pure wakeup carries no socket events
		if err == nil && n == 0 {
			close(woke)
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, p.Wakeup())

	select {
	case <-woke:
	case <-time.After(2 * time.Second):
		t.Fatal("Wakeup did not interrupt Wait")
	}
}

func TestEpollPeerCloseSurfacesReadable(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	local, peer := testSocketPair(t)
	require.NoError(t, p.Add(local, true, false))
	require.NoError(t, unix.Close(peer))

	events := make([]Event, 8)
	n, err := p.Wait(events)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	// the hangup must reach the read path so the owner sees EOF
	require.True(t, events[0].Readable)
}
