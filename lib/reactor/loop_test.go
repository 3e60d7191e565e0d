package reactor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// --------------------------------------------------------------------------
// Test doubles
// --------------------------------------------------------------------------

type pollRecord struct {
	op          string
	fd          int
	read, write bool
}

// fakePoller records interest-set changes and lets the test inject readiness
// events through a channel, replacing the kernel for loop tests.
type fakePoller struct {
	mu      sync.Mutex
	records []pollRecord

	events chan []Event
	wake   chan struct{}
}

func newFakePoller() *fakePoller {
	return &fakePoller{
		events: make(chan []Event, 16),
		wake:   make(chan struct{}, 16),
	}
}

func (p *fakePoller) record(r pollRecord) {
	p.mu.Lock()
	p.records = append(p.records, r)
	p.mu.Unlock()
}

func (p *fakePoller) recorded() []pollRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]pollRecord, len(p.records))
	copy(out, p.records)
	return out
}

func (p *fakePoller) Add(fd int, read, write bool) error {
	p.record(pollRecord{"add", fd, read, write})
	return nil
}

func (p *fakePoller) Mod(fd int, read, write bool) error {
	p.record(pollRecord{"mod", fd, read, write})
	return nil
}

func (p *fakePoller) Del(fd int) error {
	p.record(pollRecord{"del", fd, false, false})
	return nil
}

func (p *fakePoller) Wait(events []Event) (int, error) {
	select {
	case evs := <-p.events:
		return copy(events, evs), nil
	case <-p.wake:
		return 0, nil
	}
}

func (p *fakePoller) Wakeup() error {
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

func (p *fakePoller) Close() error { return nil }

type recordingHandler struct {
	readable chan struct{}
	writable chan struct{}
	onRead   func()
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		readable: make(chan struct{}, 16),
		writable: make(chan struct{}, 16),
	}
}

func (h *recordingHandler) OnReadable() {
	h.readable <- struct{}{}
	if h.onRead != nil {
		h.onRead()
	}
}

func (h *recordingHandler) OnWritable() {
	h.writable <- struct{}{}
}

// runOnLoop executes fn on the loop goroutine and waits for it to finish
func runOnLoop(t *testing.T, l *Loop, fn func()) {
	t.Helper()
	done := make(chan struct{})
	l.RunInLoop(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop task did not run")
	}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestLoopStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(newFakePoller())
	l.Start()
	l.Start() // second Start is a no-op
	l.Stop()
}

func TestRunInLoopAffinity(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(newFakePoller())
	l.Start()
	defer l.Stop()

	require.False(t, l.InLoop())
	require.Panics(t, l.AssertInLoop)

	var order []string
	runOnLoop(t, l, func() {
		require.True(t, l.InLoop())
		l.AssertInLoop()

		order = append(order, "outer")
		// from the loop goroutine RunInLoop executes inline
		l.RunInLoop(func() { order = append(order, "inline") })
		order = append(order, "after")
	})
	require.Equal(t, []string{"outer", "inline", "after"}, order)
}

func TestQueueInLoopIsNeverInline(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(newFakePoller())
	l.Start()
	defer l.Stop()

	ran := make(chan struct{})
	runOnLoop(t, l, func() {
		l.QueueInLoop(func() { close(ran) })
		select {
		case <-ran:
			t.Error("queued task ran inline")
		default:
		}
	})

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("queued task never ran")
	}
}

func TestRegisterAndDispatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := newFakePoller()
	l := NewLoop(p)
	l.Start()
	defer l.Stop()

	h := newRecordingHandler()
	var sub *Subscription
	runOnLoop(t, l, func() {
		var err error
		sub, err = l.Register(42, h)
		require.NoError(t, err)
		sub.EnableRead()
	})

	p.events <- []Event{{FD: 42, Readable: true, Writable: true}}
	select {
	case <-h.readable:
	case <-time.After(2 * time.Second):
		t.Fatal("read handler not dispatched")
	}

	// write watch was never enabled, so the writable half is dropped
	runOnLoop(t, l, func() {}) // barrier: dispatch turn is over
	select {
	case <-h.writable:
		t.Fatal("write handler dispatched without a write watch")
	default:
	}

	recs := p.recorded()
	require.Contains(t, recs, pollRecord{"add", 42, false, false})
	require.Contains(t, recs, pollRecord{"mod", 42, true, false})
}

func TestDispatchSkipsEventsForUnknownFD(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := newFakePoller()
	l := NewLoop(p)
	l.Start()
	defer l.Stop()

	p.events <- []Event{{FD: 7, Readable: true}}
	runOnLoop(t, l, func() {}) // loop survives the stray event
}

func TestReadHandlerMayCloseSubscription(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := newFakePoller()
	l := NewLoop(p)
	l.Start()
	defer l.Stop()

	h := newRecordingHandler()
	var sub *Subscription
	runOnLoop(t, l, func() {
		var err error
		sub, err = l.Register(9, h)
		require.NoError(t, err)
		sub.EnableRead()
		sub.EnableWrite()
	})
	h.onRead = func() { _ = sub.Close() }

	p.events <- []Event{{FD: 9, Readable: true, Writable: true}}
	select {
	case <-h.readable:
	case <-time.After(2 * time.Second):
		t.Fatal("read handler not dispatched")
	}

	runOnLoop(t, l, func() {
		r, w := sub.Watching()
		// flags are frozen once closed
		require.True(t, r)
		require.True(t, w)
		// closing again is a no-op
		require.NoError(t, sub.Close())
	})
	select {
	case <-h.writable:
		t.Fatal("write handler dispatched after teardown")
	default:
	}
	require.Contains(t, p.recorded(), pollRecord{"del", 9, false, false})
}

func TestSubscriptionFlagChangesAreDeduplicated(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := newFakePoller()
	l := NewLoop(p)
	l.Start()
	defer l.Stop()

	runOnLoop(t, l, func() {
		sub, err := l.Register(5, newRecordingHandler())
		require.NoError(t, err)

		sub.EnableRead()
		sub.EnableRead() // no interest change, no poller call
		sub.EnableWrite()
		sub.DisableWrite()

		var mods []pollRecord
		for _, r := range p.recorded() {
			if r.op == "mod" {
				mods = append(mods, r)
			}
		}
		require.Equal(t, []pollRecord{
			{"mod", 5, true, false},
			{"mod", 5, true, true},
			{"mod", 5, true, false},
		}, mods)
	})
}

func TestClosedSubscriptionIgnoresToggles(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := newFakePoller()
	l := NewLoop(p)
	l.Start()
	defer l.Stop()

	runOnLoop(t, l, func() {
		sub, err := l.Register(3, newRecordingHandler())
		require.NoError(t, err)
		require.NoError(t, sub.Close())

		before := len(p.recorded())
		sub.EnableRead()
		sub.EnableWrite()
		require.Len(t, p.recorded(), before)
	})
}
