package reactor

import (
	"bytes"
	"runtime"
	"strconv"
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"
)

var lg = logger.GetLogger("reactor")

// Handler receives readiness notifications for a registered socket. Both
// methods are invoked on the loop goroutine.
type Handler interface {
	OnReadable()
	OnWritable()
}

// Loop is a single-goroutine event loop. It multiplexes socket readiness
// through its Poller and runs queued tasks between poll turns. All
// registered handlers and subscriptions are owned by the loop goroutine.
type Loop struct {
	poller Poller
	tasks  *taskQueue

	watches map[int]*Subscription

	gid     uint64 // goroutine id of the running loop, 0 before Start
	started atomic.Bool
	quit    bool
	done    chan struct{}
}

// NewLoop creates a loop on the given poller. The loop does not run until
// Start is called.
func NewLoop(p Poller) *Loop {
	return &Loop{
		poller:  p,
		tasks:   newTaskQueue(),
		watches: make(map[int]*Subscription),
		done:    make(chan struct{}),
	}
}

// Start launches the loop goroutine. Calling Start twice is a no-op.
func (l *Loop) Start() {
	if !l.started.CompareAndSwap(false, true) {
		return
	}
	go l.run()
}

// Stop asks the loop to exit, waits for the loop goroutine to finish and
// releases the poller. Must not be called from the loop goroutine.
func (l *Loop) Stop() {
	if !l.started.Load() {
		return
	}
	l.QueueInLoop(func() { l.quit = true })
	<-l.done
	if err := l.poller.Close(); err != nil {
		lg.Warningf("poller close: %v", err)
	}
}

// InLoop reports whether the caller is running on the loop goroutine
func (l *Loop) InLoop() bool {
	return atomic.LoadUint64(&l.gid) == goroutineID()
}

// AssertInLoop panics when the caller is not on the loop goroutine. State
// owned by the loop may only be mutated where this assertion holds.
func (l *Loop) AssertInLoop() {
	if !l.InLoop() {
		lg.Panicf("reactor: loop-affine operation called from foreign goroutine")
	}
}

// RunInLoop executes fn on the loop goroutine: inline when the caller is
// already on it, otherwise queued for the next turn.
func (l *Loop) RunInLoop(fn func()) {
	if l.InLoop() {
		fn()
		return
	}
	l.QueueInLoop(fn)
}

// QueueInLoop schedules fn for the loop's next turn, never inline
func (l *Loop) QueueInLoop(fn func()) {
	l.tasks.push(fn)
	if err := l.poller.Wakeup(); err != nil {
		lg.Warningf("poller wakeup: %v", err)
	}
}

// Register adds fd to the poller with an empty interest set and returns its
// Subscription. Loop goroutine only.
func (l *Loop) Register(fd int, h Handler) (*Subscription, error) {
	l.AssertInLoop()

	if err := l.poller.Add(fd, false, false); err != nil {
		return nil, err
	}
	sub := &Subscription{loop: l, fd: fd, handler: h}
	l.watches[fd] = sub
	return sub, nil
}

// --------------------------------------------------------------------------
// Loop internals
// --------------------------------------------------------------------------

func (l *Loop) run() {
	atomic.StoreUint64(&l.gid, goroutineID())
	defer close(l.done)

	events := make([]Event, 64)
	for {
		n, err := l.poller.Wait(events)
		if err != nil {
			lg.Errorf("poll: %v", err)
			return
		}

		for i := 0; i < n; i++ {
			ev := events[i]
			sub := l.watches[ev.FD]
			if sub == nil {
				continue
			}
			if ev.Readable && sub.read && !sub.closed {
				sub.handler.OnReadable()
			}
			// the read handler may have torn the subscription down
			if ev.Writable && sub.write && !sub.closed {
				sub.handler.OnWritable()
			}
		}

		l.drainTasks()

		if l.quit {
			return
		}
	}
}

func (l *Loop) drainTasks() {
	for {
		fn, ok := l.tasks.pop()
		if !ok {
			return
		}
		fn()
	}
}

// goroutineID parses the current goroutine's id from its stack header.
// Only used to enforce loop affinity, never for dispatch.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// header is "goroutine <id> [...":
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// --------------------------------------------------------------------------
// Subscription
// --------------------------------------------------------------------------

// Subscription is a socket's read/write watch registration on its loop. The
// flags always mirror the owner's current demand. All methods are loop-
// goroutine only and become no-ops once the subscription is closed.
type Subscription struct {
	loop    *Loop
	fd      int
	handler Handler
	read    bool
	write   bool
	closed  bool
}

// EnableRead starts read-readiness notifications
func (s *Subscription) EnableRead() { s.set(true, s.write) }

// DisableRead stops read-readiness notifications
func (s *Subscription) DisableRead() { s.set(false, s.write) }

// EnableWrite starts write-readiness notifications
func (s *Subscription) EnableWrite() { s.set(s.read, true) }

// DisableWrite stops write-readiness notifications
func (s *Subscription) DisableWrite() { s.set(s.read, false) }

// Watching returns the current (read, write) watch flags
func (s *Subscription) Watching() (bool, bool) { return s.read, s.write }

// Close removes the registration from the poller. Idempotent; further
// toggles on a closed subscription are ignored.
func (s *Subscription) Close() error {
	s.loop.AssertInLoop()
	if s.closed {
		return nil
	}
	s.closed = true
	delete(s.loop.watches, s.fd)
	return s.loop.poller.Del(s.fd)
}

func (s *Subscription) set(read, write bool) {
	s.loop.AssertInLoop()
	if s.closed || (s.read == read && s.write == write) {
		return
	}
	s.read, s.write = read, write
	if err := s.loop.poller.Mod(s.fd, read, write); err != nil {
		lg.Errorf("poller mod fd=%d: %v", s.fd, err)
	}
}
