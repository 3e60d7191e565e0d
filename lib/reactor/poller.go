package reactor

import "errors"

var (
	// ErrWouldBlock is returned by socket operations that would block; the
	// caller must wait for the next readiness notification.
	ErrWouldBlock = errors.New("reactor: operation would block")

	// ErrUnsupported is returned on platforms without a poller implementation
	ErrUnsupported = errors.New("reactor: not supported on this platform")
)

// Event is a single readiness notification for a file descriptor
type Event struct {
	FD       int
	Readable bool
	Writable bool
}

// Poller abstracts the OS readiness-notification mechanism. All methods
// except Wakeup are called from the loop goroutine only; Wakeup may be
// called from anywhere to interrupt a blocked Wait.
type Poller interface {
	// Add registers fd with the given initial interest set
	Add(fd int, read, write bool) error
	// Mod replaces the interest set for fd
	Mod(fd int, read, write bool) error
	// Del removes fd from the poller
	Del(fd int) error
	// Wait blocks until at least one event is ready or Wakeup is called.
	// It fills events and returns the number of entries written.
	Wait(events []Event) (int, error)
	// Wakeup interrupts a blocked Wait
	Wakeup() error
	// Close releases the poller's resources
	Close() error
}
