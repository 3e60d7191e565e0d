package redis

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Connection registry
// --------------------------------------------------------------------------

// The reactor never holds a *Conn. Each connection attempt gets an opaque
// uint64 handle; readiness callbacks carry only the handle and resolve it
// here. Teardown removes the entry before the subscription is released, so
// a callback arriving late resolves to nothing and is a safe no-op.
var (
	connRegistry = xsync.NewMapOf[uint64, *Conn]()
	nextHandle   atomic.Uint64
)

func registerConn(c *Conn) uint64 {
	h := nextHandle.Add(1)
	connRegistry.Store(h, c)
	return h
}

func deregisterConn(h uint64) {
	connRegistry.Delete(h)
}

// lookupConn resolves a handle back to its connection
func lookupConn(h uint64) (*Conn, bool) {
	return connRegistry.Load(h)
}

// --------------------------------------------------------------------------
// I/O event bridge
// --------------------------------------------------------------------------

// ioBridge implements reactor.Handler for one connection, identified only
// by its registry handle
type ioBridge struct {
	handle uint64
}

func (b ioBridge) OnReadable() {
	if c, ok := lookupConn(b.handle); ok {
		c.onReadable()
	}
}

func (b ioBridge) OnWritable() {
	if c, ok := lookupConn(b.handle); ok {
		c.onWritable()
	}
}

// --------------------------------------------------------------------------
// Watch capability operations
// --------------------------------------------------------------------------

// The four watch toggles below are the capabilities the connection hands to
// its codec-driven internals. Each is guarded by the subscription still
// existing: after teardown they are no-ops rather than crashes, and they
// are idempotent because the subscription itself deduplicates flag changes.

func (c *Conn) enableRead() {
	if c.sub != nil {
		c.sub.EnableRead()
	}
}

func (c *Conn) disableRead() {
	if c.sub != nil {
		c.sub.DisableRead()
	}
}

func (c *Conn) enableWrite() {
	if c.sub != nil {
		c.sub.EnableWrite()
	}
}

func (c *Conn) disableWrite() {
	if c.sub != nil {
		c.sub.DisableWrite()
	}
}
