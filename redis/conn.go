package redis

import (
	"errors"
	"io"
	"sync/atomic"

	"github.com/akvlib/akv/common"
	"github.com/akvlib/akv/lib/reactor"
	"github.com/akvlib/akv/lib/resp"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/valyala/bytebufferpool"
)

var lg = logger.GetLogger("redis")

// ErrConnectionEnded is delivered to the failure continuation of a command
// submitted after the connection has ended or a disconnect was requested
var ErrConnectionEnded = errors.New("redis: connection already ended")

// defaultReadChunk bounds a single read when no receive buffer size is
// configured
const defaultReadChunk = 16 * 1024

// --------------------------------------------------------------------------
// Lifecycle state
// --------------------------------------------------------------------------

// State is the connection lifecycle state
type State int32

const (
	// StateConnecting is the initial state; the connect attempt is scheduled
	// or in progress
	StateConnecting State = iota
	// StateConnected is reached only via a successful connect completion
	StateConnected
	// StateEnded is terminal; no transition leaves it
	StateEnded
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Collaborator interfaces (implemented by lib/reactor, faked in tests)
// --------------------------------------------------------------------------

// eventLoop is the owning execution context of a connection
type eventLoop interface {
	RunInLoop(fn func())
	QueueInLoop(fn func())
	AssertInLoop()
	Register(fd int, h reactor.Handler) (subscription, error)
}

// subscription is a socket's read/write watch registration
type subscription interface {
	EnableRead()
	DisableRead()
	EnableWrite()
	DisableWrite()
	Close() error
}

// socket is a non-blocking transport endpoint. Read and Write return
// reactor.ErrWouldBlock when the operation must wait for readiness and
// io.EOF when the peer closed the connection.
type socket interface {
	FD() int
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SockErr() error
	Close() error
}

// dialer opens a non-blocking connection attempt
type dialer func(address string, sconf common.SocketConf, tconf common.TCPConf) (socket, error)

// reactorAdapter narrows *reactor.Loop to the eventLoop interface
type reactorAdapter struct{ l *reactor.Loop }

func (a reactorAdapter) RunInLoop(fn func())   { a.l.RunInLoop(fn) }
func (a reactorAdapter) QueueInLoop(fn func()) { a.l.QueueInLoop(fn) }
func (a reactorAdapter) AssertInLoop()         { a.l.AssertInLoop() }
func (a reactorAdapter) Register(fd int, h reactor.Handler) (subscription, error) {
	return a.l.Register(fd, h)
}

func defaultDialer(address string, sconf common.SocketConf, tconf common.TCPConf) (socket, error) {
	return reactor.DialNonBlock(address, sconf, tconf)
}

// --------------------------------------------------------------------------
// Observers and options
// --------------------------------------------------------------------------

// ConnectHandler observes connect completion. It runs on the owning loop
// with a nil error on success; a failed connect is reported through the
// disconnect observer instead.
type ConnectHandler func(*Conn, error)

// DisconnectHandler observes the end of the connection, exactly once, with
// the transport failure that caused it (nil for an explicit disconnect)
type DisconnectHandler func(*Conn, error)

// Option configures a Conn at construction time
type Option func(*Conn)

// WithConnectHandler sets the connect observer before the connect attempt
// is scheduled
func WithConnectHandler(h ConnectHandler) Option {
	return func(c *Conn) { c.connectCB.Store(&h) }
}

// WithDisconnectHandler sets the disconnect observer before the connect
// attempt is scheduled
func WithDisconnectHandler(h DisconnectHandler) Option {
	return func(c *Conn) { c.disconnectCB.Store(&h) }
}

// withDialer substitutes the transport, used by tests
func withDialer(d dialer) Option {
	return func(c *Conn) { c.dial = d }
}

// --------------------------------------------------------------------------
// Conn
// --------------------------------------------------------------------------

// Conn is a single client connection. One Conn per socket; a Conn is never
// shared across sockets and never reconnects. All fields below the loop
// reference are owned by the loop goroutine.
type Conn struct {
	cfg  common.ClientConfig
	loop eventLoop

	state atomic.Int32

	dial    dialer
	sock    socket
	sub     subscription
	handle  uint64
	closing bool // disconnect requested: flush, then release

	dec     *resp.Decoder
	outbuf  *bytebufferpool.ByteBuffer
	pending pipeline

	connectCB    atomic.Pointer[ConnectHandler]
	disconnectCB atomic.Pointer[DisconnectHandler]
}

// NewConn creates a connection owned by loop and schedules the connect
// attempt onto it at the next turn. It never touches the network
// synchronously.
func NewConn(cfg common.ClientConfig, loop *reactor.Loop, opts ...Option) *Conn {
	return newConn(cfg, reactorAdapter{loop}, opts...)
}

// newConn is the injectable constructor shared with the package tests
func newConn(cfg common.ClientConfig, loop eventLoop, opts ...Option) *Conn {
	c := &Conn{
		cfg:    cfg,
		loop:   loop,
		dial:   defaultDialer,
		dec:    resp.NewDecoder(),
		outbuf: bytebufferpool.Get(),
	}
	c.state.Store(int32(StateConnecting))

	for _, opt := range opts {
		opt(c)
	}

	loop.QueueInLoop(c.startConnect)
	return c
}

// State returns the lifecycle state; safe from any goroutine
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Address returns the configured remote address
func (c *Conn) Address() string { return c.cfg.Address }

// OnConnect replaces the connect observer; the last writer wins. To be
// guaranteed delivery it must be set before the connect completes,
// preferably via WithConnectHandler.
func (c *Conn) OnConnect(h ConnectHandler) { c.connectCB.Store(&h) }

// OnDisconnect replaces the disconnect observer; the last writer wins
func (c *Conn) OnDisconnect(h DisconnectHandler) { c.disconnectCB.Store(&h) }

// --------------------------------------------------------------------------
// Command submission
// --------------------------------------------------------------------------

// Send submits a wire-encoded command (see resp.AppendCommand) together
// with its continuations. Callable from any goroutine; the submission is
// re-dispatched onto the owning loop. Send takes ownership of cmd.
//
// Exactly one of onReply and onErr is invoked, at most once: onReply with
// the decoded reply, onErr with a resp.CommandError when the server rejects
// the command, or onErr with ErrConnectionEnded when the connection is
// already gone at submission time. A command in flight when the connection
// ends is never resolved.
func (c *Conn) Send(cmd []byte, onReply func(resp.Reply), onErr func(error)) {
	c.loop.RunInLoop(func() { c.sendInLoop(cmd, onReply, onErr) })
}

func (c *Conn) sendInLoop(cmd []byte, onReply func(resp.Reply), onErr func(error)) {
	c.loop.AssertInLoop()

	if c.State() == StateEnded || c.closing {
		if onErr != nil {
			onErr(ErrConnectionEnded)
		}
		return
	}

	// continuations first, bytes second: the queue must never lag the wire
	c.pending.push(onReply, onErr)
	c.outbuf.Write(cmd)
	metricCommandsSent.Inc()

	if c.State() == StateConnected {
		c.enableWrite()
	}
	// while connecting the write watch is already on for connect completion;
	// buffered commands flush right after the connect completes
}

// --------------------------------------------------------------------------
// Disconnect
// --------------------------------------------------------------------------

// Disconnect requests teardown and blocks until the request has been issued
// on the owning loop. It does not wait for teardown to complete; the
// disconnect observer reports that. Safe to call from any goroutine,
// including the loop itself, and idempotent after the first call.
func (c *Conn) Disconnect() {
	issued := make(chan struct{})
	c.loop.RunInLoop(func() {
		c.requestClose()
		close(issued)
	})
	<-issued
}

// requestClose runs on the loop. With bytes still queued it flips the
// connection into the closing phase so the remaining writes drain first;
// otherwise it tears down immediately.
func (c *Conn) requestClose() {
	c.loop.AssertInLoop()

	if c.State() == StateEnded {
		return
	}
	if c.State() == StateConnected && c.outbuf != nil && len(c.outbuf.B) > 0 {
		c.closing = true
		c.enableWrite()
		return
	}
	c.teardown(nil)
}

// --------------------------------------------------------------------------
// Connect path (loop only)
// --------------------------------------------------------------------------

func (c *Conn) startConnect() {
	c.loop.AssertInLoop()

	// disconnected before the scheduled attempt ran
	if c.State() == StateEnded {
		return
	}

	sock, err := c.dial(c.cfg.Address, c.cfg.Socket, c.cfg.TCP)
	if err != nil {
		lg.Errorf("failed to connect to %s: %v", c.cfg.Address, err)
		c.teardown(err)
		return
	}
	c.sock = sock

	c.handle = registerConn(c)
	sub, err := c.loop.Register(sock.FD(), ioBridge{handle: c.handle})
	if err != nil {
		lg.Errorf("failed to register %s with reactor: %v", c.cfg.Address, err)
		c.teardown(err)
		return
	}
	c.sub = sub

	// connect completion is reported as write readiness
	c.enableWrite()
}

func (c *Conn) finishConnect() {
	if err := c.sock.SockErr(); err != nil {
		lg.Errorf("failed to connect to %s: %v", c.cfg.Address, err)
		c.teardown(err)
		return
	}

	c.state.Store(int32(StateConnected))
	metricConnects.Inc()
	lg.Infof("connected to %s", c.cfg.Address)

	c.enableRead()
	if len(c.outbuf.B) == 0 {
		c.disableWrite()
	}

	if cb := c.connectCB.Load(); cb != nil {
		(*cb)(c, nil)
	}
}

// --------------------------------------------------------------------------
// Readiness handlers (loop only, invoked through the I/O bridge)
// --------------------------------------------------------------------------

func (c *Conn) onReadable() {
	c.loop.AssertInLoop()

	chunk := c.cfg.Socket.ReadBufferSize
	if chunk <= 0 {
		chunk = defaultReadChunk
	}
	buf := make([]byte, chunk)

	for c.State() == StateConnected {
		n, err := c.sock.Read(buf)
		if err == reactor.ErrWouldBlock {
			return
		}
		if err != nil {
			if err == io.EOF {
				lg.Infof("connection to %s closed by peer", c.cfg.Address)
			} else {
				lg.Errorf("read from %s: %v", c.cfg.Address, err)
			}
			c.teardown(err)
			return
		}

		c.dec.Feed(buf[:n])
		if !c.demuxReplies() {
			return
		}
	}
}

func (c *Conn) onWritable() {
	c.loop.AssertInLoop()

	switch c.State() {
	case StateConnecting:
		c.finishConnect()
	case StateConnected:
		c.flush()
	}
}

// flush drains the outbound buffer. When the buffer empties it either
// disables the write watch or, in the closing phase, releases the I/O and
// completes the disconnect.
func (c *Conn) flush() {
	b := c.outbuf.B
	for len(b) > 0 {
		n, err := c.sock.Write(b)
		if err == reactor.ErrWouldBlock {
			break
		}
		if err != nil {
			c.outbuf.B = b
			lg.Errorf("write to %s: %v", c.cfg.Address, err)
			c.teardown(err)
			return
		}
		b = b[n:]
	}
	c.outbuf.B = append(c.outbuf.B[:0], b...)

	if len(c.outbuf.B) == 0 {
		if c.closing {
			c.teardown(nil)
			return
		}
		c.disableWrite()
	}
}

// --------------------------------------------------------------------------
// Teardown (loop only)
// --------------------------------------------------------------------------

// teardown is the single disconnect path. Every transport failure funnels
// here; it is idempotent and safe to reach redundantly. reason is nil for
// an explicit, clean disconnect.
func (c *Conn) teardown(reason error) {
	c.loop.AssertInLoop()

	if c.State() == StateEnded {
		return
	}
	c.state.Store(int32(StateEnded))
	c.closing = true

	// stop routing callbacks to this connection before releasing the
	// subscription, so a late readiness event resolves to nothing
	deregisterConn(c.handle)
	if c.sub != nil {
		if err := c.sub.Close(); err != nil {
			lg.Warningf("subscription close: %v", err)
		}
		c.sub = nil
	}
	if c.sock != nil {
		if err := c.sock.Close(); err != nil {
			lg.Warningf("socket close: %v", err)
		}
		c.sock = nil
	}
	if c.outbuf != nil {
		bytebufferpool.Put(c.outbuf)
		c.outbuf = nil
	}

	if n := c.pending.size(); n > 0 {
		// known boundary: commands in flight at disconnect stay unresolved
		lg.Warningf("connection to %s ended with %d commands outstanding", c.cfg.Address, n)
	}

	metricDisconnects.Inc()

	if cb := c.disconnectCB.Load(); cb != nil {
		(*cb)(c, reason)
	}
}

// --------------------------------------------------------------------------
// Result demultiplexer (loop only)
// --------------------------------------------------------------------------

// demuxReplies resolves every complete decoded reply against the oldest
// pending command. Returns false when the connection was torn down.
func (c *Conn) demuxReplies() bool {
	for {
		reply, ok, err := c.dec.Next()
		if err != nil {
			lg.Errorf("protocol error from %s: %v", c.cfg.Address, err)
			c.teardown(err)
			return false
		}
		if !ok {
			return true
		}

		onReply, onErr := c.pending.pop()
		metricReplies.Inc()

		if reply.IsError() {
			metricErrorReplies.Inc()
			if onErr != nil {
				onErr(resp.CommandError{Message: reply.Str})
			}
			continue
		}
		if onReply != nil {
			onReply(reply)
		}
	}
}
