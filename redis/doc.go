// Package redis implements an asynchronous, single-connection client core
// for the Redis wire protocol. A Conn owns exactly one socket, multiplexes
// its non-blocking I/O through a reactor.Loop, serializes pre-encoded
// commands onto the wire and demultiplexes decoded replies back to the
// callers that issued them, in strict submission order.
//
// The package focuses on:
//   - The connection lifecycle state machine (connecting, connected, ended)
//   - FIFO pairing of in-flight commands with their continuations
//   - Safe teardown while I/O callbacks are still in flight
//
// Key Components:
//
//   - Conn: The connection state machine. Construction schedules the actual
//     connect onto the owning loop; nothing touches the network
//     synchronously. All connection state is mutated only on that loop.
//
//   - Send: Submits a wire-encoded command together with a success and a
//     failure continuation. Replies are matched to commands strictly
//     first-in-first-out, which is the ordering guarantee of a pipelined
//     Redis connection. Exactly one of the two continuations runs, at most
//     once; commands still pending when the connection ends are never
//     resolved (see Conn.Disconnect).
//
//   - Disconnect: Callable from any goroutine. It blocks only until the
//     close request has been issued on the owning loop, not until teardown
//     completes; the disconnect observer reports completion.
//
// Error Handling:
//
// Transport failures (failed connect, socket errors, peer close) surface
// exclusively through the disconnect observer; they are never delivered
// through command continuations. Decoded error replies go to the failing
// command's failure continuation as a resp.CommandError and leave the
// connection state untouched. A reply arriving with no pending command means
// the decoder and the pipeline queue have desynchronized and is treated as a
// fatal programming error.
//
// This core performs no retries, no reconnects and no command timeouts;
// those policies belong to the caller, layered above.
package redis
