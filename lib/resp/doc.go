// Package resp implements the Redis serialization protocol (RESP2) as an
// incremental, feed-driven codec. It converts a raw byte stream into typed
// reply values and command arguments into their wire encoding. The package
// performs no I/O of its own; the connection core feeds it whatever bytes the
// transport happens to deliver, in chunks of any size.
//
// The package focuses on:
//   - A typed Reply value covering all RESP2 reply kinds
//   - A Decoder that never blocks and never consumes partial replies
//   - A multi-bulk command encoder for outbound requests
//
// Key Components:
//
//   - Reply: Decoded reply value (status, error, integer, bulk, nil, array)
//     with accessors for the common cases.
//
//   - Decoder: Feed bytes in with Feed, pull complete replies out with Next.
//     Next reports false until a full reply is buffered, so chunk boundaries
//     in the transport are invisible to callers.
//
//   - AppendCommand: Encodes a command and its arguments as a RESP multi-bulk
//     sequence, appending to the provided buffer.
//
//   - CommandError: The error type handed to failure continuations when the
//     server answers a command with an error reply.
package resp
