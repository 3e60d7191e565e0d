// Package reactor implements the readiness-notification event loop that
// drives the non-blocking connection core. A Loop owns exactly one goroutine
// (the "owning context"); every connection registered on it has all of its
// state mutated only from that goroutine. Cross-goroutine callers hand work
// to the loop with RunInLoop or QueueInLoop instead of touching shared state.
//
// The package focuses on:
//   - Single-goroutine task execution with enforced thread affinity
//   - Read/write readiness subscriptions mirrored onto an OS poller
//   - Raw non-blocking TCP sockets with EINPROGRESS connect semantics
//
// Key Components:
//
//   - Loop: The owning execution context. RunInLoop executes inline when the
//     caller is already on the loop and otherwise queues the task and wakes
//     the poller; QueueInLoop always defers to the next turn. AssertInLoop
//     panics when called off-loop, making affinity an enforced invariant.
//
//   - Poller: Abstraction over the OS readiness mechanism (epoll + eventfd on
//     Linux). Tests substitute a scripted fake.
//
//   - Subscription: A per-socket pair of read/write watch flags. The flags
//     always reflect the owner's current demand; a closed subscription
//     ignores further toggles so late callbacks cannot resurrect it.
//
//   - NetSocket / DialNonBlock: Raw-fd TCP socket with non-blocking connect,
//     socket tuning from common.TCPConf, and SO_ERROR inspection for connect
//     completion.
package reactor
