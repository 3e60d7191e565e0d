package redis

import "github.com/akvlib/akv/lib/resp"

// pipeline pairs every in-flight command with its continuations, in strict
// submission order. It is modeled as two parallel FIFO queues that are
// always the same length and advance together: index i in both queues
// belongs to the i-th command sent and not yet replied to.
//
// Only the owning loop goroutine touches a pipeline, so it needs no locks.
type pipeline struct {
	onReply []func(resp.Reply)
	onErr   []func(error)
}

// push appends a continuation pair for a newly submitted command
func (p *pipeline) push(onReply func(resp.Reply), onErr func(error)) {
	p.onReply = append(p.onReply, onReply)
	p.onErr = append(p.onErr, onErr)
}

// pop removes and returns the oldest continuation pair. The entries are
// moved out: the pipeline retains nothing once a command is resolved, so
// each continuation can run at most once.
//
// A reply with no pending command means the decoder and the queue have
// desynchronized; that is a fatal programming error, not a runtime
// condition, and panics.
func (p *pipeline) pop() (func(resp.Reply), func(error)) {
	if len(p.onReply) == 0 || len(p.onErr) == 0 {
		lg.Panicf("redis: reply received with no pending command (reply queue %d, error queue %d)",
			len(p.onReply), len(p.onErr))
	}

	onReply, onErr := p.onReply[0], p.onErr[0]
	p.onReply[0], p.onErr[0] = nil, nil
	p.onReply, p.onErr = p.onReply[1:], p.onErr[1:]
	return onReply, onErr
}

// size returns the number of commands awaiting a reply
func (p *pipeline) size() int {
	if len(p.onReply) != len(p.onErr) {
		lg.Panicf("redis: pipeline queues out of lockstep (%d vs %d)", len(p.onReply), len(p.onErr))
	}
	return len(p.onReply)
}
