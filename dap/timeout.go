package dap

import "time"

// DefaultRequestTimeout is the per-request deadline used when a Client is
// constructed without an explicit timeout option.
const DefaultRequestTimeout = 30 * time.Second

// deadline enforces a single pending request's timeout. It stores only the
// seq it watches, not a reference to the pendingRequest itself or its
// callback — firing looks the entry up in the Client's pending table by
// seq at fire time, per spec.md §9 ("avoid capturing the pending-request
// table in a long-lived closure ... store a weak token and look it up at
// fire time"). This keeps cancellation O(1) and guarantees the timer never
// keeps a callback alive past its one invocation.
type deadline struct {
	timer *time.Timer
}

// armDeadline starts a timer that, when it fires, calls c.expire(seq) to
// evict and fail the pending request if it still exists. Cancel by calling
// timer.Stop() (done from handleResponse once the real reply arrives).
func (c *Client) armDeadline(seq int, timeout time.Duration) *deadline {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	d := &deadline{}
	d.timer = time.AfterFunc(timeout, func() {
		c.expire(seq)
	})
	return d
}

func (d *deadline) cancel() {
	if d != nil && d.timer != nil {
		d.timer.Stop()
	}
}
