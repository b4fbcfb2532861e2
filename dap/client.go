package dap

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// pendingRequest tracks one in-flight outbound request. cb is invoked
// exactly once: on the matching response, on deadline expiry, or on
// client shutdown — whichever happens first removes the entry from
// Client.pending, so only one of those three paths ever finds it.
type pendingRequest struct {
	cb func(resp *Response, err error)
	dl *deadline
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithLogger routes the client's diagnostics (decode failures, adapter
// stderr, unexpected closes) to l instead of discarding them.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRequestTimeout overrides DefaultRequestTimeout for every request
// issued by this client.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// Client is a DAP dispatcher: it owns a Transport and a Framer, turns
// outbound calls into framed requests correlated by seq, routes inbound
// frames to response callbacks / event handlers / reverse-request
// handlers, and enforces per-request timeouts. Callers may call a
// Client from any goroutine; inbound routing always happens on the
// Transport's own read goroutine.
type Client struct {
	transport Transport
	framer    *Framer
	logger    Logger

	seq            int64
	requestTimeout time.Duration

	pendingMu sync.Mutex
	pending   map[int]*pendingRequest

	handlerMu sync.RWMutex
	events    map[string]func(json.RawMessage)
	onAny     func(*Event)
	requests  map[string]func(json.RawMessage) (any, error)

	closeOnce sync.Once
	closing   atomic.Bool
	errMu     sync.RWMutex
	err       error
}

// NewClient wraps transport in a Client and starts reading from it.
// transport must not have had Start called already.
func NewClient(transport Transport, opts ...Option) (*Client, error) {
	c := &Client{
		transport:      transport,
		requestTimeout: DefaultRequestTimeout,
		logger:         NopLogger{},
		pending:        make(map[int]*pendingRequest),
		events:         make(map[string]func(json.RawMessage)),
		requests:       make(map[string]func(json.RawMessage) (any, error)),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.framer = &Framer{OnFrame: c.handleFrame, OnError: c.handleMalformedFrame}
	if err := transport.Start(c.framer.Feed, c.handleTransportClosed); err != nil {
		return nil, fmt.Errorf("start transport: %w", err)
	}
	return c, nil
}

// Close shuts the client down: the transport is closed, every pending
// request's callback fires with ErrClientClosed, and the event and
// reverse-request handler tables are cleared. Safe to call more than
// once and from any goroutine.
func (c *Client) Close() error {
	c.shutdown(ErrClientClosed)
	return c.transport.Close()
}

// IsClosing reports whether Close has been called or the transport has
// gone away on its own.
func (c *Client) IsClosing() bool {
	return c.closing.Load()
}

// Err returns the cause of shutdown, or nil if the client is still
// open: ErrClientClosed after Close or a clean transport close, the
// underlying transport-close error (such as an AdapterExitedError), or
// an error wrapping ErrMalformedFrame. Pending request callbacks always
// receive the ErrClientClosed sentinel, whatever the cause.
func (c *Client) Err() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()
	return c.err
}

func (c *Client) nextSeq() int {
	return int(atomic.AddInt64(&c.seq, 1))
}

// shutdown is the single terminal path for the client, reached via
// Close, a transport onClose callback, or a malformed-frame failure.
// It is idempotent: only the first caller's cause is recorded and only
// the first call drains the pending table and handler registries.
func (c *Client) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.closing.Store(true)

		c.errMu.Lock()
		c.err = cause
		c.errMu.Unlock()

		c.pendingMu.Lock()
		pendings := c.pending
		c.pending = make(map[int]*pendingRequest)
		c.pendingMu.Unlock()

		for _, p := range pendings {
			p.dl.cancel()
			if p.cb != nil {
				p.cb(nil, ErrClientClosed)
			}
		}

		c.handlerMu.Lock()
		c.events = make(map[string]func(json.RawMessage))
		c.requests = make(map[string]func(json.RawMessage) (any, error))
		c.onAny = nil
		c.handlerMu.Unlock()
	})
}

func (c *Client) handleTransportClosed(err error) {
	if err == nil {
		c.logger.Debugf("dap: transport closed")
		c.shutdown(ErrClientClosed)
		return
	}
	c.logger.Warnf("dap: transport closed: %v", err)
	c.shutdown(err)
}

func (c *Client) handleMalformedFrame(err error) {
	c.logger.Errorf("dap: %v", err)
	c.shutdown(err)
}

// handleFrame is the Framer's OnFrame callback: it decodes the message
// envelope and routes to the response, event, or reverse-request path.
// A frame that fails to decode is logged and dropped; it does not tear
// down the client (only a malformed wire frame, caught earlier by the
// Framer itself, does that).
func (c *Client) handleFrame(body []byte) {
	var base ProtocolMessage
	if err := json.Unmarshal(body, &base); err != nil {
		c.logger.Warnf("dap: decode failure: %v", err)
		return
	}

	switch base.Type {
	case "response":
		var resp Response
		if err := json.Unmarshal(body, &resp); err != nil {
			c.logger.Warnf("dap: decode response: %v", err)
			return
		}
		c.handleResponse(&resp)
	case "event":
		var evt Event
		if err := json.Unmarshal(body, &evt); err != nil {
			c.logger.Warnf("dap: decode event: %v", err)
			return
		}
		c.handleEvent(&evt)
	case "request":
		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			c.logger.Warnf("dap: decode reverse request: %v", err)
			return
		}
		c.handleReverseRequest(&req)
	default:
		c.logger.Warnf("dap: unknown message type %q", base.Type)
	}
}

func (c *Client) handleResponse(resp *Response) {
	c.pendingMu.Lock()
	p, ok := c.pending[resp.RequestSeq]
	if ok {
		delete(c.pending, resp.RequestSeq)
	}
	c.pendingMu.Unlock()
	if !ok {
		// A reply that arrived after its deadline already expired it.
		return
	}
	p.dl.cancel()
	if p.cb == nil {
		return
	}
	if resp.Success {
		p.cb(resp, nil)
		return
	}
	p.cb(resp, &RequestError{Command: resp.Command, RequestSeq: resp.RequestSeq, Message: resp.Message})
}

// expire is called by a deadline's timer. If the request is still
// pending it is evicted and failed with ErrRequestTimeout; if the real
// response (or a shutdown) already claimed it, this is a no-op.
func (c *Client) expire(seq int) {
	c.pendingMu.Lock()
	p, ok := c.pending[seq]
	if ok {
		delete(c.pending, seq)
	}
	c.pendingMu.Unlock()
	if !ok {
		return
	}
	if p.cb != nil {
		p.cb(nil, ErrRequestTimeout)
	}
}

func (c *Client) handleEvent(evt *Event) {
	c.handlerMu.RLock()
	h := c.events[evt.Event]
	anyHandler := c.onAny
	c.handlerMu.RUnlock()

	if h != nil {
		h(evt.Body)
	}
	if anyHandler != nil {
		anyHandler(evt)
	}
}

// handleReverseRequest answers an adapter-initiated request. A command
// with no registered handler is answered success=false, message
// "unsupported command" rather than dropped, so the adapter isn't left
// waiting on a reply that will never come.
func (c *Client) handleReverseRequest(req *Request) {
	c.handlerMu.RLock()
	h, ok := c.requests[req.Command]
	c.handlerMu.RUnlock()

	resp := Response{
		ProtocolMessage: ProtocolMessage{Seq: c.nextSeq(), Type: "response"},
		RequestSeq:      req.Seq,
		Command:         req.Command,
	}

	if !ok {
		resp.Success = false
		resp.Message = "unsupported command"
	} else if body, err := h(req.Arguments); err != nil {
		resp.Success = false
		resp.Message = err.Error()
	} else {
		resp.Success = true
		if body != nil {
			if raw, merr := json.Marshal(body); merr == nil {
				resp.Body = raw
			} else {
				c.logger.Errorf("dap: marshal %s response body: %v", req.Command, merr)
			}
		}
	}

	content, err := json.Marshal(&resp)
	if err != nil {
		c.logger.Errorf("dap: marshal %s response: %v", req.Command, err)
		return
	}
	if err := c.transport.Write(encodeFrame(content)); err != nil {
		c.logger.Warnf("dap: write %s response: %v", req.Command, err)
	}
}

// On registers h as the handler for the named event, replacing any
// handler previously registered for that name. Passing a nil h
// unregisters it. Handlers are invoked on the transport's read
// goroutine; they must not block.
func (c *Client) On(event string, h func(body json.RawMessage)) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	if h == nil {
		delete(c.events, event)
		return
	}
	c.events[event] = h
}

// OnAnyEvent registers a handler that observes every event in addition
// to whatever named handler also fires for it. Pass nil to unregister.
func (c *Client) OnAnyEvent(h func(evt *Event)) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.onAny = h
}

// OnRequest registers the handler that answers reverse requests named
// command. handler returns the response body (or nil) and an error; a
// non-nil error is reported to the adapter as success=false with the
// error's message as the response message. Passing a nil handler
// unregisters it.
func (c *Client) OnRequest(command string, handler func(args json.RawMessage) (any, error)) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	if handler == nil {
		delete(c.requests, command)
		return
	}
	c.requests[command] = handler
}

// sendRequestAsync allocates a seq, arms its deadline, and writes the
// framed request. It never blocks waiting for a reply: cb fires later,
// from handleResponse, expire, or shutdown — exactly once, unless this
// call itself returns a non-nil error, in which case cb is never
// invoked at all.
func (c *Client) sendRequestAsync(command string, args any, timeout time.Duration, cb func(resp *Response, err error)) (int, error) {
	if c.closing.Load() {
		return 0, ErrClientClosed
	}

	seq := c.nextSeq()
	req := Request{
		ProtocolMessage: ProtocolMessage{Seq: seq, Type: "request"},
		Command:         command,
	}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return 0, fmt.Errorf("marshal %s arguments: %w", command, err)
		}
		req.Arguments = raw
	}

	content, err := json.Marshal(&req)
	if err != nil {
		return 0, fmt.Errorf("marshal %s request: %w", command, err)
	}

	p := &pendingRequest{cb: cb}
	c.pendingMu.Lock()
	c.pending[seq] = p
	c.pendingMu.Unlock()
	p.dl = c.armDeadline(seq, timeout)

	if err := c.transport.Write(encodeFrame(content)); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, seq)
		c.pendingMu.Unlock()
		p.dl.cancel()
		return 0, fmt.Errorf("write %s request: %w", command, err)
	}
	return seq, nil
}

// RequestCB sends command in callback mode: it returns as soon as the
// request has been written (or fails synchronously without ever
// calling cb), and cb fires later with the eventual outcome. A request
// cannot be cancelled once sent — only its timeout can end it early.
func (c *Client) RequestCB(command string, args any, cb func(resp *Response, err error)) error {
	_, err := c.sendRequestAsync(command, args, c.requestTimeout, cb)
	return err
}

// abandon removes seq from the pending table without invoking its
// callback — used when a suspending request's caller context is
// cancelled and nothing will ever observe the eventual reply.
func (c *Client) abandon(seq int) {
	c.pendingMu.Lock()
	p, ok := c.pending[seq]
	if ok {
		delete(c.pending, seq)
	}
	c.pendingMu.Unlock()
	if ok {
		p.dl.cancel()
	}
}

// request sends command and blocks until a reply arrives, the request
// times out, the client closes, or ctx is done.
func (c *Client) request(ctx context.Context, command string, args any) (*Response, error) {
	type result struct {
		resp *Response
		err  error
	}
	ch := make(chan result, 1)
	seq, err := c.sendRequestAsync(command, args, c.requestTimeout, func(resp *Response, err error) {
		ch <- result{resp, err}
	})
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		c.abandon(seq)
		return nil, ctx.Err()
	case r := <-ch:
		return r.resp, r.err
	}
}

func unmarshalBody(resp *Response, out any) error {
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("unmarshal %s response body: %w", resp.Command, err)
	}
	return nil
}

// Initialize sends the initialize request and returns the adapter's
// capabilities.
func (c *Client) Initialize(ctx context.Context, args InitializeRequestArguments) (*Capabilities, error) {
	resp, err := c.request(ctx, "initialize", args)
	if err != nil {
		return nil, err
	}
	var caps Capabilities
	if err := unmarshalBody(resp, &caps); err != nil {
		return nil, err
	}
	return &caps, nil
}

// ConfigurationDone sends the configurationDone request.
func (c *Client) ConfigurationDone(ctx context.Context) error {
	_, err := c.request(ctx, "configurationDone", nil)
	return err
}

// Launch sends the launch request. args is adapter-specific and should
// embed LaunchRequestArguments.
func (c *Client) Launch(ctx context.Context, args any) error {
	_, err := c.request(ctx, "launch", args)
	return err
}

// Attach sends the attach request. args is adapter-specific and should
// embed AttachRequestArguments.
func (c *Client) Attach(ctx context.Context, args any) error {
	_, err := c.request(ctx, "attach", args)
	return err
}

// Disconnect sends the disconnect request.
func (c *Client) Disconnect(ctx context.Context, args DisconnectArguments) error {
	_, err := c.request(ctx, "disconnect", args)
	return err
}

// Terminate sends the terminate request.
func (c *Client) Terminate(ctx context.Context, args TerminateArguments) error {
	_, err := c.request(ctx, "terminate", args)
	return err
}

// SetBreakpoints sends the setBreakpoints request.
func (c *Client) SetBreakpoints(ctx context.Context, args SetBreakpointsArguments) ([]Breakpoint, error) {
	resp, err := c.request(ctx, "setBreakpoints", args)
	if err != nil {
		return nil, err
	}
	var body SetBreakpointsResponseBody
	if err := unmarshalBody(resp, &body); err != nil {
		return nil, err
	}
	return body.Breakpoints, nil
}

// SetFunctionBreakpoints sends the setFunctionBreakpoints request.
func (c *Client) SetFunctionBreakpoints(ctx context.Context, args SetFunctionBreakpointsArguments) ([]Breakpoint, error) {
	resp, err := c.request(ctx, "setFunctionBreakpoints", args)
	if err != nil {
		return nil, err
	}
	var body SetBreakpointsResponseBody
	if err := unmarshalBody(resp, &body); err != nil {
		return nil, err
	}
	return body.Breakpoints, nil
}

// SetExceptionBreakpoints sends the setExceptionBreakpoints request.
func (c *Client) SetExceptionBreakpoints(ctx context.Context, args SetExceptionBreakpointsArguments) error {
	_, err := c.request(ctx, "setExceptionBreakpoints", args)
	return err
}

// Continue sends the continue request.
func (c *Client) Continue(ctx context.Context, args ContinueArguments) (*ContinueResponseBody, error) {
	resp, err := c.request(ctx, "continue", args)
	if err != nil {
		return nil, err
	}
	var body ContinueResponseBody
	if err := unmarshalBody(resp, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// Next sends the next (step over) request.
func (c *Client) Next(ctx context.Context, args NextArguments) error {
	_, err := c.request(ctx, "next", args)
	return err
}

// StepIn sends the stepIn request.
func (c *Client) StepIn(ctx context.Context, args StepInArguments) error {
	_, err := c.request(ctx, "stepIn", args)
	return err
}

// StepOut sends the stepOut request.
func (c *Client) StepOut(ctx context.Context, args StepOutArguments) error {
	_, err := c.request(ctx, "stepOut", args)
	return err
}

// Pause sends the pause request.
func (c *Client) Pause(ctx context.Context, args PauseArguments) error {
	_, err := c.request(ctx, "pause", args)
	return err
}

// Threads sends the threads request.
func (c *Client) Threads(ctx context.Context) ([]Thread, error) {
	resp, err := c.request(ctx, "threads", nil)
	if err != nil {
		return nil, err
	}
	var body ThreadsResponseBody
	if err := unmarshalBody(resp, &body); err != nil {
		return nil, err
	}
	return body.Threads, nil
}

// StackTrace sends the stackTrace request.
func (c *Client) StackTrace(ctx context.Context, args StackTraceArguments) (*StackTraceResponseBody, error) {
	resp, err := c.request(ctx, "stackTrace", args)
	if err != nil {
		return nil, err
	}
	var body StackTraceResponseBody
	if err := unmarshalBody(resp, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// Scopes sends the scopes request.
func (c *Client) Scopes(ctx context.Context, args ScopesArguments) ([]Scope, error) {
	resp, err := c.request(ctx, "scopes", args)
	if err != nil {
		return nil, err
	}
	var body ScopesResponseBody
	if err := unmarshalBody(resp, &body); err != nil {
		return nil, err
	}
	return body.Scopes, nil
}

// Variables sends the variables request.
func (c *Client) Variables(ctx context.Context, args VariablesArguments) ([]Variable, error) {
	resp, err := c.request(ctx, "variables", args)
	if err != nil {
		return nil, err
	}
	var body VariablesResponseBody
	if err := unmarshalBody(resp, &body); err != nil {
		return nil, err
	}
	return body.Variables, nil
}

// SetVariable sends the setVariable request.
func (c *Client) SetVariable(ctx context.Context, args SetVariableArguments) (*SetVariableResponseBody, error) {
	resp, err := c.request(ctx, "setVariable", args)
	if err != nil {
		return nil, err
	}
	var body SetVariableResponseBody
	if err := unmarshalBody(resp, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// Evaluate sends the evaluate request.
func (c *Client) Evaluate(ctx context.Context, args EvaluateArguments) (*EvaluateResponseBody, error) {
	resp, err := c.request(ctx, "evaluate", args)
	if err != nil {
		return nil, err
	}
	var body EvaluateResponseBody
	if err := unmarshalBody(resp, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// Source sends the source request.
func (c *Client) Source(ctx context.Context, args SourceArguments) (*SourceResponseBody, error) {
	resp, err := c.request(ctx, "source", args)
	if err != nil {
		return nil, err
	}
	var body SourceResponseBody
	if err := unmarshalBody(resp, &body); err != nil {
		return nil, err
	}
	return &body, nil
}
