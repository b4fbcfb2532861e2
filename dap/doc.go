// Package dap implements the client side of the Debug Adapter
// Protocol: wire framing over a byte stream, request/response
// correlation by sequence number, event and reverse-request dispatch,
// and per-request timeouts.
//
// A Framer turns a stream of bytes into complete DAP frames regardless
// of how the underlying Transport chunks them. A Transport moves bytes
// to and from a concrete channel — a spawned process's stdio, a TCP
// socket, or any io.ReadWriteCloser. A Client wires a Framer to a
// Transport and exposes the protocol as Go method calls: typed
// blocking methods for the common requests (Initialize, Launch,
// SetBreakpoints, Continue, ...), a callback-mode RequestCB for
// anything else, On/OnAnyEvent for adapter-initiated events, and
// OnRequest for adapter-initiated reverse requests such as
// runInTerminal.
//
// None of this package knows how to start or locate an adapter
// process; see the adapters package for that.
package dap
