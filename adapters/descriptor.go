package adapters

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/dshills/dapcore/dap"
)

// DescriptorKind identifies how a Descriptor connects to its adapter.
type DescriptorKind int

const (
	// DescriptorStdio spawns Command and frames DAP messages over its
	// stdin/stdout.
	DescriptorStdio DescriptorKind = iota
	// DescriptorTCP dials an already-listening adapter at Address.
	DescriptorTCP
	// DescriptorServer spawns ServerCommand once per Fingerprint,
	// scrapes its listening port from stdout or stderr using PortDetect, and
	// dials it. Concurrent descriptors sharing a Fingerprint reuse the
	// same spawned process; it is torn down once its last dialer
	// closes its connection.
	DescriptorServer
)

// PortDetector inspects one line of a server adapter's stdout or stderr and
// reports the port it is now listening on, if that line reveals it.
// Adapters log their listening address in different formats (delve's
// "DAP server listening at: 127.0.0.1:PORT", debugpy's "Listening for
// incoming Client connections", node's "Debugger listening on" on a
// caller-assigned port, ...); callers supply the predicate for their
// adapter.
type PortDetector func(line string) (port int, ok bool)

// Descriptor names a connection to a debug adapter without describing
// how to reach it programmatically — that's Dial's job. Exactly one
// group of fields is meaningful, selected by Kind.
type Descriptor struct {
	Kind DescriptorKind

	// DescriptorStdio
	Command *exec.Cmd

	// DescriptorTCP
	Address        string
	ConnectTimeout time.Duration

	// DescriptorServer
	ServerCommand  *exec.Cmd
	PortDetect     PortDetector
	Fingerprint    string
	Host           string // defaults to 127.0.0.1
}

// Dial establishes (or, for a stdio descriptor, prepares) the
// dap.Transport this descriptor names. The returned Transport has not
// yet had Start called; the caller (typically dap.NewClient) owns
// that.
func Dial(ctx context.Context, d Descriptor, logger dap.Logger) (dap.Transport, error) {
	switch d.Kind {
	case DescriptorStdio:
		if d.Command == nil {
			return nil, fmt.Errorf("adapters: stdio descriptor missing Command")
		}
		return dap.NewStdioTransport(d.Command, logger)

	case DescriptorTCP:
		if d.Address == "" {
			return nil, fmt.Errorf("adapters: tcp descriptor missing Address")
		}
		return dialTCPWithContext(ctx, d.Address, d.ConnectTimeout)

	case DescriptorServer:
		return dialServer(ctx, d, logger)

	default:
		return nil, fmt.Errorf("adapters: unknown descriptor kind %d", d.Kind)
	}
}

func dialTCPWithContext(ctx context.Context, address string, timeout time.Duration) (dap.Transport, error) {
	if timeout <= 0 {
		timeout = dap.DefaultConnectTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	return dap.DialTCP(address, timeout)
}
