package adapters

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/dshills/dapcore/dap"
)

// sharedServer tracks one spawned server-mode adapter process, shared
// by every Descriptor with the same Fingerprint. It moves through
// idle (not yet spawned) -> spawning (process started, reading stdout
// and stderr for the port) -> ready (port known, dialable) or failed.
type sharedServer struct {
	mu       sync.Mutex
	cmd      *exec.Cmd
	port     int
	refCount int
	err      error

	ready   chan struct{} // closed exactly once, when port or err is set
	resolve sync.Once
}

var (
	serverPoolMu sync.Mutex
	serverPool   = make(map[string]*sharedServer)
)

// dialServer implements Dial for DescriptorServer: it spawns the
// shared process on first use, waits for its listening port to appear
// on stdout or stderr, and dials it. Every successful call increments the
// shared process's reference count; the returned Transport's Close
// decrements it and kills the process once the count reaches zero.
func dialServer(ctx context.Context, d Descriptor, logger dap.Logger) (dap.Transport, error) {
	if d.Fingerprint == "" {
		return nil, fmt.Errorf("adapters: server descriptor missing Fingerprint")
	}
	if d.ServerCommand == nil {
		return nil, fmt.Errorf("adapters: server descriptor missing ServerCommand")
	}
	if d.PortDetect == nil {
		return nil, fmt.Errorf("adapters: server descriptor missing PortDetect")
	}

	serverPoolMu.Lock()
	s, exists := serverPool[d.Fingerprint]
	if !exists {
		s = &sharedServer{ready: make(chan struct{})}
		serverPool[d.Fingerprint] = s
	}
	serverPoolMu.Unlock()

	if !exists {
		go s.spawn(d, logger)
	}

	s.mu.Lock()
	s.refCount++
	s.mu.Unlock()

	select {
	case <-s.ready:
	case <-ctx.Done():
		s.release(d.Fingerprint)
		return nil, ctx.Err()
	}

	s.mu.Lock()
	err, port := s.err, s.port
	s.mu.Unlock()
	if err != nil {
		s.release(d.Fingerprint)
		return nil, err
	}

	host := d.Host
	if host == "" {
		host = "127.0.0.1"
	}

	// The banner line proves the adapter logged its port, not that the
	// listener is already accepting connections; poll until it is.
	if err := WaitForPort(ctx, host, port); err != nil {
		s.release(d.Fingerprint)
		return nil, err
	}

	conn, err := dialTCPWithContext(ctx, fmt.Sprintf("%s:%d", host, port), d.ConnectTimeout)
	if err != nil {
		s.release(d.Fingerprint)
		return nil, err
	}

	return &serverTransport{Transport: conn, server: s, fingerprint: d.Fingerprint}, nil
}

// spawn starts the adapter process and scans both its stdout and
// stderr for the listening port — some adapters (delve) announce it on
// stdout, others (node's inspector) log it to stderr. It runs once per
// sharedServer, on a goroutine started by the dialer that created the
// pool entry.
func (s *sharedServer) spawn(d Descriptor, logger dap.Logger) {
	if logger == nil {
		logger = dap.NopLogger{}
	}

	stdout, err := d.ServerCommand.StdoutPipe()
	if err != nil {
		s.fail(fmt.Errorf("adapters: server stdout pipe: %w", err))
		return
	}
	stderr, err := d.ServerCommand.StderrPipe()
	if err != nil {
		s.fail(fmt.Errorf("adapters: server stderr pipe: %w", err))
		return
	}
	if err := d.ServerCommand.Start(); err != nil {
		s.fail(fmt.Errorf("adapters: start server adapter: %w", err))
		return
	}

	s.mu.Lock()
	s.cmd = d.ServerCommand
	s.mu.Unlock()

	detect := func(line string) {
		if port, ok := d.PortDetect(line); ok {
			s.succeed(port)
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		drainLines(stderr, func(line string) {
			logger.Warnf("adapter stderr: %s", line)
			detect(line)
		})
	}()
	go func() {
		defer wg.Done()
		drainLines(stdout, detect)
	}()
	wg.Wait()

	s.fail(fmt.Errorf("adapters: server adapter exited before reporting a port"))
}

func drainLines(r io.Reader, onLine func(string)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		onLine(scanner.Text())
	}
}

func (s *sharedServer) succeed(port int) {
	s.resolve.Do(func() {
		s.mu.Lock()
		s.port = port
		s.mu.Unlock()
		close(s.ready)
	})
}

func (s *sharedServer) fail(err error) {
	s.resolve.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.ready)
	})
}

// release decrements the shared process's reference count, killing it
// and evicting it from the pool once the last dialer has gone.
func (s *sharedServer) release(fingerprint string) {
	s.mu.Lock()
	s.refCount--
	dead := s.refCount <= 0
	cmd := s.cmd
	s.mu.Unlock()

	if !dead {
		return
	}

	serverPoolMu.Lock()
	if serverPool[fingerprint] == s {
		delete(serverPool, fingerprint)
	}
	serverPoolMu.Unlock()

	if cmd != nil && cmd.Process != nil {
		cmd.Process.Kill()
		cmd.Wait()
	}
}

// serverTransport wraps the dap.Transport dialed against a shared
// server process so that Close releases this dialer's share instead
// of tearing down the transport's own socket semantics twice.
type serverTransport struct {
	dap.Transport
	server      *sharedServer
	fingerprint string

	closeOnce sync.Once
	closeErr  error
}

func (t *serverTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.Transport.Close()
		t.server.release(t.fingerprint)
	})
	return t.closeErr
}
