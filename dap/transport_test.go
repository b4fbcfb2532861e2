package dap

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"testing"
	"time"
)

func TestFramerSingleFrame(t *testing.T) {
	var got []byte
	f := &Framer{OnFrame: func(body []byte) { got = body }}

	content := json.RawMessage(`{"test": "value"}`)
	f.Feed(encodeFrame(content))

	if !bytes.Equal(got, content) {
		t.Errorf("expected %s, got %s", content, got)
	}
}

func TestFramerContentType(t *testing.T) {
	var got []byte
	f := &Framer{OnFrame: func(body []byte) { got = body }}

	framed := []byte("Content-Length: 2\r\nContent-Type: application/json\r\n\r\n{}")
	f.Feed(framed)

	if string(got) != "{}" {
		t.Errorf("expected {}, got %s", got)
	}
}

func TestFramerMissingContentLength(t *testing.T) {
	var gotErr error
	f := &Framer{OnError: func(err error) { gotErr = err }}

	f.Feed([]byte("Content-Type: application/json\r\n\r\n{}"))

	if gotErr == nil {
		t.Fatal("expected error for missing Content-Length")
	}
}

func TestFramerInvalidHeader(t *testing.T) {
	var gotErr error
	f := &Framer{OnError: func(err error) { gotErr = err }}

	f.Feed([]byte("InvalidHeader\r\n\r\n"))

	if gotErr == nil {
		t.Fatal("expected error for invalid header")
	}
}

func TestFramerLocksAfterError(t *testing.T) {
	errCount := 0
	frameCount := 0
	f := &Framer{
		OnFrame: func([]byte) { frameCount++ },
		OnError: func(error) { errCount++ },
	}

	f.Feed([]byte("garbage\r\n\r\n"))
	f.Feed(encodeFrame(json.RawMessage(`{"a":1}`)))

	if errCount != 1 {
		t.Errorf("expected exactly 1 error, got %d", errCount)
	}
	if frameCount != 0 {
		t.Errorf("expected no frames decoded after lockout, got %d", frameCount)
	}

	f.Reset()
	f.Feed(encodeFrame(json.RawMessage(`{"a":1}`)))
	if frameCount != 1 {
		t.Errorf("expected 1 frame after Reset, got %d", frameCount)
	}
}

// TestFramerArbitraryChunking feeds the same two-frame byte stream
// split at every possible boundary and checks the decoded bodies are
// identical regardless of where the splits land.
func TestFramerArbitraryChunking(t *testing.T) {
	frame1 := encodeFrame(json.RawMessage(`{"seq":1,"type":"request","command":"initialize"}`))
	frame2 := encodeFrame(json.RawMessage(`{"seq":2,"type":"event","event":"initialized"}`))
	stream := append(append([]byte{}, frame1...), frame2...)

	for split := 1; split < len(stream); split++ {
		var got [][]byte
		f := &Framer{OnFrame: func(body []byte) {
			cp := make([]byte, len(body))
			copy(cp, body)
			got = append(got, cp)
		}}

		f.Feed(stream[:split])
		f.Feed(stream[split:])

		if len(got) != 2 {
			t.Fatalf("split %d: expected 2 frames, got %d", split, len(got))
		}
		if !bytes.Equal(got[0], frame1[bytes.Index(frame1, []byte("\r\n\r\n"))+4:]) {
			t.Errorf("split %d: frame 1 mismatch: %s", split, got[0])
		}
		if !bytes.Equal(got[1], frame2[bytes.Index(frame2, []byte("\r\n\r\n"))+4:]) {
			t.Errorf("split %d: frame 2 mismatch: %s", split, got[1])
		}
	}
}

func TestFramerByteAtATime(t *testing.T) {
	content := json.RawMessage(`{"hello":"world"}`)
	framed := encodeFrame(content)

	var got []byte
	f := &Framer{OnFrame: func(body []byte) { got = body }}

	for _, b := range framed {
		f.Feed([]byte{b})
	}

	if !bytes.Equal(got, content) {
		t.Errorf("expected %s, got %s", content, got)
	}
}

func TestEncodeFrame(t *testing.T) {
	content := json.RawMessage(`{"test": "value"}`)
	framed := encodeFrame(content)

	if !bytes.HasPrefix(framed, []byte("Content-Length: 17\r\n\r\n")) {
		t.Errorf("unexpected header: %q", framed)
	}
	if !bytes.HasSuffix(framed, content) {
		t.Errorf("unexpected content: %q", framed)
	}
}

func TestTCPTransportRoundTrip(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		server := NewTCPTransportFromConn(conn)
		serverFramer := &Framer{OnFrame: func(body []byte) {
			server.Write(encodeFrame(body))
		}}
		server.Start(serverFramer.Feed, func(error) {})
		<-time.After(200 * time.Millisecond)
	}()

	transport, err := DialTCP(listener.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer transport.Close()

	// The echoing server only frames the raw body it receives from the
	// client's Framer.OnFrame, so wire up a client-side Framer too.
	recvCh := make(chan []byte, 1)
	framer := &Framer{OnFrame: func(body []byte) { recvCh <- body }}
	if err := transport.Start(framer.Feed, func(error) {}); err != nil {
		t.Fatalf("start: %v", err)
	}

	content := json.RawMessage(`{"test": "echo"}`)
	if err := transport.Write(encodeFrame(content)); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case got := <-recvCh:
		if !bytes.Equal(got, content) {
			t.Errorf("echo mismatch: expected %s, got %s", content, got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for echo")
	}

	<-done
}

func TestPipeTransportRoundTrip(t *testing.T) {
	pr1, pw1 := io.Pipe()
	pr2, pw2 := io.Pipe()
	defer pr1.Close()
	defer pw1.Close()
	defer pr2.Close()
	defer pw2.Close()

	clientTransport := NewPipeTransport(&pipeRWC{r: pr2, w: pw1})
	serverTransport := NewPipeTransport(&pipeRWC{r: pr1, w: pw2})

	serverFramer := &Framer{OnFrame: func(body []byte) {
		serverTransport.Write(encodeFrame(body)) // echo
	}}
	if err := serverTransport.Start(serverFramer.Feed, func(error) {}); err != nil {
		t.Fatalf("server start: %v", err)
	}

	recvCh := make(chan []byte, 1)
	clientFramer := &Framer{OnFrame: func(body []byte) { recvCh <- body }}
	if err := clientTransport.Start(clientFramer.Feed, func(error) {}); err != nil {
		t.Fatalf("client start: %v", err)
	}

	content := json.RawMessage(`{"hello": "world"}`)
	if err := clientTransport.Write(encodeFrame(content)); err != nil {
		t.Fatalf("client write: %v", err)
	}

	select {
	case got := <-recvCh:
		if !bytes.Equal(got, content) {
			t.Errorf("content mismatch: expected %s, got %s", content, got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

// pipeRWC wraps separate read and write ends of a pipe as io.ReadWriteCloser.
type pipeRWC struct {
	r io.ReadCloser
	w io.WriteCloser
}

func (p *pipeRWC) Read(data []byte) (int, error) {
	return p.r.Read(data)
}

func (p *pipeRWC) Write(data []byte) (int, error) {
	return p.w.Write(data)
}

func (p *pipeRWC) Close() error {
	p.r.Close()
	return p.w.Close()
}
