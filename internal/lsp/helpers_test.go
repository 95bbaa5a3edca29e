package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"

	"phpsniff/internal/phpcs"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) messages(t *testing.T) []rpcMessage {
	t.Helper()
	b.mu.Lock()
	data := append([]byte(nil), b.buf.Bytes()...)
	b.mu.Unlock()
	reader := bufio.NewReader(bytes.NewReader(data))
	var out []rpcMessage
	for {
		payload, err := readMessage(reader)
		if err != nil {
			return out
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		out = append(out, msg)
	}
}

func waitMessage(t *testing.T, buf *syncBuffer, what string, match func(rpcMessage) bool) rpcMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, msg := range buf.messages(t) {
			if match(msg) {
				return msg
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
	return rpcMessage{}
}

func isMethod(method string) func(rpcMessage) bool {
	return func(msg rpcMessage) bool { return msg.Method == method }
}

func isResponse(id string) func(rpcMessage) bool {
	return func(msg rpcMessage) bool { return msg.Method == "" && string(msg.ID) == id }
}

type stubEngine struct {
	findings []phpcs.Finding
	fixed    string
	runs     atomic.Int32
}

func (e *stubEngine) Validate(ctx context.Context, req phpcs.Request) (phpcs.ValidationResult, error) {
	e.runs.Add(1)
	return phpcs.ValidationResult{Parsed: true, Findings: e.findings}, nil
}

func (e *stubEngine) Fix(ctx context.Context, req phpcs.Request) (phpcs.FixOutcome, error) {
	if e.fixed == "" || e.fixed == req.Text {
		return phpcs.FixOutcome{Kind: phpcs.FixNoChange}, nil
	}
	return phpcs.FixOutcome{Kind: phpcs.FixReplace, Text: e.fixed}, nil
}

func (e *stubEngine) InvalidateVersions() {}

func newTestServer(t *testing.T, engine *stubEngine) (*Server, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	server := NewServer(bytes.NewReader(nil), out, ServerOptions{Engine: engine, FS: afero.NewMemMapFs()})
	t.Cleanup(server.stop)
	return server, out
}

func call(t *testing.T, server *Server, method string, id string, params any) {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal %s: %v", method, err)
	}
	msg := &rpcMessage{JSONRPC: "2.0", Method: method, Params: raw}
	if id != "" {
		msg.ID = json.RawMessage(id)
	}
	if err := server.handleMessage(msg); err != nil {
		t.Fatalf("%s: %v", method, err)
	}
}
