package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"phpsniff/internal/config"
	"phpsniff/internal/phpcs"
	"phpsniff/internal/scheduler"
	"phpsniff/internal/trace"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	// Engine runs the tools; nil builds a phpcs.Engine over FS.
	Engine scheduler.Engine
	FS     afero.Fs
	// DiskCache persists version probes; nil disables it.
	DiskCache *phpcs.DiskVersionCache
	Tracer    trace.Tracer
	Version   string
}

// Server handles stdio JSON-RPC for phpsniff.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex

	mu                sync.Mutex
	docs              map[string]*document
	published         map[string]struct{}
	requests          map[string]context.CancelFunc
	shutdownRequested bool

	store   *config.Store
	sched   *scheduler.Scheduler
	tracer  trace.Tracer
	version string
	baseCtx context.Context
	wg      sync.WaitGroup
}

type document struct {
	path    string
	text    string
	version int
	id      scheduler.DocumentID
}

// NewServer constructs a new LSP server.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	fs := opts.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}
	engine := opts.Engine
	if engine == nil {
		engine = phpcs.NewEngine(phpcs.Options{FS: fs, DiskCache: opts.DiskCache, Tracer: tracer})
	}
	s := &Server{
		in:        bufio.NewReader(in),
		out:       bufio.NewWriter(out),
		docs:      make(map[string]*document),
		published: make(map[string]struct{}),
		requests:  make(map[string]context.CancelFunc),
		store:     config.NewStore(fs),
		tracer:    tracer,
		version:   opts.Version,
		baseCtx:   context.Background(),
	}
	s.sched = scheduler.New(scheduler.Options{
		Config:    s.store,
		Standards: s.store,
		Documents: s,
		Engine:    engine,
		Publisher: s,
		Notifier:  s,
		Tracer:    tracer,
	})
	return s
}

// Run serves LSP requests until exit or EOF.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = trace.WithTracer(ctx, s.tracer)
	defer s.stop()
	for {
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logf("failed to parse message: %v", err)
			continue
		}
		if msg.Method == "" {
			continue
		}
		if err := s.handleMessage(&msg); err != nil {
			return err
		}
	}
}

func (s *Server) stop() {
	s.sched.Shutdown()
	s.mu.Lock()
	for _, cancel := range s.requests {
		cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	s.mu.Lock()
	shuttingDown := s.shutdownRequested
	s.mu.Unlock()
	if shuttingDown && msg.Method != "exit" {
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, codeInvalidRequest, "server is shutting down")
		}
		return nil
	}

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		if shuttingDown {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case "$/cancelRequest":
		return s.handleCancelRequest(msg)
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(msg)
	case "workspace/didChangeWorkspaceFolders":
		return s.handleDidChangeWorkspaceFolders(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/formatting", "textDocument/rangeFormatting":
		return s.handleFormatting(msg)
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, codeMethodNotFound, "method not found")
		}
		return nil
	}
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	roots := make([]string, 0, len(params.WorkspaceFolders)+1)
	for _, f := range params.WorkspaceFolders {
		if root := uriToPath(f.URI); root != "" {
			roots = append(roots, root)
		}
	}
	if len(roots) == 0 {
		root := uriToPath(params.RootURI)
		if root == "" && params.RootPath != "" {
			if abs, err := filepath.Abs(params.RootPath); err == nil {
				root = abs
			}
		}
		if root != "" {
			roots = append(roots, root)
		}
	}
	s.store.SetFolders(roots)
	if err := s.applySettings(params.InitializationOptions); err != nil {
		s.Notify(scheduler.MessageError, err.Error())
	}
	trace.Point(s.tracer, trace.ScopeServer, "initialize", fmt.Sprintf("%d folders", len(roots)))

	result := initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    2,
				Save: saveOptions{
					IncludeText: true,
				},
			},
			DocumentFormattingProvider:      true,
			DocumentRangeFormattingProvider: true,
			Workspace: workspaceServerCapabilities{
				WorkspaceFolders: workspaceFoldersServerCapabilities{
					Supported:           true,
					ChangeNotifications: true,
				},
			},
		},
		ServerInfo: serverInfo{Name: "phpsniff", Version: s.version},
	}
	return s.sendResponse(msg.ID, result)
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	s.mu.Unlock()
	s.stop()
	s.clearPublishedDiagnostics()
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleCancelRequest(msg *rpcMessage) error {
	var params cancelParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	s.mu.Lock()
	cancel, ok := s.requests[string(params.ID)]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	path := uriToPath(uri)
	id := scheduler.DocumentID{URI: uri, Folder: s.store.FolderFor(path)}
	s.mu.Lock()
	s.docs[uri] = &document{
		path:    path,
		text:    params.TextDocument.Text,
		version: params.TextDocument.Version,
		id:      id,
	}
	s.mu.Unlock()
	s.sched.Open(id)
	return nil
}

func (s *Server) handleDidChange(msg *rpcMessage) error {
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	s.mu.Lock()
	doc, ok := s.docs[uri]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	doc.text = applyChanges(doc.text, params.ContentChanges)
	doc.version = params.TextDocument.Version
	id := doc.id
	s.mu.Unlock()
	s.sched.Edit(id)
	return nil
}

func (s *Server) handleDidSave(msg *rpcMessage) error {
	var params didSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	s.mu.Lock()
	doc, ok := s.docs[uri]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if params.Text != nil {
		doc.text = *params.Text
	}
	id := doc.id
	s.mu.Unlock()
	s.sched.Save(id)
	return nil
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	var params didCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	s.mu.Lock()
	doc, ok := s.docs[uri]
	delete(s.docs, uri)
	s.mu.Unlock()
	if ok {
		s.sched.Close(doc.id)
	}
	return nil
}

func (s *Server) handleDidChangeWorkspaceFolders(msg *rpcMessage) error {
	var params didChangeWorkspaceFoldersParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	added := foldersToPaths(params.Event.Added)
	removed := foldersToPaths(params.Event.Removed)
	s.store.UpdateFolders(added, removed)
	s.reassignFolders()
	s.sched.Refresh()
	return nil
}

// reassignFolders moves documents whose owning folder changed.
func (s *Server) reassignFolders() {
	type move struct{ from, to scheduler.DocumentID }
	var moves []move
	s.mu.Lock()
	for _, doc := range s.docs {
		folder := s.store.FolderFor(doc.path)
		if folder == doc.id.Folder {
			continue
		}
		next := scheduler.DocumentID{URI: doc.id.URI, Folder: folder}
		moves = append(moves, move{from: doc.id, to: next})
		doc.id = next
	}
	s.mu.Unlock()
	for _, m := range moves {
		s.sched.Close(m.from)
		s.sched.Open(m.to)
	}
}

func foldersToPaths(folders []workspaceFolder) []string {
	out := make([]string, 0, len(folders))
	for _, f := range folders {
		if p := uriToPath(f.URI); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Document implements scheduler.DocumentSource.
func (s *Server) Document(uri string) (string, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok {
		return "", "", false
	}
	return doc.path, doc.text, true
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	}
	return s.send(msg)
}

func (s *Server) sendNotification(method string, params any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	}
	return s.send(msg)
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}

func (s *Server) logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "lsp: "+format+"\n", args...)
}
