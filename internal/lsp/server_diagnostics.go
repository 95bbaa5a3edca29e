package lsp

import (
	"sort"

	"phpsniff/internal/phpcs"
	"phpsniff/internal/scheduler"
	"phpsniff/internal/trace"
)

const diagnosticSource = "phpcs"

// Publish implements scheduler.Publisher. The client's set for uri is
// replaced by findings.
func (s *Server) Publish(uri string, findings []phpcs.Finding) {
	s.mu.Lock()
	text := ""
	var version *int
	if doc, ok := s.docs[uri]; ok {
		text = doc.text
		v := doc.version
		version = &v
	}
	if len(findings) == 0 {
		delete(s.published, uri)
	} else {
		s.published[uri] = struct{}{}
	}
	s.mu.Unlock()

	list := make([]lspDiagnostic, 0, len(findings))
	for _, f := range findings {
		list = append(list, toDiagnostic(text, f))
	}
	if err := s.sendPublish(uri, version, list); err != nil {
		s.logf("failed to publish diagnostics: %v", err)
	}
	trace.Point(s.tracer, trace.ScopeDocument, "publishDiagnostics", uri)
}

// Clear implements scheduler.Publisher.
func (s *Server) Clear(uri string) {
	s.mu.Lock()
	delete(s.published, uri)
	s.mu.Unlock()
	if err := s.sendPublish(uri, nil, nil); err != nil {
		s.logf("failed to clear diagnostics: %v", err)
	}
}

// Notify implements scheduler.Notifier with window/showMessage.
func (s *Server) Notify(level scheduler.MessageLevel, message string) {
	if err := s.sendNotification("window/showMessage", showMessageParams{Type: int(level), Message: message}); err != nil {
		s.logf("failed to show message: %v", err)
	}
}

func toDiagnostic(text string, f phpcs.Finding) lspDiagnostic {
	return lspDiagnostic{
		Range:    tokenRange(text, int(f.Line), int(f.Column)),
		Severity: int(f.Severity),
		Code:     f.Source,
		Source:   diagnosticSource,
		Message:  f.Display,
	}
}

func (s *Server) sendPublish(uri string, version *int, list []lspDiagnostic) error {
	if list == nil {
		list = []lspDiagnostic{}
	}
	return s.sendNotification("textDocument/publishDiagnostics", publishDiagnosticsParams{
		URI:         uri,
		Version:     version,
		Diagnostics: list,
	})
}

func (s *Server) clearPublishedDiagnostics() {
	s.mu.Lock()
	if len(s.published) == 0 {
		s.mu.Unlock()
		return
	}
	uris := make([]string, 0, len(s.published))
	for uri := range s.published {
		uris = append(uris, uri)
	}
	s.published = make(map[string]struct{})
	s.mu.Unlock()
	sort.Strings(uris)
	for _, uri := range uris {
		if err := s.sendPublish(uri, nil, nil); err != nil {
			s.logf("failed to clear diagnostics: %v", err)
		}
	}
}
