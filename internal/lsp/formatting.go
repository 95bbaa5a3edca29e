package lsp

import (
	"context"
	"encoding/json"
	"errors"

	"phpsniff/internal/phpcs"
	"phpsniff/internal/scheduler"
)

// handleFormatting runs the fixer off the read loop. Range requests are
// answered with the same whole-document edit.
func (s *Server) handleFormatting(msg *rpcMessage) error {
	var params documentFormattingParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	uri := canonicalURI(params.TextDocument.URI)
	s.mu.Lock()
	doc, ok := s.docs[uri]
	if !ok {
		s.mu.Unlock()
		return s.sendResponse(msg.ID, nil)
	}
	id, version := doc.id, doc.version
	ctx, cancel := context.WithCancel(s.baseCtx)
	key := string(msg.ID)
	s.requests[key] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.requests, key)
			s.mu.Unlock()
			cancel()
		}()
		edits, err := s.format(ctx, uri, id, version)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				err = s.sendError(msg.ID, codeRequestCancelled, "request cancelled")
			} else {
				err = s.sendError(msg.ID, codeInternalError, err.Error())
			}
		} else {
			err = s.sendResponse(msg.ID, edits)
		}
		if err != nil {
			s.logf("failed to answer formatting request: %v", err)
		}
	}()
	return nil
}

func (s *Server) format(ctx context.Context, uri string, id scheduler.DocumentID, version int) ([]textEdit, error) {
	out, err := s.sched.Fix(ctx, id)
	if err != nil {
		return nil, err
	}
	if out.Kind != phpcs.FixReplace {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok || doc.version != version {
		// The document moved on while the fixer ran.
		return nil, nil
	}
	return []textEdit{{
		Range:   lspRange{Start: position{}, End: endPosition(doc.text)},
		NewText: out.Text,
	}}, nil
}
