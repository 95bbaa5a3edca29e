package lsp

import (
	"encoding/json"

	"phpsniff/internal/config"
	"phpsniff/internal/scheduler"
)

func (s *Server) handleDidChangeConfiguration(msg *rpcMessage) error {
	if len(msg.Params) == 0 {
		return nil
	}
	var params didChangeConfigurationParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	if err := s.applySettings(params.Settings); err != nil {
		s.Notify(scheduler.MessageError, err.Error())
		return nil
	}
	s.sched.Refresh()
	return nil
}

func (s *Server) applySettings(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	settings, err := config.ParseSettings(raw)
	if err != nil {
		return err
	}
	// Validate before storing so a bad value never reaches a snapshot.
	probe := config.Default()
	if err := settings.Apply(&probe); err != nil {
		return err
	}
	s.store.SetSettings(settings)
	return nil
}
