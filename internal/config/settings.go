package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// SettingsKey is the client settings section.
const SettingsKey = "phpsniff"

// Settings is the client-side configuration. Nil fields are unset and leave
// the lower layer alone.
type Settings struct {
	ValidatorPath       *string  `json:"validatorPath,omitempty"`
	FixerPath           *string  `json:"fixerPath,omitempty"`
	ValidatorArgs       []string `json:"validatorArgs,omitempty"`
	FixerArgs           []string `json:"fixerArgs,omitempty"`
	Cwd                 *string  `json:"cwd,omitempty"`
	Enable              *bool    `json:"enable,omitempty"`
	FixerEnable         *bool    `json:"fixerEnable,omitempty"`
	ShowSources         *bool    `json:"showSources,omitempty"`
	ShowFixable         *bool    `json:"showFixable,omitempty"`
	Standard            *string  `json:"standard,omitempty"`
	AutoRulesetSearch   *bool    `json:"autoRulesetSearch,omitempty"`
	AllowedAutoRulesets []string `json:"allowedAutoRulesets,omitempty"`
	SnifferMode         *string  `json:"snifferMode,omitempty"`
	// Delays are in milliseconds.
	SnifferTypeDelay *int     `json:"snifferTypeDelay,omitempty"`
	Timeout          *int     `json:"timeout,omitempty"`
	IgnorePatterns   []string `json:"ignorePatterns,omitempty"`
}

type settingsEnvelope struct {
	Phpsniff *Settings `json:"phpsniff"`
}

// ParseSettings decodes client settings, with or without the phpsniff
// envelope. Empty input yields zero Settings.
func ParseSettings(raw json.RawMessage) (Settings, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Settings{}, nil
	}
	var env settingsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Settings{}, fmt.Errorf("settings: %w", err)
	}
	if env.Phpsniff != nil {
		return *env.Phpsniff, nil
	}
	var s Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return Settings{}, fmt.Errorf("settings: %w", err)
	}
	return s, nil
}

// Apply overlays s onto r.
func (s Settings) Apply(r *Resource) error {
	setString(&r.ValidatorPath, s.ValidatorPath)
	setString(&r.FixerPath, s.FixerPath)
	setString(&r.Cwd, s.Cwd)
	setString(&r.Standard, s.Standard)
	setBool(&r.ValidatorEnabled, s.Enable)
	setBool(&r.FixerEnabled, s.FixerEnable)
	setBool(&r.ShowSources, s.ShowSources)
	setBool(&r.ShowFixable, s.ShowFixable)
	setBool(&r.AutoRulesetSearch, s.AutoRulesetSearch)
	if s.ValidatorArgs != nil {
		r.ValidatorArgs = append([]string(nil), s.ValidatorArgs...)
	}
	if s.FixerArgs != nil {
		r.FixerArgs = append([]string(nil), s.FixerArgs...)
	}
	if s.AllowedAutoRulesets != nil {
		r.AllowedRulesets = append([]string(nil), s.AllowedAutoRulesets...)
	}
	if s.IgnorePatterns != nil {
		r.Ignore = append([]string(nil), s.IgnorePatterns...)
	}
	if s.SnifferMode != nil {
		m := Mode(*s.SnifferMode)
		if !m.Valid() {
			return fmt.Errorf("settings: unknown snifferMode %q", *s.SnifferMode)
		}
		r.Mode = m
	}
	if s.SnifferTypeDelay != nil {
		if *s.SnifferTypeDelay < 0 {
			return fmt.Errorf("settings: negative snifferTypeDelay %d", *s.SnifferTypeDelay)
		}
		r.Delay = time.Duration(*s.SnifferTypeDelay) * time.Millisecond
	}
	if s.Timeout != nil {
		if *s.Timeout < 0 {
			return fmt.Errorf("settings: negative timeout %d", *s.Timeout)
		}
		r.Timeout = time.Duration(*s.Timeout) * time.Millisecond
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
