package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode selects the progress view for check. It satisfies pflag.Value so
// cobra validates it while parsing.
type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func (m *uiMode) String() string {
	if *m == "" {
		return string(uiModeAuto)
	}
	return string(*m)
}

func (m *uiMode) Set(value string) error {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		*m = uiModeAuto
	case "on":
		*m = uiModeOn
	case "off":
		*m = uiModeOff
	default:
		return fmt.Errorf("invalid value %q (expected auto|on|off)", value)
	}
	return nil
}

func (m *uiMode) Type() string { return "auto|on|off" }

// useProgressView decides whether check renders the progress view. Auto
// mode wants an interactive stdout, no --quiet, and more than one file.
func (m uiMode) useProgressView(quiet bool, files int) bool {
	switch m {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return !quiet && files > 1 && isTerminal(os.Stdout)
	}
}
