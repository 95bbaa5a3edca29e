package phpcs

import (
	"strings"
)

// FixOutcomeKind is the shape of a fixer result.
type FixOutcomeKind uint8

const (
	// FixReplace replaces the whole document with Text.
	FixReplace FixOutcomeKind = iota + 1
	// FixNoChange leaves the document alone.
	FixNoChange
	// FixFailure reports Message to the user.
	FixFailure
)

// String returns the string representation of FixOutcomeKind.
func (k FixOutcomeKind) String() string {
	switch k {
	case FixReplace:
		return "replace"
	case FixNoChange:
		return "no-change"
	case FixFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// noFixableMessage is the NoChange reason shown to users.
const noFixableMessage = "No fixable errors were found."

// FixOutcome is the reconciled result of one fixer run.
type FixOutcome struct {
	Kind    FixOutcomeKind
	Text    string
	Message string
	// Err carries the failure for FixFailure outcomes.
	Err error
	// Warning is a non-fatal note attached to Replace or NoChange.
	Warning error
	Status  NormalizedStatus
}

// FixInput is everything the reconciler looks at.
type FixInput struct {
	Status   NormalizedStatus
	Original string
	Fixed    string
	Stderr   string
	// Disabled and DisabledMessage come from the Detector.
	Disabled        bool
	DisabledMessage string
}

// Reconcile turns a fixer run into a single outcome. The fixer's stdout is
// the candidate document in every generation.
func Reconcile(in FixInput) FixOutcome {
	out := FixOutcome{Status: in.Status}
	changed := in.Fixed != "" && in.Fixed != in.Original

	switch st := in.Status.Status; {
	case st == StatusNoStatus:
		if in.Disabled {
			return failure(out, KindDisabledStandard, in.DisabledMessage, in)
		}
		return failure(out, KindProcessingError, in.Status.Message, in)

	case st == StatusNoErrors:
		if !changed {
			out.Kind = FixNoChange
			out.Message = noFixableMessage
			if in.Fixed == "" && in.Original != "" {
				out.Warning = &Error{
					Kind:    KindFixConflict,
					Message: "phpcbf reported success but returned no output.",
					Output:  in.Stderr,
				}
			}
			return out
		}
		return replace(out, in.Fixed)

	case st.IsPartialFix():
		if changed {
			out = replace(out, in.Fixed)
			out.Warning = &Error{Kind: KindPartialFix, Message: in.Status.Message, Output: in.Stderr}
			return out
		}
		return failure(out, KindPartialFix, in.Status.Message, in)

	case st == StatusNonAutoFixable:
		// Nothing was fixable, so an unchanged document is NoChange rather
		// than the Failure other non-zero statuses produce.
		if changed {
			return replace(out, in.Fixed)
		}
		out.Kind = FixNoChange
		out.Message = noFixableMessage
		return out

	default:
		if in.Disabled {
			return failure(out, KindDisabledStandard, in.DisabledMessage, in)
		}
		return failure(out, KindProcessingError, in.Status.Message, in)
	}
}

func replace(out FixOutcome, text string) FixOutcome {
	out.Kind = FixReplace
	out.Text = text
	return out
}

func failure(out FixOutcome, kind ErrorKind, message string, in FixInput) FixOutcome {
	if detail := fixDetail(in); detail != "" && kind != KindDisabledStandard {
		message = strings.TrimSpace(message + " " + detail)
	}
	out.Kind = FixFailure
	out.Message = message
	out.Err = &Error{Kind: kind, Message: message, Output: in.Stderr}
	return out
}

// fixDetail picks the most useful tool text: stderr first, then stdout
// when it is not simply the document echoed back.
func fixDetail(in FixInput) string {
	if s := strings.TrimSpace(in.Stderr); s != "" {
		return collapse(s)
	}
	if in.Fixed != "" && in.Fixed != in.Original {
		if s := strings.TrimSpace(in.Fixed); s != "" && !looksLikePHP(s) {
			return collapse(s)
		}
	}
	return ""
}

func looksLikePHP(s string) bool {
	return strings.HasPrefix(s, "<?") || strings.Contains(s, "<?php")
}

func collapse(s string) string {
	s = usageHint.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}
