package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindSpanBegin marks the start of a timed operation.
	KindSpanBegin Kind = iota + 1
	// KindSpanEnd marks the end of a timed operation.
	KindSpanEnd
	// KindPoint is an informational instant event.
	KindPoint
	// KindWarn is a warning instant event.
	KindWarn
	// KindError is an error instant event.
	KindError
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindWarn:
		return "warn"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity of the event.
// Lower numeric values are coarser.
type Scope uint8

const (
	// ScopeServer covers lifecycle, configuration and workspace events.
	ScopeServer Scope = iota + 1
	// ScopeDocument covers per-document scheduling.
	ScopeDocument
	// ScopeProcess covers individual tool invocations.
	ScopeProcess
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeServer:
		return "server"
	case ScopeDocument:
		return "document"
	case ScopeProcess:
		return "process"
	default:
		return "unknown"
	}
}

// Event represents a single trace event.
type Event struct {
	Time     time.Time         // wall-clock timestamp
	Seq      uint64            // global sequence number (monotonic)
	Kind     Kind              // event kind
	Scope    Scope             // granularity level
	SpanID   uint64            // span identifier (0 for point events)
	ParentID uint64            // parent span (0 if root)
	Name     string            // e.g. "phpcs", "publish", "debounce"
	Detail   string            // optional detail message
	Elapsed  time.Duration     // set on span end
	Extra    map[string]string // extensible key-value pairs
}
