package scheduler

import (
	"context"

	"phpsniff/internal/config"
	"phpsniff/internal/phpcs"
)

// DocumentID identifies a document within a workspace folder.
type DocumentID struct {
	URI string
	// Folder is the workspace folder root, "" outside every folder.
	Folder string
}

// MessageLevel mirrors LSP MessageType.
type MessageLevel int

const (
	MessageError   MessageLevel = 1
	MessageWarning MessageLevel = 2
	MessageInfo    MessageLevel = 3
)

// ConfigSource supplies per-folder configuration snapshots.
type ConfigSource interface {
	Resource(folder string) (config.Resource, error)
	Invalidate()
}

// StandardResolver picks the --standard value for a document.
type StandardResolver interface {
	ResolveStandard(docPath string, r config.Resource) (string, error)
}

// DocumentSource returns the current text of an open document and its
// filesystem path.
type DocumentSource interface {
	Document(uri string) (path, text string, ok bool)
}

// Engine runs the tools.
type Engine interface {
	Validate(ctx context.Context, req phpcs.Request) (phpcs.ValidationResult, error)
	Fix(ctx context.Context, req phpcs.Request) (phpcs.FixOutcome, error)
	InvalidateVersions()
}

// Publisher owns the published diagnostic sets. Publish replaces the set
// wholesale; an empty slice clears it.
type Publisher interface {
	Publish(uri string, findings []phpcs.Finding)
	Clear(uri string)
}

// Notifier shows a message to the user.
type Notifier interface {
	Notify(level MessageLevel, message string)
}
