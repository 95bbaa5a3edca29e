package phpcs

import (
	"time"
)

// Tool describes how to launch one of the two executables.
type Tool struct {
	Executable string
	ExtraArgs  []string
	Dir        string
	Env        []string
	Timeout    time.Duration
}

// Invocation is one fully built subprocess call.
type Invocation struct {
	Executable string
	Args       []string
	Stdin      string
	Dir        string
	Env        []string
	Timeout    time.Duration
}

// ValidatorArgs builds the phpcs argument list. The document is read from
// stdin; --stdin-path lets path-based rules see the real file name.
func ValidatorArgs(standard, documentPath string, extra []string) []string {
	args := []string{"--report=json", "-q"}
	if standard != "" {
		args = append(args, "--standard="+standard)
	}
	args = append(args, "--stdin-path="+documentPath, "-")
	return append(args, extra...)
}

// FixerArgs builds the phpcbf argument list. The stdin marker goes last.
func FixerArgs(standard, documentPath string, extra []string) []string {
	args := []string{"-q"}
	if standard != "" {
		args = append(args, "--standard="+standard)
	}
	args = append(args, "--stdin-path="+documentPath)
	args = append(args, extra...)
	return append(args, "-")
}

func (t Tool) invocation(args []string, stdin string) Invocation {
	return Invocation{
		Executable: t.Executable,
		Args:       args,
		Stdin:      stdin,
		Dir:        t.Dir,
		Env:        t.Env,
		Timeout:    t.Timeout,
	}
}
