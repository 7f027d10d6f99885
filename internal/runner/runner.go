// Package runner defines the execution boundary of the orchestration core.
// A Runner turns a resolved declaration into a running program; the core
// treats it as stateless per call and only interprets its error kinds.
package runner

import (
	"context"
	"fmt"
)

// NamespaceEntry maps one directory into the started program's namespace.
type NamespaceEntry struct {
	// TargetPath is where the program sees the directory (e.g. "/data").
	TargetPath string
	// Dir is the host directory backing the entry.
	Dir string
}

// StartInfo carries everything a runner needs to start one instance.
type StartInfo struct {
	// ResolvedURL identifies the component being started, for diagnostics.
	ResolvedURL string
	// Program is the resolved declaration's program section.
	Program map[string]string
	// Namespace is the instance's incoming namespace.
	Namespace []NamespaceEntry
	// OutgoingDir is the directory the instance serves its outgoing
	// capabilities from.
	OutgoingDir string
	// PackageDir is the component's package contents, when the resolver
	// provides one.
	PackageDir string
}

// Runner starts resolved components.
type Runner interface {
	Start(ctx context.Context, info StartInfo) error
}

// ErrorKind classifies start failures.
type ErrorKind int

const (
	// InstanceCannotStart: the program is present but cannot be launched.
	InstanceCannotStart ErrorKind = iota
	// Internal: an unexpected failure inside the runner.
	Internal
)

func (k ErrorKind) String() string {
	switch k {
	case InstanceCannotStart:
		return "instance cannot start"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a start failure for one component.
type Error struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("starting %q: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("starting %q: %s", e.URL, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a runner error. Err may be nil.
func NewError(kind ErrorKind, url string, err error) *Error {
	return &Error{Kind: kind, URL: url, Err: err}
}
