// Package errs defines the error taxonomy shared by the build and review pipelines.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// Unknown is the kind of any error not produced by this package.
	Unknown Kind = iota
	// Configuration covers missing, unreadable or malformed configuration and index files.
	Configuration
	// Indexing covers index-wide invariant violations that abort a build.
	Indexing
	// Embedding covers a single failed or empty embedding call.
	Embedding
	// Retrieval covers invalid queries and query/index dimension mismatches.
	Retrieval
	// Review covers generative-model call failures and unparseable responses.
	Review
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Indexing:
		return "indexing"
	case Embedding:
		return "embedding"
	case Retrieval:
		return "retrieval"
	case Review:
		return "review"
	default:
		return "unknown"
	}
}

// Error is a tagged pipeline error. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with kind and op. A nil err yields nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a tagged error from a format string.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost tagged error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
