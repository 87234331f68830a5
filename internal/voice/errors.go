package voice

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures so callers can map them to a
// transport-level response without string matching.
type Kind string

const (
	KindUnsupportedFormat      Kind = "unsupported_format"
	KindCorruptAudio           Kind = "corrupt_audio"
	KindInsufficientAudio      Kind = "insufficient_audio"
	KindEmbeddingCompute       Kind = "embedding_compute"
	KindIncompatibleEmbedding  Kind = "incompatible_embedding"
	KindEmptyText              Kind = "empty_text"
	KindUnsupportedSampleRate  Kind = "unsupported_sample_rate"
	KindSynthesis              Kind = "synthesis"
	KindNotFound               Kind = "not_found"
	KindPersistence            Kind = "persistence"
	KindUnknown                Kind = "unknown"
)

// Error is a kind-tagged error. Op names the operation that failed
// ("audio.Decode", "store.Create", ...).
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a kind-tagged error with no cause.
func NewError(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// WrapError attaches a kind and operation to an underlying error.
// Already-tagged errors pass through unchanged so the innermost kind wins.
func WrapError(kind Kind, op, message string, err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return &Error{Kind: kind, Op: op, Message: message, Cause: err}
}

// IsKind reports whether any error in the chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first tagged error in the chain,
// or KindUnknown for untagged errors.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindUnknown
}
