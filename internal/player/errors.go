package player

import "fmt"

// ErrorKind classifies terminal playback errors.
type ErrorKind int

const (
	// NetworkFailure wraps a transport or API error. Retry is user-initiated.
	NetworkFailure ErrorKind = iota
	// UnsupportedContent means no playable candidate or malformed stream or
	// profile data. Terminal for the current item.
	UnsupportedContent
	// InvalidPlayOptions means no target item id could be determined from the
	// playback intent. Terminal, not retried.
	InvalidPlayOptions
)

func (k ErrorKind) String() string {
	switch k {
	case NetworkFailure:
		return "network failure"
	case UnsupportedContent:
		return "unsupported content"
	case InvalidPlayOptions:
		return "invalid play options"
	default:
		return "unknown"
	}
}

// Error is the typed playback error surfaced to callers. Resolver errors
// propagate through the queue manager unchanged.
type Error struct {
	Kind  ErrorKind
	cause error
}

func NewError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.cause }
