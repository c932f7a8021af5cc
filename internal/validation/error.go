package validation

import "strings"

// Kind tells the caller how a failed validation should be reported.
type Kind int

const (
	KindBadRequest Kind = iota + 1
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Issue is a single failed rule.
type Issue struct {
	Field   string
	Keyword string
	Kind    Kind
	Message string
}

// Error is returned by every schema when at least one rule failed. Message and Kind
// come from the first issue; Issues keeps the full list for logging.
type Error struct {
	Schema string
	Issues []Issue
}

func (e *Error) First() Issue {
	return e.Issues[0]
}

func (e *Error) Kind() Kind {
	return e.First().Kind
}

func (e *Error) Message() string {
	return e.First().Message
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Field+": "+is.Message)
	}
	return "validation failed (" + e.Schema + "): " + strings.Join(parts, "; ")
}
