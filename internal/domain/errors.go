package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies fetch failures into the distinct messages users see.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindUpstreamStatus
	KindTransport
	KindMalformedJSON
	KindBadShape
	KindExhausted
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUpstreamStatus:
		return "upstream_status"
	case KindTransport:
		return "transport"
	case KindMalformedJSON:
		return "malformed_json"
	case KindBadShape:
		return "bad_shape"
	case KindExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// FetchError is the single error type handed to the render layer.
type FetchError struct {
	Kind      ErrorKind
	Subreddit string
	Status    int
	Err       error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *FetchError) Unwrap() error { return e.Err }

// Message is the user-facing text for the failure.
func (e *FetchError) Message() string {
	switch e.Kind {
	case KindValidation:
		if e.Err != nil {
			return "Invalid input: " + e.Err.Error()
		}
		return "Invalid input."
	case KindNotFound:
		return fmt.Sprintf("Subreddit r/%s was not found or is private.", e.Subreddit)
	case KindUpstreamStatus:
		return fmt.Sprintf("Reddit returned HTTP %d. Try again later.", e.Status)
	case KindTransport:
		return "Could not reach Reddit. Check your connection and retry."
	case KindMalformedJSON:
		return "Reddit sent a response that is not valid JSON."
	case KindBadShape:
		return "Reddit sent an unexpected response; no posts could be read from it."
	case KindExhausted:
		return "Reddit is blocking every request strategy right now. This is usually temporary; retry in a minute."
	default:
		return "Something went wrong."
	}
}

// NewError wraps err with a kind; it is a shorthand used by the sources.
func NewError(kind ErrorKind, err error) *FetchError {
	return &FetchError{Kind: kind, Err: err}
}

// AsFetchError returns the FetchError in err's chain, if any.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsCancelled reports whether err comes from a cancelled session.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
