package httpclient

import (
	"errors"
	"fmt"
)

// Kind classifies a failed request into the retry taxonomy. Auth and Client
// failures are permanent; Server, Network and RateLimit failures surface only
// after the attempt budget is exhausted.
type Kind int

const (
	KindAuth Kind = iota
	KindClient
	KindServer
	KindNetwork
	KindRateLimit
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "authentication"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	case KindRateLimit:
		return "rate_limit"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by the Executor (and by the token
// manager for authentication failures).
type Error struct {
	Kind     Kind
	Status   int // last observed HTTP status, 0 if none
	Attempts int
	URL      string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("personio %s failure", e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from err, if it carries one.
func KindOf(err error) (Kind, bool) {
	var he *Error
	if errors.As(err, &he) {
		return he.Kind, true
	}
	return 0, false
}

// IsAuthFailure reports whether err is a permanent authentication failure.
// Callers use this to abort a whole run instead of skipping one item.
func IsAuthFailure(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindAuth
}
