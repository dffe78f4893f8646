package contahub

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Login failure causes. Each failed strategy wraps exactly one of these.
var (
	ErrRateLimited         = errors.New("rate limited")
	ErrAccessDenied        = errors.New("access denied")
	ErrTimeout             = errors.New("timeout")
	ErrConnection          = errors.New("connection error")
	ErrMalformedResponse   = errors.New("malformed response")
	ErrCredentialsRejected = errors.New("credentials rejected")
	ErrUnexpectedStatus    = errors.New("unexpected HTTP status")
)

var ErrNotAuthenticated = errors.New("session not authenticated")

// MaxErrorBodySize is the maximum number of response body characters included in an error.
const MaxErrorBodySize = 500

// StrategyError records why a single login strategy failed.
type StrategyError struct {
	Strategy string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%v: %v", e.Strategy, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// AuthFailure is returned when every login strategy has failed.
type AuthFailure struct {
	Attempts []*StrategyError
}

func (e *AuthFailure) Error() string {
	return "authentication exhausted"
}

// Detail lists the individual strategy failures.
func (e *AuthFailure) Detail() string {
	list := []string{}
	for _, a := range e.Attempts {
		list = append(list, a.Error())
	}

	return strings.Join(list, "; ")
}

func (e *AuthFailure) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a
	}

	return errs
}

// FetchError is a failed query against the ContaHub query API.
type FetchError struct {
	Module     string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("error fetching %v (HTTP %d): %v", e.Module, e.StatusCode, e.Body)

	case e.StatusCode != 0:
		return fmt.Sprintf("error fetching %v (HTTP %d)", e.Module, e.StatusCode)

	default:
		return fmt.Sprintf("error fetching %v (%v)", e.Module, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// classify maps a transport level error to ErrTimeout or ErrConnection.
func classify(err error) error {
	var ne net.Error

	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w (%v)", ErrTimeout, err)
	}

	return fmt.Errorf("%w (%v)", ErrConnection, err)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max] + "..."
}
