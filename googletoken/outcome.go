package googletoken

import (
	"fmt"
	"net/http"
)

// Status enumerates the terminal outcomes of an authentication attempt.
type Status int

const (
	// StatusSuccess means the verification function produced a user.
	StatusSuccess Status = iota + 1
	// StatusFailure means the request could not be authenticated: either no
	// credential was resolvable or the verification function rejected it.
	// Hosts should map this to an unauthenticated/denied response.
	StatusFailure
	// StatusError means the attempt aborted on a fault (profile fetch,
	// malformed response, or verification error). Hosts should map this to
	// a server-error response.
	StatusError
)

// Info is auxiliary detail attached to an outcome, typically a
// human-readable reason supplied by the verification function on rejection.
type Info struct {
	Message string
}

// Result is the terminal outcome of exactly one authentication attempt.
// Exactly one of the three statuses is reached per Authenticate call, and
// the attempt is never retried internally.
type Result struct {
	Status Status
	// User is the application user, set only on StatusSuccess.
	User any
	// Info carries auxiliary detail for StatusSuccess and StatusFailure.
	Info Info
	// Err is the underlying cause, set only on StatusError.
	Err error
}

// Challenge describes the HTTP response a host should produce for a
// non-success Result: a status code plus a WWW-Authenticate header value
// (empty for server errors).
type Challenge struct {
	Status          int
	WWWAuthenticate string
}

// Challenge maps the Result onto an HTTP challenge for the given realm.
// Success outcomes return nil: there is nothing to challenge.
func (r Result) Challenge(realm string) *Challenge {
	switch r.Status {
	case StatusFailure:
		return &Challenge{
			Status:          http.StatusUnauthorized,
			WWWAuthenticate: fmt.Sprintf(`Bearer realm=%q`, realm),
		}
	case StatusError:
		return &Challenge{Status: http.StatusInternalServerError}
	default:
		return nil
	}
}

func success(user any, info Info) Result {
	return Result{Status: StatusSuccess, User: user, Info: info}
}

func failure(info Info) Result {
	return Result{Status: StatusFailure, Info: info}
}

func errored(err error) Result {
	return Result{Status: StatusError, Err: err}
}
