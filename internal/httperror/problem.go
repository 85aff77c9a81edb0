// Package httperror writes RFC 7807 "problem" responses for requests the
// verification service refuses before looking at the archive.
package httperror

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sassoftware/webapkverify/internal/zhttp"
)

// Problem implements a RFC 7807 HTTP "problem" response
type Problem struct {
	Status int    `json:"status"`
	Type   string `json:"type"`

	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (e Problem) Error() string {
	title := e.Title
	if title == "" {
		title = "[" + e.Type + "]"
	}
	m := fmt.Sprintf("HTTP %d %s", e.Status, title)
	if e.Detail != "" {
		m += ": " + e.Detail
	}
	return m
}

func (e Problem) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	if e.Type != "" {
		zhttp.AppendAccessLog(req, func(ev *zerolog.Event) {
			ev.Str("problem", e.Type)
		})
	}
	blob, _ := json.MarshalIndent(e, "", "  ")
	rw.Header().Set("Content-Type", "application/problem+json")
	if e.Status == http.StatusTooManyRequests {
		rw.Header().Set("Retry-After", "1")
	}
	rw.WriteHeader(e.Status)
	_, _ = rw.Write(blob)
}

// Temporary reports whether retrying the same request later could succeed
func (e Problem) Temporary() bool {
	switch e.Status {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return false
}

const ProblemBase = "urn:webapkverify:problem:"

var (
	ErrBodyTooLarge = Problem{
		Status: http.StatusRequestEntityTooLarge,
		Type:   ProblemBase + "body-too-large",
		Detail: "The archive exceeds the maximum size accepted by this service",
	}
	ErrEmptyBody = Problem{
		Status: http.StatusBadRequest,
		Type:   ProblemBase + "empty-body",
		Detail: "The request body must contain the archive to verify",
	}
	ErrRateLimited = Problem{
		Status: http.StatusTooManyRequests,
		Type:   ProblemBase + "rate-limited",
		Detail: "Too many requests, try again later",
	}
	ErrNotFound = Problem{
		Status: http.StatusNotFound,
		Type:   ProblemBase + "not-found",
	}
	ErrMethodNotAllowed = Problem{
		Status: http.StatusMethodNotAllowed,
		Type:   ProblemBase + "method-not-allowed",
	}
)

// ReadError converts a failure reading the request body into a problem
func ReadError(err error) Problem {
	return Problem{
		Status: http.StatusBadRequest,
		Type:   ProblemBase + "read-failed",
		Detail: "Failed to read request body: " + err.Error(),
	}
}
