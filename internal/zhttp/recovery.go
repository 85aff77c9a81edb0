package zhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

// RecoveryMiddleware catches panics, logs the error, and writes a generic Internal Server Error response
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		defer func() {
			if caught := recover(); caught != nil {
				if caught == http.ErrAbortHandler {
					// explicit signal to stop
					panic(caught)
				}
				const size = 64 << 10
				buf := make([]byte, size)
				buf = buf[:runtime.Stack(buf, false)]
				tb := "\n " + strings.ReplaceAll(string(buf), "\n", "\n ")
				err, ok := caught.(error)
				if !ok {
					err = fmt.Errorf("%v", caught)
				}
				WriteUnhandledError(rw, req, err, tb)
			}
		}()
		next.ServeHTTP(rw, req)
	})
}

// WriteUnhandledError writes a generic 500 Internal Server Error response while
// logging the actual unhandled error and optional traceback. Cancelled
// requests get 499 or 504 instead.
func WriteUnhandledError(w http.ResponseWriter, req *http.Request, err error, traceback string) {
	status := http.StatusInternalServerError
	field := "error"
	text := "internal error while verifying the archive"
	if e := req.Context().Err(); e != nil {
		field = "cancel"
		text = "request cancelled"
		if errors.Is(e, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		} else {
			// borrow nginx's fake 499 status for client closing connection
			status = 499
		}
	}
	AppendAccessLog(req, func(e *zerolog.Event) {
		e.AnErr(field, err)
		if traceback != "" {
			e.Str("stack", traceback)
		}
	})
	WriteJSON(w, status, map[string]string{"error": text})
}

// WriteJSON writes v as the response body with the given status
func WriteJSON(w http.ResponseWriter, status int, v any) {
	blob, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(blob, '\n'))
}
