package zhttp

import (
	"net/http"
	"time"
)

// Logger wraps a ResponseWriter and records the resulting status code
// and how many bytes are written, for the access log
type Logger struct {
	http.ResponseWriter
	length  int64
	status  int
	started time.Time
	Now     func() time.Time
}

// Write implements ResponseWriter
func (l *Logger) Write(d []byte) (size int, err error) {
	if l.status == 0 {
		l.WriteHeader(http.StatusOK)
	}
	size, err = l.ResponseWriter.Write(d)
	l.length += int64(size)
	return
}

// WriteHeader implements ResponseWriter
func (l *Logger) WriteHeader(status int) {
	// suppress duplicate WriteHeader calls, but do save the status code
	if l.status == 0 {
		l.ResponseWriter.WriteHeader(status)
		l.started = l.Now()
	}
	l.status = status
}

// Flush wraps a nested Flusher
func (l *Logger) Flush() {
	if flusher, ok := l.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Length returns the number of bytes written
func (l *Logger) Length() int64 {
	return l.length
}

// Status returns the response status
func (l *Logger) Status() int {
	if l.status == 0 {
		return http.StatusOK
	}
	return l.status
}

// Started returns the time at which headers were written
func (l *Logger) Started() time.Time {
	if l.started.IsZero() {
		return l.Now()
	}
	return l.started
}

// Unwrap exposes the underlying writer to http.ResponseController
func (l *Logger) Unwrap() http.ResponseWriter {
	return l.ResponseWriter
}
