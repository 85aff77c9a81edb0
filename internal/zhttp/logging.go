package zhttp

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sassoftware/webapkverify/internal/logrotate"
)

type ctxKey int

const ctxAccess ctxKey = 1

const (
	rfc3339Milli    = "2006-01-02T15:04:05.000Z07:00" // RFC3339 with 3 decimal places, padded
	RequestIDHeader = "X-Request-Id"
)

// SetupLogging points the global zerolog logger at stderr or a file and sets
// its level. The returned writer is non-nil when logging to a file so the
// caller can reopen it after rotation.
func SetupLogging(levelName, logFile string) (*logrotate.Writer, error) {
	zerolog.TimeFieldFormat = rfc3339Milli
	zerolog.DurationFieldInteger = true
	var rotator *logrotate.Writer
	switch logFile {
	case "-":
		log.Logger = log.Logger.Output(os.Stderr)
	case "":
		log.Logger = log.Logger.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	default:
		w, err := logrotate.NewWriter(logFile)
		if err != nil {
			return nil, fmt.Errorf("logging.file: %w", err)
		}
		log.Logger = log.Logger.Output(w)
		rotator = w
	}
	if levelName == "" {
		levelName = zerolog.InfoLevel.String()
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return rotator, fmt.Errorf("logging.level: %w", err)
	}
	log.Logger = log.Logger.Level(level)
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
	return rotator, nil
}

// accessState is carried in the request context so views can amend or
// suppress the access log entry.
type accessState struct {
	callbacks []AccessLogCallback
	skip      bool
}

type AccessLogCallback func(*zerolog.Event)

type loggingConfig struct {
	logger zerolog.Logger
	now    func() time.Time
	quiet  map[string]bool
}

type LoggingOption func(*loggingConfig)

// WithLogger sets the base logger for the middleware
func WithLogger(logger zerolog.Logger) LoggingOption {
	return func(lc *loggingConfig) {
		lc.logger = logger
	}
}

// WithQuietPaths suppresses access log entries for requests to the given
// paths, such as scrape endpoints.
func WithQuietPaths(paths ...string) LoggingOption {
	return func(lc *loggingConfig) {
		for _, p := range paths {
			lc.quiet[p] = true
		}
	}
}

// LoggingMiddleware attaches a request-scoped logger to each request and
// emits an access log entry when the request completes. Requests without an
// X-Request-Id get a random one, and the id is echoed in the response.
func LoggingMiddleware(opts ...LoggingOption) func(http.Handler) http.Handler {
	cfg := loggingConfig{
		logger: log.Logger,
		now:    time.Now,
		quiet:  make(map[string]bool),
	}
	for _, o := range opts {
		o(&cfg)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			cfg.serve(next, rw, req)
		})
	}
}

func (cfg *loggingConfig) serve(next http.Handler, rw http.ResponseWriter, req *http.Request) {
	reqID := requestID(req)
	rw.Header().Set(RequestIDHeader, reqID)
	logger := cfg.logger.With().
		Str("ip", StripPort(req.RemoteAddr)).
		Str("req_id", reqID).
		Logger()
	state := &accessState{skip: cfg.quiet[req.URL.Path]}
	ctx := logger.WithContext(req.Context())
	ctx = context.WithValue(ctx, ctxAccess, state)
	req = req.WithContext(ctx)

	start := cfg.now()
	lw := &Logger{ResponseWriter: rw, Now: cfg.now}
	next.ServeHTTP(lw, req)
	if state.skip {
		return
	}
	// the context logger is a copy, so use it to pick up UpdateContext calls
	// made by the view
	ev := zerolog.Ctx(ctx).Info().
		Str("method", req.Method).
		Stringer("url", req.URL).
		Int("status", lw.Status()).
		Int64("len", lw.Length()).
		Dur("dur", cfg.now().Sub(start)).
		Dur("ttfb", lw.Started().Sub(start)).
		Str("ua", req.UserAgent())
	for _, cb := range state.callbacks {
		cb(ev)
	}
	ev.Send()
}

func requestID(req *http.Request) string {
	reqID := req.Header.Get(RequestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
		req.Header.Set(RequestIDHeader, reqID)
	}
	return reqID
}

func accessFrom(ctx context.Context) *accessState {
	state, _ := ctx.Value(ctxAccess).(*accessState)
	return state
}

// AppendAccessLog adds a callback that amends the access log entry with
// additional fields.
func AppendAccessLog(req *http.Request, f AccessLogCallback) {
	AppendAccessLogContext(req.Context(), f)
}

// AppendAccessLogContext is AppendAccessLog for code that only has the
// request context.
func AppendAccessLogContext(ctx context.Context, f AccessLogCallback) {
	if state := accessFrom(ctx); state != nil {
		state.callbacks = append(state.callbacks, f)
	}
}

// DontLog suppresses the access log entry for the current request
func DontLog(req *http.Request) {
	if state := accessFrom(req.Context()); state != nil {
		state.skip = true
	}
}

// StripPort returns just the IP part from e.g. Request.RemoteAddr
func StripPort(clientIP string) string {
	i := strings.IndexByte(clientIP, ':')
	j := strings.IndexByte(clientIP, ']')
	if j > 1 && clientIP[0] == '[' {
		// [fe80::]:1234
		return clientIP[1:j]
	} else if i > 0 && strings.Count(clientIP, ":") == 1 {
		// 127.0.0.1:1234
		return clientIP[:i]
	}
	return clientIP
}
