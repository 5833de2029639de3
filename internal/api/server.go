// Package api exposes the serial session over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/cnc-relay/internal/monitoring"
	"github.com/banshee-data/cnc-relay/internal/serialport"
	"github.com/banshee-data/cnc-relay/internal/session"
)

// ANSI escape codes for the request log line.
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// DefaultReleaseTimeout bounds how long /release waits for an in-flight command.
const DefaultReleaseTimeout = 5 * time.Second

var logf = monitoring.Prefixed("api")

// Session is the part of *session.Manager the HTTP layer drives.
type Session interface {
	Send(ctx context.Context, text, port string) (*session.CommandResult, error)
	Release(ctx context.Context) error
	Snapshot() session.Snapshot
}

var _ Session = (*session.Manager)(nil)

type Server struct {
	sess           Session
	ports          serialport.Lister
	defaultPort    string
	releaseTimeout time.Duration
}

// NewServer returns a Server relaying to sess. defaultPort is used by the query
// endpoint, which carries no port of its own; it may be empty.
func NewServer(sess Session, ports serialport.Lister, defaultPort string) *Server {
	return &Server{
		sess:           sess,
		ports:          ports,
		defaultPort:    defaultPort,
		releaseTimeout: DefaultReleaseTimeout,
	}
}

// SetReleaseTimeout changes how long /release queues behind an active command.
// It should exceed the session's read window.
func (s *Server) SetReleaseTimeout(d time.Duration) {
	if d > 0 {
		s.releaseTimeout = d
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ports", s.listPorts)
	mux.HandleFunc("/ports/details", s.portDetails)
	mux.HandleFunc("/send", s.sendHandler)
	mux.HandleFunc("/release", s.releaseHandler)
	mux.HandleFunc("/status", s.showStatus)
	mux.HandleFunc("/shapes", s.showShape)

	// legacy paths still used by the browser UI
	mux.HandleFunc("/get-available-ports/", s.legacyPorts)
	mux.HandleFunc("/send_text/", s.sendHandler)
	mux.HandleFunc("/release_port/", s.releaseHandler)
	mux.HandleFunc("/get_val_from/", s.sendFromQuery)
	return mux
}
