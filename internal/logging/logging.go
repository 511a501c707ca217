// Package logging configures the process-wide logrus logger and provides
// the HTTP access log middleware.
package logging

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// Setup applies level and format ("text" or "json") to the standard logger.
func Setup(out io.Writer, level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	switch strings.ToLower(format) {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format %q", format)
	}

	if out != nil {
		log.SetOutput(out)
	}
	log.SetLevel(lvl)
	return nil
}

// RequestLogger logs one entry per request with chi's request id.
func RequestLogger(logger log.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				entry := logger.WithFields(log.Fields{
					"request_id": middleware.GetReqID(r.Context()),
					"method":     r.Method,
					"path":       r.URL.Path,
					"remote":     r.RemoteAddr,
					"status":     ww.Status(),
					"bytes":      ww.BytesWritten(),
					"duration":   time.Since(start),
				})

				switch {
				case ww.Status() >= 500:
					entry.Error("request failed")
				case ww.Status() >= 400:
					entry.Warn("request rejected")
				default:
					entry.Info("request handled")
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
