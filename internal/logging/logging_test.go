package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

func TestSetup(t *testing.T) {
	defer log.SetOutput(log.StandardLogger().Out)
	defer log.SetLevel(log.GetLevel())

	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"text info", "info", "text", false},
		{"json debug", "debug", "json", false},
		{"bad level", "loud", "text", true},
		{"bad format", "info", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := Setup(&buf, tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if tt.wantErr {
				return
			}
			if log.GetLevel().String() != tt.level {
				t.Errorf("expected level %s, got %s", tt.level, log.GetLevel())
			}
		})
	}
	log.SetFormatter(&log.TextFormatter{})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&log.JSONFormatter{})

	handler := middleware.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}

	if entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("expected status 418, got %v", entry["status"])
	}
	if entry["bytes"] != float64(len("short and stout")) {
		t.Errorf("expected bytes %d, got %v", len("short and stout"), entry["bytes"])
	}
	if entry["path"] != "/ping" || entry["level"] != "warning" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if entry["request_id"] == "" {
		t.Error("expected request id")
	}
}
