package server

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sambeau/tabula/config"
)

func TestCompressionHandler(t *testing.T) {
	large := strings.Repeat(`{"id": 1, "name": "Ann"}`+"\n", 200)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(large))
	})

	tests := []struct {
		name    string
		cfg     config.CompressionConfig
		gzipped bool
	}{
		{"disabled", config.CompressionConfig{Enabled: false, Level: "default", MinSize: 1024}, false},
		{"level none", config.CompressionConfig{Enabled: true, Level: "none", MinSize: 1024}, false},
		{"default", config.CompressionConfig{Enabled: true, Level: "default", MinSize: 1024}, true},
		{"fastest", config.CompressionConfig{Enabled: true, Level: "fastest", MinSize: 1024}, true},
		{"below min size", config.CompressionConfig{Enabled: true, Level: "best", MinSize: len(large) + 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("Accept-Encoding", "gzip")
			rec := httptest.NewRecorder()
			newCompressionHandler(handler, tt.cfg).ServeHTTP(rec, req)

			gzipped := rec.Header().Get("Content-Encoding") == "gzip"
			if gzipped != tt.gzipped {
				t.Fatalf("gzipped = %v, want %v", gzipped, tt.gzipped)
			}

			body := rec.Body.Bytes()
			if gzipped {
				zr, err := gzip.NewReader(rec.Body)
				if err != nil {
					t.Fatalf("gzip reader: %v", err)
				}
				body, _ = io.ReadAll(zr)
			}
			if string(body) != large {
				t.Error("body changed by compression")
			}
		})
	}
}

func TestRequestLoggerText(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	var buf bytes.Buffer
	req := httptest.NewRequest("GET", "/schema", nil)
	rec := httptest.NewRecorder()
	newRequestLogger(handler, &buf, "text").ServeHTTP(rec, req)

	id := rec.Header().Get(requestIDHeader)
	if len(id) != 36 {
		t.Fatalf("expected a generated request ID, got %q", id)
	}
	log := buf.String()
	for _, want := range []string{id, "GET", "/schema", "200"} {
		if !strings.Contains(log, want) {
			t.Errorf("log should contain %q: %s", want, log)
		}
	}
}

func TestRequestLoggerJSON(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("nope"))
	})

	var buf bytes.Buffer
	req := httptest.NewRequest("POST", "/query", nil)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	newRequestLogger(handler, &buf, "json").ServeHTTP(rec, req)

	var entry RequestLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nlog: %s", err, buf.String())
	}
	if entry.RequestID != "abc-123" || rec.Header().Get(requestIDHeader) != "abc-123" {
		t.Errorf("client request ID not kept: entry=%q header=%q", entry.RequestID, rec.Header().Get(requestIDHeader))
	}
	if entry.Method != "POST" || entry.Path != "/query" || entry.Status != 400 || entry.Bytes != 4 {
		t.Errorf("wrong entry: %+v", entry)
	}
	if entry.UserAgent != "test-agent" {
		t.Errorf("expected user agent 'test-agent', got %q", entry.UserAgent)
	}
}
