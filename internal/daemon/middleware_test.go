package daemon

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestGetCorrelationID(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"present", context.WithValue(context.Background(), CorrelationIDKey, "abc-123"), "abc-123"},
		{"absent", context.Background(), ""},
		{"wrong type", context.WithValue(context.Background(), CorrelationIDKey, 12345), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCorrelationID(tt.ctx); got != tt.want {
				t.Errorf("GetCorrelationID() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestCorrelationIDMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{"generates", ""},
		{"propagates", "existing-correlation-id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = GetCorrelationID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
			if tt.incoming != "" {
				req.Header.Set(CorrelationIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if tt.incoming != "" && captured != tt.incoming {
				t.Errorf("captured = %q; want %q", captured, tt.incoming)
			}
			if tt.incoming == "" {
				if _, err := uuid.Parse(captured); err != nil {
					t.Errorf("generated ID %q is not a UUID: %v", captured, err)
				}
			}
			if got := rec.Header().Get(CorrelationIDHeader); got != captured {
				t.Errorf("response header = %q; want %q", got, captured)
			}
		})
	}
}

func TestRequestLevel(t *testing.T) {
	tests := []struct {
		status int
		want   slog.Level
	}{
		{http.StatusOK, slog.LevelDebug},
		{http.StatusCreated, slog.LevelDebug},
		{http.StatusBadRequest, slog.LevelWarn},
		{http.StatusNotFound, slog.LevelWarn},
		{http.StatusInternalServerError, slog.LevelError},
		{http.StatusBadGateway, slog.LevelError},
	}

	for _, tt := range tests {
		if got := requestLevel(tt.status); got != tt.want {
			t.Errorf("requestLevel(%d) = %v; want %v", tt.status, got, tt.want)
		}
	}
}

func TestLoggingMiddleware_PassesThrough(t *testing.T) {
	tests := []struct {
		name       string
		write      bool
		statusCode int
	}{
		{"explicit created", true, http.StatusCreated},
		{"explicit not found", true, http.StatusNotFound},
		{"implicit ok", false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.write {
					w.WriteHeader(tt.statusCode)
				}
				w.Write([]byte("body"))
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil))

			if rec.Code != tt.statusCode {
				t.Errorf("status = %d; want %d", rec.Code, tt.statusCode)
			}
			if rec.Body.String() != "body" {
				t.Errorf("body = %q; want %q", rec.Body.String(), "body")
			}
		})
	}
}

func TestStatusRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}

	rw.WriteHeader(http.StatusTeapot)

	if rw.status != http.StatusTeapot || rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, recorder = %d; want %d", rw.status, rec.Code, http.StatusTeapot)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    int
	}{
		{"no panic", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }, http.StatusOK},
		{"panic", func(w http.ResponseWriter, r *http.Request) { panic("boom") }, http.StatusInternalServerError},
		{"nil panic", func(w http.ResponseWriter, r *http.Request) { panic(nil) }, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			recoveryMiddleware(tt.handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d; want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestMiddlewareChain_PanicKeepsCorrelationID(t *testing.T) {
	var captured string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetCorrelationID(r.Context())
		panic("simulated panic")
	})
	handler := recoveryMiddleware(correlationIDMiddleware(loggingMiddleware(inner)))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/courses/1/enroll", nil))

	if captured == "" {
		t.Error("correlation ID should be set before the panic")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d; want %d", rec.Code, http.StatusInternalServerError)
	}
	if got := rec.Header().Get(CorrelationIDHeader); got != captured {
		t.Errorf("response header = %q; want %q", got, captured)
	}
}

func TestClientAddr(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[::1]:80", "::1"},
		{"pipe", "pipe"},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.remote
		if got := clientAddr(r); got != tt.want {
			t.Errorf("clientAddr(%q) = %q; want %q", tt.remote, got, tt.want)
		}
	}
}
