package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"direct2url/internal/apperr"
	"direct2url/internal/response"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = response.RequestID(r.Context())
	}))

	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{name: "Generated when absent", incoming: "", reuse: false},
		{name: "Client id is reused", incoming: "abc-123", reuse: true},
		{name: "Oversized id is replaced", incoming: strings.Repeat("x", 200), reuse: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if seen == "" {
				t.Fatal("Expected request id in context")
			}
			if got := rr.Header().Get(RequestIDHeader); got != seen {
				t.Errorf("Expected header %q to match context %q", got, seen)
			}
			if tt.reuse && seen != tt.incoming {
				t.Errorf("Expected %q to be reused, got %q", tt.incoming, seen)
			}
			if !tt.reuse && seen == tt.incoming {
				t.Errorf("Expected a generated id, got %q", seen)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/s3-presigned-url", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rr.Code)
	}
	var env response.ErrorEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to parse error response: %v", err)
	}
	if env.Error.Code != apperr.CodeInternal {
		t.Errorf("Expected INTERNAL_ERROR, got %s", env.Error.Code)
	}
}

func TestLogger_PassesThrough(t *testing.T) {
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rr.Code)
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name           string
		allowed        []string
		origin         string
		method         string
		preflight      bool
		expectedStatus int
		expectedOrigin string
	}{
		{
			name:           "Wildcard allows any origin",
			allowed:        []string{"*"},
			origin:         "https://app.example.com",
			method:         http.MethodPost,
			expectedStatus: http.StatusOK,
			expectedOrigin: "*",
		},
		{
			name:           "Listed origin is echoed",
			allowed:        []string{"https://app.example.com"},
			origin:         "https://app.example.com",
			method:         http.MethodPost,
			expectedStatus: http.StatusOK,
			expectedOrigin: "https://app.example.com",
		},
		{
			name:           "Unlisted origin gets no header",
			allowed:        []string{"https://app.example.com"},
			origin:         "https://evil.example.com",
			method:         http.MethodPost,
			expectedStatus: http.StatusOK,
			expectedOrigin: "",
		},
		{
			name:           "Preflight is answered",
			allowed:        []string{"*"},
			origin:         "https://app.example.com",
			method:         http.MethodOptions,
			preflight:      true,
			expectedStatus: http.StatusNoContent,
			expectedOrigin: "*",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/s3-presigned-url", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rr := httptest.NewRecorder()
			CORS(tt.allowed)(okHandler()).ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.expectedOrigin {
				t.Errorf("Expected allow origin %q, got %q", tt.expectedOrigin, got)
			}
			if tt.preflight && rr.Body.Len() != 0 {
				t.Errorf("Expected preflight to stop before the handler, got body %q", rr.Body.String())
			}
		})
	}
}

func TestMaxBody(t *testing.T) {
	h := MaxBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var v map[string]any
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"fileName":"a-very-long-name.pdf"}`)))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", rr.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name              string
		remoteAddr        string
		forwarded         string
		realIP            string
		expectedClient    string
		expectedForwarded string
	}{
		{name: "Remote addr", remoteAddr: "10.0.0.1:5555", expectedClient: "10.0.0.1", expectedForwarded: "10.0.0.1"},
		{name: "IPv6 remote addr", remoteAddr: "[::1]:5555", expectedClient: "::1", expectedForwarded: "::1"},
		{name: "First forwarded hop", remoteAddr: "10.0.0.1:5555", forwarded: "203.0.113.9, 10.0.0.2", expectedClient: "10.0.0.1", expectedForwarded: "203.0.113.9"},
		{name: "Real IP header", remoteAddr: "10.0.0.1:5555", realIP: "198.51.100.4", expectedClient: "10.0.0.1", expectedForwarded: "198.51.100.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := ClientIP(req); got != tt.expectedClient {
				t.Errorf("Expected client ip %q, got %q", tt.expectedClient, got)
			}
			if got := ForwardedIP(req); got != tt.expectedForwarded {
				t.Errorf("Expected forwarded ip %q, got %q", tt.expectedForwarded, got)
			}
		})
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	Chain(okHandler(), mark("outer"), mark("inner")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Join(order, ",") != "outer,inner" {
		t.Errorf("Unexpected order %v", order)
	}
}
