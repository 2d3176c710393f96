package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-chat-be/pkg/llm"
)

func newTestProvider(handler http.HandlerFunc) (*GeminiProvider, *httptest.Server) {
	srv := httptest.NewServer(handler)
	p := NewGeminiProvider("test-key", "gemini-1.5-flash")
	p.BaseURL = srv.URL
	return p, srv
}

func TestGenerateSuccess(t *testing.T) {
	var gotPath, gotKey string
	p, srv := newTestProvider(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello there"}],"role":"model"}}]}`))
	})
	defer srv.Close()

	text, err := p.Generate(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello there" {
		t.Errorf("text = %q, want %q", text, "hello there")
	}
	if gotPath != "/models/gemini-1.5-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
}

func TestGenerateClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind llm.Kind
	}{
		{
			name:     "server error is unavailable",
			status:   http.StatusInternalServerError,
			body:     `{"error":{"code":500,"message":"internal error","status":"INTERNAL"}}`,
			wantKind: llm.KindUnavailable,
		},
		{
			name:     "service overloaded is unavailable",
			status:   http.StatusServiceUnavailable,
			body:     `{"error":{"code":503,"message":"model overloaded","status":"UNAVAILABLE"}}`,
			wantKind: llm.KindUnavailable,
		},
		{
			name:     "plain 429 is rate limited",
			status:   http.StatusTooManyRequests,
			body:     `{"error":{"code":429,"message":"rate limit exceeded","status":"RESOURCE_EXHAUSTED_TEMP"}}`,
			wantKind: llm.KindRateLimited,
		},
		{
			name:     "429 with quota message is quota",
			status:   http.StatusTooManyRequests,
			body:     `{"error":{"code":429,"message":"You exceeded your current quota","status":"RESOURCE_EXHAUSTED"}}`,
			wantKind: llm.KindQuota,
		},
		{
			name:     "401 is auth",
			status:   http.StatusUnauthorized,
			body:     `{"error":{"code":401,"message":"API key invalid","status":"UNAUTHENTICATED"}}`,
			wantKind: llm.KindAuth,
		},
		{
			name:     "403 is auth",
			status:   http.StatusForbidden,
			body:     `{"error":{"code":403,"message":"permission denied","status":"PERMISSION_DENIED"}}`,
			wantKind: llm.KindAuth,
		},
		{
			name:     "400 is bad request",
			status:   http.StatusBadRequest,
			body:     `{"error":{"code":400,"message":"invalid argument","status":"INVALID_ARGUMENT"}}`,
			wantKind: llm.KindBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, srv := newTestProvider(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			defer srv.Close()

			_, err := p.Generate(context.Background(), "hi")
			if err == nil {
				t.Fatal("expected error")
			}
			var le *llm.Error
			if !errors.As(err, &le) {
				t.Fatalf("error type = %T, want *llm.Error", err)
			}
			if le.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", le.Kind, tt.wantKind)
			}
			if le.Status != tt.status {
				t.Errorf("status = %d, want %d", le.Status, tt.status)
			}
		})
	}
}

func TestGenerateEmptyCandidates(t *testing.T) {
	p, srv := newTestProvider(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})
	defer srv.Close()

	_, err := p.Generate(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected error for empty candidates")
	}
	if llm.KindOf(err) != llm.KindUnknown {
		t.Errorf("kind = %v, want unknown", llm.KindOf(err))
	}
}

func TestGenerateTransportError(t *testing.T) {
	p, srv := newTestProvider(func(w http.ResponseWriter, r *http.Request) {})
	srv.Close() // force connection refused

	_, err := p.Generate(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if llm.KindOf(err) != llm.KindUnavailable {
		t.Errorf("kind = %v, want unavailable", llm.KindOf(err))
	}
}
