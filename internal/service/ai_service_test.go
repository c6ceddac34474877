package service

import (
	"abyas_backend/internal/config"
	"abyas_backend/internal/util"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newUpstream(t *testing.T, handler http.HandlerFunc) config.AIConfig {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return config.AIConfig{BaseURL: srv.URL + "/", APIKey: "test-key", Model: "test-model", Temperature: 0.5, MaxTokens: 100, Timeout: time.Second}
}

func TestAIService_Complete(t *testing.T) {
	cfg := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected request %s auth=%q", r.URL.Path, r.Header.Get("Authorization"))
		}
		var req ChatCompletionRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "test-model" || len(req.Messages) != 2 || req.Messages[1].Content != "prompt" {
			t.Errorf("unexpected body: %+v", req)
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Q: ok"}}]}`))
	})

	got, err := NewAIService(cfg).Complete(context.Background(), "prompt")
	if err != nil || got != "Q: ok" {
		t.Fatalf("Complete = %q, %v", got, err)
	}
}

func TestAIService_UpstreamFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"non-200": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		},
		"empty choices": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[]}`))
		},
		"api error": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":{"message":"bad model"}}`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewAIService(newUpstream(t, handler)).Complete(context.Background(), "prompt")
			var upErr *util.UpstreamError
			if !errors.As(err, &upErr) || upErr.Timeout {
				t.Fatalf("expected non-timeout UpstreamError, got %v", err)
			}
		})
	}
}

func TestAIService_Timeout(t *testing.T) {
	cfg := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	cfg.Timeout = 50 * time.Millisecond

	_, err := NewAIService(cfg).Complete(context.Background(), "prompt")
	var upErr *util.UpstreamError
	if !errors.As(err, &upErr) || !upErr.Timeout {
		t.Fatalf("expected timeout UpstreamError, got %v", err)
	}
}

func TestAIService_NotConfigured(t *testing.T) {
	svc := NewAIService(config.AIConfig{})
	if svc.Enabled() {
		t.Fatal("empty key should disable the client")
	}
	if _, err := svc.Complete(context.Background(), "prompt"); !errors.Is(err, util.ErrAINotConfigured) {
		t.Fatalf("got %v", err)
	}

	svc.UpdateConfig(config.AIConfig{APIKey: "k"})
	if !svc.Enabled() {
		t.Fatal("UpdateConfig should enable the client")
	}
}
