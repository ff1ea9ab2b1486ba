package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestHTTPClient_Generate(t *testing.T) {
	var got chatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"<think>hmm</think> NESTOR-OK "}}]}`))
	}))
	defer srv.Close()

	opts := DefaultOptions()
	opts.SystemPrompt = "Tu es Nestor."
	c := NewHTTPClient(srv.URL+"/v1/", "", opts, zap.NewNop())

	out, err := c.Generate(context.Background(), "Répond exactement: NESTOR-OK")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "NESTOR-OK" {
		t.Fatalf("unexpected output %q", out)
	}
	if auth != "" {
		t.Fatalf("expected no Authorization header without key, got %q", auth)
	}
	if got.Model != "openai/gpt-oss-20b" || got.TopP != 0.95 || got.MaxTokens != 512 {
		t.Fatalf("unexpected request params %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
}

func TestHTTPClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"http status", http.StatusInternalServerError, `oops`, "status=500"},
		{"api error", http.StatusOK, `{"error":{"message":"model not loaded"}}`, "model not loaded"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "empty response"},
		{"blank content", http.StatusOK, `{"choices":[{"message":{"content":"  "}}]}`, "empty response"},
		{"bad json", http.StatusOK, `{`, "unmarshal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewHTTPClient(srv.URL, "secret", DefaultOptions(), zap.NewNop())
			_, err := c.Generate(context.Background(), "hola")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCleanResponse(t *testing.T) {
	tests := map[string]string{
		"":                               "",
		"  bonjour  ":                    "bonjour",
		"\uFEFFsalut":                    "salut",
		"```\nune blague\n```":           "une blague",
		"<think>je réfléchis</think>Oui": "Oui",
	}
	for in, want := range tests {
		if got := CleanResponse(in); got != want {
			t.Fatalf("CleanResponse(%q) = %q, want %q", in, got, want)
		}
	}
}
