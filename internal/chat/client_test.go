package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testGateway(t *testing.T, apiURL string) *GatewayClient {
	t.Helper()
	c, err := NewGatewayClient(apiURL, "google/gemini-2.5-flash", "test-key", 0.7, 2*time.Second)
	if err != nil {
		t.Fatalf("NewGatewayClient() error = %v", err)
	}
	return c
}

// TestNewGatewayClient_MissingCredential verifies the fail-fast path.
func TestNewGatewayClient_MissingCredential(t *testing.T) {
	_, err := NewGatewayClient("http://example.invalid", "m", "", 0.7, time.Second)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("NewGatewayClient() error = %v, want ErrNotConfigured", err)
	}
}

// TestComplete_Success verifies the request shape and reply extraction.
func TestComplete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer credential", got)
		}

		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "google/gemini-2.5-flash" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("messages = %+v, want [system, user]", req.Messages)
		}

		fmt.Fprint(w, `{"choices":[{"message":{"content":"Stay hydrated!"}}]}`)
	}))
	defer srv.Close()

	got, err := testGateway(t, srv.URL).Complete(context.Background(), "system prompt", "any tips?")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "Stay hydrated!" {
		t.Errorf("Complete() = %q", got)
	}
}

// TestComplete_EmptyChoices verifies the fixed fallback reply on a 200 with no
// usable content.
func TestComplete_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	got, err := testGateway(t, srv.URL).Complete(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != fallbackReply {
		t.Errorf("Complete() = %q, want fallback", got)
	}
}

// TestComplete_StatusMapping verifies the sentinel returned per gateway status.
func TestComplete_StatusMapping(t *testing.T) {
	// name: test case description; status: gateway HTTP status; want: expected sentinel.
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"quota exhausted", http.StatusPaymentRequired, ErrQuotaExceeded},
		{"unauthorized", http.StatusUnauthorized, ErrAuthInvalid},
		{"forbidden", http.StatusForbidden, ErrAuthInvalid},
		{"server error", http.StatusInternalServerError, ErrUpstream},
		{"bad gateway", http.StatusBadGateway, ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := testGateway(t, srv.URL).Complete(context.Background(), "s", "u")
			if !errors.Is(err, tt.want) {
				t.Errorf("Complete() error = %v, want %v", err, tt.want)
			}
		})
	}
}
