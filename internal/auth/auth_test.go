package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/quartz"
)

func TestHTTPValidator_ValidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req validateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		if req.Token == "valid-token" {
			_ = json.NewEncoder(w).Encode(validateResponse{Valid: true, Username: "alice", Role: RoleAdmin})
		} else {
			_ = json.NewEncoder(w).Encode(validateResponse{Valid: false})
		}
	}))
	defer server.Close()

	validator := NewHTTPValidator(server.URL, "")

	identity, err := validator.Validate(context.Background(), "valid-token")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if identity.Username != "alice" {
		t.Errorf("expected alice, got %s", identity.Username)
	}
	if !identity.IsAdmin() {
		t.Errorf("expected admin role, got %q", identity.Role)
	}

	if _, err := validator.Validate(context.Background(), "other"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHTTPValidator_ValidWithoutUsername(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(validateResponse{Valid: true})
	}))
	defer server.Close()

	_, err := NewHTTPValidator(server.URL, "").Validate(context.Background(), "token")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHTTPValidator_EmptyToken(t *testing.T) {
	validator := NewHTTPValidator("http://localhost:9999", "")
	_, err := validator.Validate(context.Background(), "")

	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for empty token, got %v", err)
	}
}

func TestHTTPValidator_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrInvalidToken},
		{"forbidden", http.StatusForbidden, ErrInvalidToken},
		{"rate limited", http.StatusTooManyRequests, ErrUnavailable},
		{"server error", http.StatusInternalServerError, ErrUnavailable},
		{"service unavailable", http.StatusServiceUnavailable, ErrUnavailable},
		{"unexpected", http.StatusTeapot, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			_, err := NewHTTPValidator(server.URL, "").Validate(context.Background(), "token")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestHTTPValidator_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	validator := NewHTTPValidator(server.URL, "")
	validator.timeout = 50 * time.Millisecond
	_, err := validator.Validate(context.Background(), "token")

	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable on timeout, got %v", err)
	}
}

func TestHTTPValidator_AdminSecret(t *testing.T) {
	var receivedSecret string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedSecret = r.Header.Get("X-Admin-Secret")
		_ = json.NewEncoder(w).Encode(validateResponse{Valid: true, Username: "test"})
	}))
	defer server.Close()

	_, _ = NewHTTPValidator(server.URL, "my-secret").Validate(context.Background(), "token")
	if receivedSecret != "my-secret" {
		t.Errorf("expected admin secret 'my-secret', got '%s'", receivedSecret)
	}

	_, _ = NewHTTPValidator(server.URL, "").Validate(context.Background(), "token")
	if receivedSecret != "" {
		t.Errorf("expected no admin secret, got '%s'", receivedSecret)
	}
}

func TestHTTPValidator_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := NewHTTPValidator(server.URL, "").Validate(context.Background(), "token")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable for malformed JSON, got %v", err)
	}
}

func TestHTTPValidator_NetworkError(t *testing.T) {
	_, err := NewHTTPValidator("http://localhost:1", "").Validate(context.Background(), "token")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable for network error, got %v", err)
	}
}

func TestNoopValidator(t *testing.T) {
	validator := NewNoopValidator()
	identity, err := validator.Validate(context.Background(), "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if identity.Username != "bob" {
		t.Errorf("expected token as username, got %q", identity.Username)
	}

	if _, err := validator.Validate(context.Background(), " "); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for blank token, got %v", err)
	}
}

func TestChain(t *testing.T) {
	reject := NewJWTValidator("secret", "", "", quartz.NewMock(t))
	chain := Chain{reject, NewNoopValidator()}

	identity, err := chain.Validate(context.Background(), "carol")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if identity.Username != "carol" {
		t.Errorf("expected carol, got %q", identity.Username)
	}

	if _, err := (Chain{}).Validate(context.Background(), "x"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("empty chain should reject, got %v", err)
	}

	// An unreachable service stops the chain rather than falling through.
	down := Chain{NewHTTPValidator("http://localhost:1", ""), NewNoopValidator()}
	if _, err := down.Validate(context.Background(), "carol"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?access_token=query", nil)
	if got := TokenFromRequest(r); got != "query" {
		t.Errorf("expected query token, got %q", got)
	}
	r.Header.Set("Authorization", "Bearer header")
	if got := TokenFromRequest(r); got != "header" {
		t.Errorf("expected header token, got %q", got)
	}
}
