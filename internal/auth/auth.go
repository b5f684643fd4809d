// Package auth resolves the username behind a connection. Tokens are either
// HS256 JWTs signed with a shared secret or opaque tokens checked by an
// external HTTP service.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrInvalidToken indicates the token is definitively invalid.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrUnavailable indicates the auth service is unreachable or unavailable.
	ErrUnavailable = errors.New("auth: unavailable")
)

// RoleAdmin may start hands in rooms it did not create.
const RoleAdmin = "admin"

// Identity is an authenticated caller.
type Identity struct {
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Validator validates authentication tokens.
type Validator interface {
	// Validate returns the identity for token, ErrInvalidToken if the token
	// is definitively invalid, or ErrUnavailable if it cannot be checked.
	Validate(ctx context.Context, token string) (Identity, error)
}

// TokenFromRequest returns the bearer token from the Authorization header,
// falling back to the access_token query parameter that browsers use for
// websocket upgrades.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	return r.URL.Query().Get("access_token")
}

// HTTPValidator validates tokens via HTTP callback to external service.
type HTTPValidator struct {
	url         string
	client      *http.Client
	adminSecret string
	timeout     time.Duration
}

// NewHTTPValidator creates a validator that calls an external HTTP endpoint.
func NewHTTPValidator(url string, adminSecret string) *HTTPValidator {
	const timeout = 500 * time.Millisecond
	return &HTTPValidator{
		url:         url,
		adminSecret: adminSecret,
		timeout:     timeout,
		client:      &http.Client{Timeout: timeout},
	}
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid    bool   `json:"valid"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (v *HTTPValidator) Validate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	reqBody, err := json.Marshal(validateRequest{Token: token})
	if err != nil {
		return Identity{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(reqBody))
	if err != nil {
		return Identity{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.adminSecret != "" {
		req.Header.Set("X-Admin-Secret", v.adminSecret)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return Identity{}, ErrInvalidToken
	default:
		return Identity{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var authResp validateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&authResp); err != nil {
		return Identity{}, fmt.Errorf("%w: decode error: %v", ErrUnavailable, err)
	}
	if !authResp.Valid || authResp.Username == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{Username: authResp.Username, Role: authResp.Role}, nil
}

// NoopValidator trusts the token as the username (dev mode).
type NoopValidator struct{}

// NewNoopValidator creates a validator that allows all connections.
func NewNoopValidator() *NoopValidator {
	return &NoopValidator{}
}

func (v *NoopValidator) Validate(_ context.Context, token string) (Identity, error) {
	if strings.TrimSpace(token) == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{Username: token}, nil
}

// Chain tries each validator in order. A validator that rejects the token
// passes it to the next; any other error stops the chain.
type Chain []Validator

func (c Chain) Validate(ctx context.Context, token string) (Identity, error) {
	for _, v := range c {
		id, err := v.Validate(ctx, token)
		if errors.Is(err, ErrInvalidToken) {
			continue
		}
		return id, err
	}
	return Identity{}, ErrInvalidToken
}
