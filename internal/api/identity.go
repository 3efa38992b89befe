package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// ErrInvalidIdentity is returned for credentials that are present but
// malformed or unknown.
var ErrInvalidIdentity = errors.New("invalid identity")

// IdentityProvider turns a request into an owner ID. It returns 0 and no
// error for anonymous requests.
type IdentityProvider interface {
	Identify(r *http.Request) (int64, error)
}

// HeaderIdentity trusts a numeric user ID carried in a request header,
// X-User-ID by default. It is meant to sit behind an authenticating proxy.
type HeaderIdentity struct {
	Header string
}

func (h HeaderIdentity) Identify(r *http.Request) (int64, error) {
	header := h.Header
	if header == "" {
		header = "X-User-ID"
	}
	raw := strings.TrimSpace(r.Header.Get(header))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidIdentity
	}
	return id, nil
}

// TokenLookup maps a bearer token to a user ID.
type TokenLookup func(ctx context.Context, token string) (int64, error)

// StaticTokens returns a TokenLookup over a fixed token table.
func StaticTokens(tokens map[string]int64) TokenLookup {
	return func(_ context.Context, token string) (int64, error) {
		if id, ok := tokens[token]; ok {
			return id, nil
		}
		return 0, errors.New("unknown token")
	}
}

// BearerIdentity reads "Authorization: Bearer <token>" and resolves the
// token with Lookup.
type BearerIdentity struct {
	Lookup TokenLookup
}

func (b BearerIdentity) Identify(r *http.Request) (int64, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return 0, nil
	}
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return 0, ErrInvalidIdentity
	}
	id, err := b.Lookup(r.Context(), strings.TrimSpace(token))
	if err != nil {
		return 0, errors.Join(ErrInvalidIdentity, err)
	}
	if id <= 0 {
		return 0, ErrInvalidIdentity
	}
	return id, nil
}
