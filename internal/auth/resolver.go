package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Failure reasons passed to the resolver's failure hook.
const (
	FailureMalformed     = "malformed"
	FailureUnknownIssuer = "unknown_issuer"
	FailureInvalid       = "invalid"
)

// Resolver turns a raw bearer token into a Status. It peeks at the
// unverified iss claim only to pick a provider; the provider's validator
// then checks the token for real.
type Resolver struct {
	registry  *Registry
	onFailure func(reason string)
}

func NewResolver(registry *Registry, onFailure func(reason string)) *Resolver {
	if onFailure == nil {
		onFailure = func(string) {}
	}
	return &Resolver{registry: registry, onFailure: onFailure}
}

// ResolveAuth returns a guest for an empty token. Every other failure is
// ErrUnauthenticated wrapping the cause; it never degrades to guest.
func (r *Resolver) ResolveAuth(ctx context.Context, raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Guest(), nil
	}

	issuer, err := peekIssuer(raw)
	if err != nil {
		r.onFailure(FailureMalformed)
		return Status{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	p, err := r.registry.Resolve(issuer)
	if err != nil {
		r.onFailure(FailureUnknownIssuer)
		return Status{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	claims, err := p.Validator.Validate(ctx, raw)
	if err != nil {
		r.onFailure(FailureInvalid)
		return Status{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	return p.Extractor.Extract(claims), nil
}

func peekIssuer(raw string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return "", err
	}
	iss, err := claims.GetIssuer()
	if err != nil {
		return "", err
	}
	if iss == "" {
		return "", errors.New("token has no issuer")
	}
	return iss, nil
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
