package auth

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnknownIssuer = errors.New("unknown token issuer")

// Validator verifies a raw token's signature and registered claims.
type Validator interface {
	Validate(ctx context.Context, raw string) (jwt.MapClaims, error)
}

// Provider pairs the validator and the claims shape of one issuer.
type Provider struct {
	Issuer    string
	Validator Validator
	Extractor ClaimsExtractor
}

// Registry maps issuer strings to providers. Lookups read an immutable
// snapshot; writers build a new map and swap it in.
type Registry struct {
	mu        sync.Mutex
	providers atomic.Pointer[map[string]Provider]
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{}
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Issuer] = p
	}
	r.providers.Store(&m)
	return r
}

// Replace swaps in exactly the given providers.
func (r *Registry) Replace(providers []Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]Provider, len(providers))
	for _, p := range providers {
		next[p.Issuer] = p
	}
	r.providers.Store(&next)
}

// Resolve matches issuer exactly. There is no prefix or wildcard matching.
func (r *Registry) Resolve(issuer string) (Provider, error) {
	p, ok := (*r.providers.Load())[issuer]
	if !ok || issuer == "" {
		return Provider{}, ErrUnknownIssuer
	}
	return p, nil
}

func (r *Registry) Issuers() []string {
	m := *r.providers.Load()
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Len() int {
	return len(*r.providers.Load())
}
