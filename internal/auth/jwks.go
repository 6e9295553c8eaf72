package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"slotbook/backend/internal/cache"
)

var ErrUnknownKey = errors.New("unknown signing key")

type JWKSet struct {
	Keys []JWK `json:"keys"`
}

type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (k JWK) RSAPublicKey() (*rsa.PublicKey, error) {
	if k.Kty != "RSA" {
		return nil, fmt.Errorf("unsupported key type %q", k.Kty)
	}
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	exp := new(big.Int).SetBytes(e)
	if len(n) == 0 || !exp.IsInt64() || exp.Int64() < 3 {
		return nil, errors.New("invalid rsa key")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
}

// Fetcher retrieves a remote document. fresh bypasses any cache.
type Fetcher interface {
	Fetch(ctx context.Context, url string, fresh bool) ([]byte, error)
}

const maxDocumentBytes = 1 << 20

// HTTPFetcher fetches over HTTP and keeps the bodies in a Cache.
type HTTPFetcher struct {
	client *http.Client
	cache  cache.Cache
	ttl    time.Duration
}

func NewHTTPFetcher(client *http.Client, c cache.Cache, ttl time.Duration) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if c == nil {
		c = cache.Noop{}
	}
	return &HTTPFetcher{client: client, cache: c, ttl: ttl}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string, fresh bool) ([]byte, error) {
	key := "doc:" + url
	if !fresh {
		if body, err := f.cache.Get(ctx, key); err == nil {
			return body, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, err
	}

	// a cache outage only costs an extra fetch next time
	_ = f.cache.Set(ctx, key, body, f.ttl)
	return body, nil
}

// KeySet resolves key ids against a JWKS document. An unknown kid triggers
// one fresh fetch, at most once per minRefresh whether or not the previous
// attempt succeeded, so rotated keys are picked up without restarting and
// an unreachable endpoint is not hammered. Concurrent misses share one
// fetch, and lookups of known kids never wait on the network.
type KeySet struct {
	url     string
	fetcher Fetcher
	group   singleflight.Group

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	lastAttempt time.Time
	minRefresh  time.Duration
	now         func() time.Time
}

func NewKeySet(url string, fetcher Fetcher) *KeySet {
	return &KeySet{
		url:        url,
		fetcher:    fetcher,
		minRefresh: 30 * time.Second,
		now:        time.Now,
	}
}

func (s *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok := s.lookup(kid); ok {
		return key, nil
	}

	// the shared fetch outlives any single caller's cancellation
	_, err, _ := s.group.Do(s.url, func() (any, error) {
		return nil, s.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	if key, ok := s.lookup(kid); ok {
		return key, nil
	}
	return nil, ErrUnknownKey
}

func (s *KeySet) lookup(kid string) (*rsa.PublicKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[kid]
	return key, ok
}

// refresh records the attempt before fetching and swaps the new keys in
// only on success. Inside the backoff window it is a no-op.
func (s *KeySet) refresh(ctx context.Context) error {
	s.mu.Lock()
	now := s.now()
	if !s.lastAttempt.IsZero() && now.Sub(s.lastAttempt) < s.minRefresh {
		s.mu.Unlock()
		return nil
	}
	s.lastAttempt = now
	fresh := s.keys != nil
	s.mu.Unlock()

	keys, err := s.load(ctx, fresh)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.keys = keys
	s.mu.Unlock()
	return nil
}

func (s *KeySet) load(ctx context.Context, fresh bool) (map[string]*rsa.PublicKey, error) {
	body, err := s.fetcher.Fetch(ctx, s.url, fresh)
	if err != nil {
		return nil, err
	}
	var set JWKSet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		pub, err := k.RSAPublicKey()
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	return keys, nil
}

// RSAValidator checks RS256 tokens of one federated issuer.
type RSAValidator struct {
	issuer   string
	audience string
	keys     *KeySet
	now      func() time.Time
}

func NewRSAValidator(issuer, audience string, keys *KeySet) *RSAValidator {
	return &RSAValidator{issuer: issuer, audience: audience, keys: keys, now: time.Now}
}

func (v *RSAValidator) Validate(ctx context.Context, raw string) (jwt.MapClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		return v.keys.Key(ctx, kid)
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
