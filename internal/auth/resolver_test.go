package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type fakeValidator struct {
	validateFn func(ctx context.Context, raw string) (jwt.MapClaims, error)
}

func (f *fakeValidator) Validate(ctx context.Context, raw string) (jwt.MapClaims, error) {
	if f.validateFn == nil {
		panic("Validate not configured")
	}
	return f.validateFn(ctx, raw)
}

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString error: %v", err)
	}
	return s
}

func TestResolveAuth_EmptyTokenIsGuest(t *testing.T) {
	r := NewResolver(NewRegistry(), nil)
	s, err := r.ResolveAuth(context.Background(), "  ")
	if err != nil {
		t.Fatalf("ResolveAuth error: %v", err)
	}
	if !s.IsGuest() {
		t.Fatalf("status = %+v, want guest", s)
	}
}

func TestResolveAuth_NativeRoundTrip(t *testing.T) {
	registry := NewRegistry(NativeProvider("slotbook", "secret"))
	issuer := NativeIssuer{Issuer: "slotbook", Secret: "secret", TTL: time.Hour}

	token, err := issuer.IssueToken(Status{Role: RoleLecturer, Email: "l@example.com", Name: "Lee"})
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	s, err := NewResolver(registry, nil).ResolveAuth(context.Background(), token)
	if err != nil {
		t.Fatalf("ResolveAuth error: %v", err)
	}
	want := Status{Role: RoleLecturer, Email: "l@example.com", Name: "Lee"}
	if s != want {
		t.Fatalf("status = %+v, want %+v", s, want)
	}
}

func TestResolveAuth_FailuresAreUnauthenticated(t *testing.T) {
	registry := NewRegistry(NativeProvider("slotbook", "secret"))

	var mu sync.Mutex
	var reasons []string
	r := NewResolver(registry, func(reason string) {
		mu.Lock()
		defer mu.Unlock()
		reasons = append(reasons, reason)
	})

	now := time.Now()
	cases := []struct {
		name   string
		token  string
		reason string
	}{
		{"garbage", "not-a-jwt", FailureMalformed},
		{"no issuer", signHS256(t, "secret", jwt.MapClaims{"email": "a@example.com", "role": "admin", "exp": now.Add(time.Hour).Unix()}), FailureMalformed},
		{"unknown issuer", signHS256(t, "secret", jwt.MapClaims{"iss": "https://evil.example.com", "email": "a@example.com", "role": "admin", "exp": now.Add(time.Hour).Unix()}), FailureUnknownIssuer},
		{"issuer prefix is not a match", signHS256(t, "secret", jwt.MapClaims{"iss": "slotbook-extra", "exp": now.Add(time.Hour).Unix()}), FailureUnknownIssuer},
		{"wrong secret", signHS256(t, "other", jwt.MapClaims{"iss": "slotbook", "email": "a@example.com", "role": "admin", "exp": now.Add(time.Hour).Unix()}), FailureInvalid},
		{"expired", signHS256(t, "secret", jwt.MapClaims{"iss": "slotbook", "email": "a@example.com", "role": "admin", "exp": now.Add(-time.Second).Unix()}), FailureInvalid},
		{"no expiry", signHS256(t, "secret", jwt.MapClaims{"iss": "slotbook", "email": "a@example.com", "role": "admin"}), FailureInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mu.Lock()
			reasons = nil
			mu.Unlock()

			s, err := r.ResolveAuth(context.Background(), tc.token)
			if !errors.Is(err, ErrUnauthenticated) {
				t.Fatalf("err = %v, want %v", err, ErrUnauthenticated)
			}
			if s.IsAdmin() {
				t.Fatalf("failed resolution granted admin")
			}

			mu.Lock()
			defer mu.Unlock()
			if len(reasons) != 1 || reasons[0] != tc.reason {
				t.Fatalf("reasons = %v, want [%s]", reasons, tc.reason)
			}
		})
	}
}

func TestResolveAuth_DispatchesByIssuer(t *testing.T) {
	var called []string
	mk := func(name string) *fakeValidator {
		return &fakeValidator{validateFn: func(ctx context.Context, raw string) (jwt.MapClaims, error) {
			called = append(called, name)
			return jwt.MapClaims{"roles": []any{"X_Student"}, "preferred_username": name + "@example.com"}, nil
		}}
	}

	registry := NewRegistry(
		Provider{Issuer: "https://a.example.com", Validator: mk("a"), Extractor: FederatedExtractor{RolePrefix: "X_"}},
		Provider{Issuer: "https://b.example.com", Validator: mk("b"), Extractor: FederatedExtractor{RolePrefix: "X_"}},
	)

	token := signHS256(t, "irrelevant", jwt.MapClaims{"iss": "https://b.example.com"})
	s, err := NewResolver(registry, nil).ResolveAuth(context.Background(), token)
	if err != nil {
		t.Fatalf("ResolveAuth error: %v", err)
	}
	if len(called) != 1 || called[0] != "b" {
		t.Fatalf("called = %v, want [b]", called)
	}
	if !s.IsStudent() || s.Email != "b@example.com" {
		t.Fatalf("status = %+v", s)
	}
}

func TestRegistry_ReplaceSwapsSnapshot(t *testing.T) {
	registry := NewRegistry(NativeProvider("slotbook", "secret"), Provider{Issuer: "https://old.example.com"})
	if registry.Len() != 2 {
		t.Fatalf("Len = %d, want 2", registry.Len())
	}

	registry.Replace([]Provider{NativeProvider("slotbook", "secret"), {Issuer: "https://new.example.com"}})

	if _, err := registry.Resolve("https://old.example.com"); !errors.Is(err, ErrUnknownIssuer) {
		t.Fatalf("old issuer err = %v, want %v", err, ErrUnknownIssuer)
	}
	if _, err := registry.Resolve("https://new.example.com"); err != nil {
		t.Fatalf("new issuer err = %v", err)
	}
	got := registry.Issuers()
	if len(got) != 2 || got[0] != "https://new.example.com" || got[1] != "slotbook" {
		t.Fatalf("Issuers = %v", got)
	}
}

func TestRegistry_ConcurrentResolveDuringReplace(t *testing.T) {
	registry := NewRegistry(NativeProvider("slotbook", "secret"))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if _, err := registry.Resolve("slotbook"); err != nil {
					t.Errorf("Resolve error during swap: %v", err)
					return
				}
			}
		}()
	}
	for i := 0; i < 100; i++ {
		registry.Replace([]Provider{NativeProvider("slotbook", "secret")})
	}
	close(stop)
	wg.Wait()
}

func TestIssueToken_RejectsGuest(t *testing.T) {
	if _, err := (NativeIssuer{Issuer: "slotbook", Secret: "s", TTL: time.Minute}).IssueToken(Guest()); err == nil {
		t.Fatalf("expected error")
	}
}
