package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HMACValidator checks HS256 tokens minted by this service.
type HMACValidator struct {
	issuer string
	secret []byte
	now    func() time.Time
}

func NewHMACValidator(issuer, secret string) *HMACValidator {
	return &HMACValidator{issuer: issuer, secret: []byte(secret), now: time.Now}
}

func (v *HMACValidator) Validate(ctx context.Context, raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// NativeIssuer mints access tokens for the native provider.
type NativeIssuer struct {
	Issuer string
	Secret string
	TTL    time.Duration
	Now    func() time.Time
}

type nativeClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

func (i NativeIssuer) IssueToken(s Status) (string, error) {
	if s.IsGuest() {
		return "", errors.New("cannot issue a token for a guest")
	}
	now := time.Now().UTC()
	if i.Now != nil {
		now = i.Now().UTC()
	}
	claims := nativeClaims{
		Email: s.Email,
		Name:  s.Name,
		Role:  s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.Email,
			Issuer:    i.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(i.Secret))
}

// NativeProvider bundles the validator and extractor of the native issuer.
func NativeProvider(issuer, secret string) Provider {
	return Provider{
		Issuer:    issuer,
		Validator: NewHMACValidator(issuer, secret),
		Extractor: NativeExtractor{},
	}
}
