package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimsExtractor turns the claims of a validated token into a Status. There
// is one implementation per token shape so nothing downstream needs to know
// which issuer signed the token.
type ClaimsExtractor interface {
	Extract(claims jwt.MapClaims) Status
}

// NativeExtractor reads tokens minted by IssueToken: a single string role
// plus email and name claims.
type NativeExtractor struct{}

func (NativeExtractor) Extract(claims jwt.MapClaims) Status {
	return NewStatus(
		ParseRole(stringClaim(claims, "role")),
		stringClaim(claims, "email"),
		stringClaim(claims, "name"),
	)
}

// FederatedExtractor reads tokens from an external directory: roles arrive
// as a list with a provider prefix (for example APPROLE_admin) and the email
// as preferred_username.
type FederatedExtractor struct {
	RolePrefix string
}

func (x FederatedExtractor) Extract(claims jwt.MapClaims) Status {
	role := RoleGuest
	for _, raw := range listClaim(claims, "roles") {
		r := ParseRole(stripPrefixFold(raw, x.RolePrefix))
		if r != RoleGuest {
			role = r
			break
		}
	}

	email := stringClaim(claims, "preferred_username")
	if email == "" {
		email = stringClaim(claims, "email")
	}
	return NewStatus(role, email, stringClaim(claims, "name"))
}

func stripPrefixFold(s, prefix string) string {
	s = strings.TrimSpace(s)
	if prefix != "" && len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):]
	}
	return s
}

func stringClaim(claims jwt.MapClaims, name string) string {
	v, _ := claims[name].(string)
	return strings.TrimSpace(v)
}

// listClaim accepts both a JSON array and a single string.
func listClaim(claims jwt.MapClaims, name string) []string {
	switch v := claims[name].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
