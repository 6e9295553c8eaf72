package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Metadata is the subset of an OpenID configuration document we use.
type Metadata struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// Federation discovers the issuers trusted for an external directory tenant.
type Federation struct {
	MetadataURL  string
	TenantID     string
	ExtraIssuers []string
	Audience     string
	RolePrefix   string
	Fetcher      Fetcher
}

// Discover fetches the metadata document and returns one provider per
// trusted issuer. All providers share a single key set.
func (f Federation) Discover(ctx context.Context, fresh bool) ([]Provider, error) {
	if f.MetadataURL == "" {
		return nil, errors.New("federation metadata url is required")
	}

	body, err := f.Fetcher.Fetch(ctx, f.MetadataURL, fresh)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if meta.JWKSURI == "" {
		return nil, errors.New("metadata has no jwks_uri")
	}

	keys := NewKeySet(meta.JWKSURI, f.Fetcher)
	extractor := FederatedExtractor{RolePrefix: f.RolePrefix}

	issuers := TrustedIssuers(meta.Issuer, f.TenantID, f.ExtraIssuers)
	if len(issuers) == 0 {
		return nil, errors.New("no trusted issuers discovered")
	}
	out := make([]Provider, 0, len(issuers))
	for _, iss := range issuers {
		out = append(out, Provider{
			Issuer:    iss,
			Validator: NewRSAValidator(iss, f.Audience, keys),
			Extractor: extractor,
		})
	}
	return out, nil
}

// TrustedIssuers merges the metadata issuer, the issuers derived from the
// tenant id and any configured extras, without duplicates. A {tenantid}
// placeholder in the metadata issuer is filled in.
func TrustedIssuers(metadataIssuer, tenantID string, extra []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(iss string) {
		iss = strings.TrimSpace(iss)
		if iss == "" || seen[iss] {
			return
		}
		seen[iss] = true
		out = append(out, iss)
	}

	tenantID = strings.TrimSpace(tenantID)
	if tenantID != "" {
		metadataIssuer = strings.ReplaceAll(metadataIssuer, "{tenantid}", tenantID)
	}
	if !strings.Contains(metadataIssuer, "{tenantid}") {
		add(metadataIssuer)
	}
	if tenantID != "" {
		add("https://login.microsoftonline.com/" + tenantID + "/v2.0")
		add("https://sts.windows.net/" + tenantID + "/")
	}
	for _, iss := range extra {
		add(iss)
	}
	return out
}
