package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerifierConfig configures token verification.
type VerifierConfig struct {
	// Issuer is the required iss claim, if set.
	Issuer string

	// Audience is the required aud claim, if set.
	Audience string

	// Methods lists accepted signing algorithms.
	// Default: RS256
	Methods []string

	// Leeway tolerates clock skew on time-based claims.
	Leeway time.Duration

	// TenantClaim names the claim carrying the tenant ID.
	TenantClaim string

	// RolesClaim names the claim carrying roles.
	// Default: "roles"
	RolesClaim string
}

// StaticKeyProvider returns the same key for every key ID.
type StaticKeyProvider struct {
	key any
}

// NewStaticKeyProvider creates a provider for key.
func NewStaticKeyProvider(key any) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(context.Context, string) (any, error) {
	return p.key, nil
}

// Verifier validates bearer JWTs.
type Verifier struct {
	config VerifierConfig
	keys   KeyProvider
	parser *jwt.Parser
}

// NewVerifier creates a verifier resolving signing keys through keys.
func NewVerifier(config VerifierConfig, keys KeyProvider) *Verifier {
	if len(config.Methods) == 0 {
		config.Methods = []string{jwt.SigningMethodRS256.Alg()}
	}
	if config.RolesClaim == "" {
		config.RolesClaim = "roles"
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(config.Methods),
		jwt.WithLeeway(config.Leeway),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &Verifier{
		config: config,
		keys:   keys,
		parser: jwt.NewParser(opts...),
	}
}

// Verify validates token and returns the identity it carries.
func (v *Verifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingCredentials
	}

	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return v.keys.GetKey(ctx, kid)
	})
	if err != nil {
		return nil, classify(err)
	}

	return v.identity(claims), nil
}

// classify maps parser errors onto the package sentinels, keeping the cause.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrKeyNotFound), errors.Is(err, ErrJWKSFetch):
		return err
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	default:
		return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
}

func (v *Verifier) identity(claims jwt.MapClaims) *Identity {
	id := &Identity{Claims: make(map[string]any, len(claims))}
	for k, val := range claims {
		id.Claims[k] = val
	}

	id.Principal, _ = claims.GetSubject()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		id.IssuedAt = iat.Time
	}
	if v.config.TenantClaim != "" {
		id.TenantID, _ = claims[v.config.TenantClaim].(string)
	}
	if roles, ok := claims[v.config.RolesClaim].([]any); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				id.Roles = append(id.Roles, s)
			}
		}
	}
	return id
}

var _ KeyProvider = (*StaticKeyProvider)(nil)
