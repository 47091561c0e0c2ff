package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/jonwraymond/toolmemo/cache"
	"github.com/jonwraymond/toolmemo/memo"
)

// JWKSConfig configures the JWKS key provider.
type JWKSConfig struct {
	// URL is the JWKS endpoint URL.
	URL string

	// CacheTTL is how long a resolved key is reused.
	// Default: 1 hour
	CacheTTL time.Duration

	// MaxKeys bounds the number of resolved keys kept.
	// Default: 16
	MaxKeys int

	// HTTPClient performs JWKS requests.
	// Default: a client with a 30s timeout
	HTTPClient *http.Client

	// Options are passed to the memoized key lookup, for telemetry.
	Options []memo.Option
}

// KeyProvider resolves the key that verifies tokens signed under keyID.
type KeyProvider interface {
	GetKey(ctx context.Context, keyID string) (any, error)
}

// JWKSKeyProvider resolves RSA keys from a JWKS endpoint.
//
// Lookups are memoized per key ID. An unknown key ID is not cached, so a
// key added by rotation is found on the next request. When the endpoint is
// unreachable, keys from the last successful fetch are still served. Keys
// dropped from that fetch are not.
type JWKSKeyProvider struct {
	config JWKSConfig
	keys   *memo.Memoized1[string, *rsa.PublicKey]

	mu          sync.RWMutex
	lastFetched map[string]*rsa.PublicKey
}

// NewJWKSKeyProvider creates a provider for config.URL.
func NewJWKSKeyProvider(config JWKSConfig) (*JWKSKeyProvider, error) {
	if config.CacheTTL <= 0 {
		config.CacheTTL = time.Hour
	}
	if config.MaxKeys <= 0 {
		config.MaxKeys = 16
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	p := &JWKSKeyProvider{
		config:      config,
		lastFetched: make(map[string]*rsa.PublicKey),
	}

	opts := append([]memo.Option{memo.WithName("jwks_key"), memo.WithNamespace("auth")}, config.Options...)
	keys, err := memo.New1(cache.Config{TTL: config.CacheTTL, MaxSize: config.MaxKeys}, p.resolve, opts...)
	if err != nil {
		return nil, fmt.Errorf("auth: configure key cache: %w", err)
	}
	p.keys = keys
	return p, nil
}

// GetKey returns the RSA public key for keyID. An empty keyID resolves only
// when the endpoint publishes exactly one RSA key.
func (p *JWKSKeyProvider) GetKey(ctx context.Context, keyID string) (any, error) {
	key, err := p.keys.Get(ctx, keyID)
	if err == nil {
		return key, nil
	}
	if errors.Is(err, ErrJWKSFetch) {
		if key := p.fallback(keyID); key != nil {
			return key, nil
		}
	}
	return nil, err
}

// Stats returns the key lookup counters.
func (p *JWKSKeyProvider) Stats() memo.Stats {
	return p.keys.Stats()
}

// Invalidate drops every resolved key.
func (p *JWKSKeyProvider) Invalidate() {
	p.keys.ClearCache()
}

// resolve fetches the key set and picks keyID out of it.
func (p *JWKSKeyProvider) resolve(ctx context.Context, keyID string) (*rsa.PublicKey, error) {
	keys, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.lastFetched = keys
	p.mu.Unlock()

	if key := pick(keys, keyID); key != nil {
		return key, nil
	}
	return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, keyID)
}

func (p *JWKSKeyProvider) fallback(keyID string) *rsa.PublicKey {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return pick(p.lastFetched, keyID)
}

func pick(keys map[string]*rsa.PublicKey, keyID string) *rsa.PublicKey {
	if keyID != "" {
		return keys[keyID]
	}
	if len(keys) != 1 {
		return nil
	}
	for _, key := range keys {
		return key
	}
	return nil
}

// fetch downloads and parses the key set.
func (p *JWKSKeyProvider) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrJWKSFetch, err)
	}

	resp, err := p.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJWKSFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrJWKSFetch, resp.StatusCode)
	}

	var set jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrJWKSFetch, err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.Kty != "RSA" || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}
		key, err := parseRSAPublicKey(jwk)
		if err != nil {
			continue
		}
		keys[jwk.Kid] = key
	}
	return keys, nil
}

type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// parseRSAPublicKey converts a JWK to an RSA public key.
func parseRSAPublicKey(jwk jwkKey) (*rsa.PublicKey, error) {
	if jwk.N == "" || jwk.E == "" {
		return nil, errors.New("missing modulus or exponent")
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("decode n: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("decode e: %w", err)
	}

	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() < 2 || e.Int64() > 1<<31-1 {
		return nil, errors.New("exponent out of range")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}

var _ KeyProvider = (*JWKSKeyProvider)(nil)
