package secret

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jonwraymond/toolmemo/cache"
	"github.com/jonwraymond/toolmemo/memo"
)

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// Strict rejects empty provider values.
	Strict bool

	// CacheTTL is how long a resolved reference is reused.
	// Default: 5 minutes
	CacheTTL time.Duration

	// MaxEntries bounds the number of resolved references kept.
	// Default: 256
	MaxEntries int

	// Options are passed to the memoized lookup, for telemetry.
	Options []memo.Option
}

// Resolver resolves secret references through registered providers.
type Resolver struct {
	config ResolverConfig

	mu        sync.RWMutex
	providers map[string]Provider

	lookups *memo.Memoized2[string, string, string]
}

// NewResolver creates a resolver with the given providers.
func NewResolver(config ResolverConfig, providers ...Provider) (*Resolver, error) {
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 256
	}

	r := &Resolver{
		config:    config,
		providers: make(map[string]Provider),
	}
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}

	opts := append([]memo.Option{memo.WithName("lookup"), memo.WithNamespace("secret")}, config.Options...)
	lookups, err := memo.New2(cache.Config{TTL: config.CacheTTL, MaxSize: config.MaxEntries}, r.lookup, opts...)
	if err != nil {
		return nil, fmt.Errorf("secret: configure lookup cache: %w", err)
	}
	r.lookups = lookups
	return r, nil
}

// Register adds provider under its name. Nil providers are ignored.
func (r *Resolver) Register(provider Provider) error {
	if provider == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	name := provider.Name()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateProvider, name)
	}
	r.providers[name] = provider
	return nil
}

// ResolveValue expands environment variables in value, then resolves a
// whole-value or inline secret reference.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}
	if provider, ref, ok := ParseSecretRef(expanded); ok {
		return r.lookups.Get(ctx, provider, ref)
	}
	return r.resolveInline(ctx, expanded)
}

// ResolveMap resolves every value of input.
func (r *Resolver) ResolveMap(ctx context.Context, input map[string]string) (map[string]string, error) {
	if input == nil {
		return nil, nil
	}
	out := make(map[string]string, len(input))
	for k, v := range input {
		resolved, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

// Forget drops every resolved reference, so the next resolution asks the
// providers again.
func (r *Resolver) Forget() {
	r.lookups.ClearCache()
}

// Stats returns the lookup counters.
func (r *Resolver) Stats() memo.Stats {
	return r.lookups.Stats()
}

// ParseSecretRef parses a whole-value reference "secretref:<provider>:<ref>".
func ParseSecretRef(value string) (provider string, ref string, ok bool) {
	const prefix = "secretref:"
	if !strings.HasPrefix(value, prefix) {
		return "", "", false
	}
	provider, ref, found := strings.Cut(strings.TrimPrefix(value, prefix), ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

// lookup is the memoized producer for one (provider, ref) pair.
func (r *Resolver) lookup(ctx context.Context, providerName, ref string) (string, error) {
	if strings.TrimSpace(providerName) == "" || strings.TrimSpace(ref) == "" {
		return "", ErrInvalidRef
	}

	r.mu.RLock()
	provider, ok := r.providers[providerName]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, providerName)
	}

	resolved, err := provider.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.config.Strict && resolved == "" {
		return "", fmt.Errorf("%w: %q", ErrEmptyValue, providerName)
	}
	return resolved, nil
}

var inlineSecretRefPattern = regexp.MustCompile(`secretref:([^:\s]+):([^\s]+)`)

func (r *Resolver) resolveInline(ctx context.Context, value string) (string, error) {
	matches := inlineSecretRefPattern.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return value, nil
	}

	out := value
	// Replace from the end so earlier indexes stay valid.
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		resolved, err := r.lookups.Get(ctx, out[m[2]:m[3]], out[m[4]:m[5]])
		if err != nil {
			return "", err
		}
		out = out[:m[0]] + resolved + out[m[1]:]
	}
	return out, nil
}
