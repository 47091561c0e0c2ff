package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolmemo/auth"
	"github.com/jonwraymond/toolmemo/health"
	"github.com/jonwraymond/toolmemo/internal/digest"
	"github.com/jonwraymond/toolmemo/memo"
	"github.com/jonwraymond/toolmemo/observe"
	"github.com/jonwraymond/toolmemo/secret"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve memoized file digests over HTTP",
		Long: `Serve GET /digest?path=FILE for files under the configured root,
with health endpoints and, when the prometheus exporter is enabled, /metrics.`,
		Args: cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, _ *cobra.Command, _ []string) error {
			srv, err := a.newServer(ctx)
			if err != nil {
				return err
			}
			return srv.run(ctx)
		}),
	}
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().String("root", "", "directory digests are served from (default .)")
	_ = a.viper.BindPFlag("serve.addr", cmd.Flags().Lookup("addr"))
	_ = a.viper.BindPFlag("serve.root", cmd.Flags().Lookup("root"))
	return cmd
}

// server serves digests of files under root.
type server struct {
	http   *http.Server
	logger observe.Logger
}

func (a *app) newServer(ctx context.Context) (*server, error) {
	logger := a.observer.Logger()

	d, err := newDigester(a.config, a.observer, a.produce)
	if err != nil {
		return nil, err
	}

	agg := health.NewAggregator(health.AggregatorConfig{})
	agg.Register("digest", health.NewMemoChecker("digest", d, health.MemoCheckerConfig{}))

	verifier, keys, err := a.newVerifier(ctx)
	if err != nil {
		return nil, err
	}
	if keys != nil {
		agg.Register("jwks", health.NewMemoChecker("jwks", keys, health.MemoCheckerConfig{}))
	}

	var handler http.Handler = &digestHandler{root: a.config.Serve.Root, digester: d, logger: logger}
	if verifier != nil {
		handler = auth.Middleware(verifier, logger)(handler)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /digest", handler)
	health.RegisterHandlers(mux, agg)
	if a.config.Metrics.Enabled && a.config.Metrics.Exporter == "prometheus" {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	return &server{
		http: &http.Server{
			Addr:              a.config.Serve.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}, nil
}

// run serves until ctx is done, then shuts down gracefully.
func (s *server) run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "server listening", observe.Field{Key: "addr", Value: s.http.Addr})
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info(ctx, "server stopped")
	return nil
}

// newVerifier builds the bearer token verifier from the auth settings. It
// returns a nil verifier when authentication is not configured, and the JWKS
// provider when keys come from an endpoint.
func (a *app) newVerifier(ctx context.Context) (*auth.Verifier, *auth.JWKSKeyProvider, error) {
	cfg := a.config.Serve.Auth
	vcfg := auth.VerifierConfig{Issuer: cfg.Issuer, Audience: cfg.Audience}
	opts := []memo.Option{memo.WithObserver(a.observer)}

	switch {
	case cfg.JWKSURL != "":
		keys, err := auth.NewJWKSKeyProvider(auth.JWKSConfig{URL: cfg.JWKSURL, Options: opts})
		if err != nil {
			return nil, nil, err
		}
		return auth.NewVerifier(vcfg, keys), keys, nil

	case cfg.HMACSecret != "":
		resolver, err := secret.NewResolver(secret.ResolverConfig{Strict: true, Options: opts},
			secret.EnvProvider{}, secret.FileProvider{})
		if err != nil {
			return nil, nil, err
		}
		key, err := resolver.ResolveValue(ctx, cfg.HMACSecret)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve hmac secret: %w", err)
		}
		vcfg.Methods = []string{jwt.SigningMethodHS256.Alg()}
		return auth.NewVerifier(vcfg, auth.NewStaticKeyProvider([]byte(key))), nil, nil

	default:
		return nil, nil, nil
	}
}

// digestResponse is the JSON body of a successful /digest request.
type digestResponse struct {
	Path      string `json:"path"`
	Algorithm string `json:"algorithm"`
	Digest    string `json:"digest"`
}

type digestHandler struct {
	root     string
	digester *digester
	logger   observe.Logger
}

func (h *digestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("path")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing path parameter")
		return
	}
	name = filepath.Clean(filepath.FromSlash(name))
	if !filepath.IsLocal(name) {
		writeError(w, http.StatusBadRequest, "path must be relative to the served root")
		return
	}

	sum, err := h.digester.Digest(r.Context(), filepath.Join(h.root, name))
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		writeError(w, http.StatusNotFound, "file not found")
		return
	case errors.Is(err, digest.ErrNotRegular):
		writeError(w, http.StatusBadRequest, "not a regular file")
		return
	default:
		h.logger.Error(r.Context(), "digest failed",
			observe.Field{Key: "path", Value: name},
			observe.Field{Key: "error", Value: err},
		)
		writeError(w, http.StatusInternalServerError, "digest failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(digestResponse{
		Path:      filepath.ToSlash(name),
		Algorithm: "sha256",
		Digest:    sum,
	})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
