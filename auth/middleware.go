package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jonwraymond/toolmemo/observe"
)

const bearerPrefix = "Bearer "

// Middleware rejects requests without a valid bearer token and attaches the
// verified Identity to the request context. A nil logger disables logging.
func Middleware(v *Verifier, logger observe.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, ErrMissingCredentials)
				return
			}

			id, err := v.Verify(r.Context(), token)
			if err != nil {
				if logger != nil {
					logger.Warn(r.Context(), "token rejected",
						observe.Field{Key: "path", Value: r.URL.Path},
						observe.Field{Key: "error", Value: err},
					)
				}
				if errors.Is(err, ErrJWKSFetch) {
					http.Error(w, "authentication unavailable", http.StatusServiceUnavailable)
					return
				}
				unauthorized(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, err error) {
	desc := "invalid_token"
	if errors.Is(err, ErrMissingCredentials) {
		desc = "invalid_request"
	}
	w.Header().Set("WWW-Authenticate", `Bearer error="`+desc+`"`)
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}
