// Package auth verifies bearer JWTs for services that expose memoized
// functions over HTTP.
//
// JWKSKeyProvider resolves signing keys by key ID. Each lookup is memoized:
// concurrent requests for the same key ID share one JWKS fetch, resolved
// keys are reused until their TTL passes, and failed fetches are retried on
// the next request.
//
//	keys, err := auth.NewJWKSKeyProvider(auth.JWKSConfig{URL: "https://issuer.example/.well-known/jwks.json"})
//	if err != nil {
//	    return err
//	}
//	verifier := auth.NewVerifier(auth.VerifierConfig{Issuer: "https://issuer.example"}, keys)
//	handler = auth.Middleware(verifier, logger)(handler)
package auth
