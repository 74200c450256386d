// Package idtoken builds normalized profiles from Google-issued OpenID
// Connect ID tokens, verified locally against Google's JWKS instead of
// calling the userinfo endpoint. A Verifier implements
// googletoken.ProfileSource, so it can replace the default userinfo round
// trip via googletoken.WithProfileSource for clients that present an ID
// token rather than an opaque access token.
package idtoken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	"github.com/oauthkit/google-token-go/googletoken"
)

const (
	// DefaultIssuer is the issuer Google places in ID tokens.
	DefaultIssuer = "https://accounts.google.com"
	// DefaultJWKSURL serves Google's current signing keys.
	DefaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// ErrInvalidToken indicates the presented ID token failed verification
// (signature, issuer, audience, or time-based claims).
var ErrInvalidToken = errors.New("idtoken: invalid token")

// Config controls ID token validation.
type Config struct {
	// ClientID is the expected audience ("aud") claim. Required.
	ClientID string
	// Issuer is the expected issuer. Defaults to DefaultIssuer.
	Issuer string
	// JWKSURL locates the signing keys. Defaults to DefaultJWKSURL.
	JWKSURL string
	// AllowedAlgs restricts JWS algorithms. "none" is never allowed.
	// Defaults to ["RS256"].
	AllowedAlgs []string
	// Leeway is clock-skew tolerance for time-based claims.
	Leeway time.Duration
}

// DefaultConfig returns a Config with Google's production endpoints and
// safe algorithm/leeway defaults.
func DefaultConfig() *Config {
	return &Config{
		Issuer:      DefaultIssuer,
		JWKSURL:     DefaultJWKSURL,
		AllowedAlgs: []string{"RS256"},
		Leeway:      60 * time.Second,
	}
}

// Verifier validates ID tokens and maps their claims onto the normalized
// profile shape. Safe for concurrent use; JWKS keys auto-refresh.
type Verifier struct {
	cfg     *Config
	keyfunc jwt.Keyfunc
}

// New constructs a Verifier for cfg. The context bounds JWKS
// initialization and background refresh.
func New(ctx context.Context, cfg *Config) (*Verifier, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = DefaultJWKSURL
	}
	if len(cfg.AllowedAlgs) == 0 {
		cfg.AllowedAlgs = []string{"RS256"}
	}

	kf, err := keyfunc.NewDefaultCtx(ctx, []string{cfg.JWKSURL})
	if err != nil {
		return nil, fmt.Errorf("jwks init failed: %w", err)
	}

	return &Verifier{
		cfg: cfg,
		keyfunc: func(t *jwt.Token) (any, error) {
			alg := t.Method.Alg()
			for _, a := range cfg.AllowedAlgs {
				if alg == a {
					return kf.Keyfunc(t)
				}
			}
			return nil, fmt.Errorf("disallowed alg: %s", alg)
		},
	}, nil
}

// NewFromDiscovery resolves the issuer's JWKS endpoint via OpenID Connect
// discovery and constructs a Verifier from it. Useful for Google testing
// doubles and for deployments pinned to a discovery document.
func NewFromDiscovery(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	if issuer == "" {
		return nil, errors.New("issuer is required")
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery failed: %w", err)
	}
	var meta struct {
		JwksURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&meta); err != nil {
		return nil, fmt.Errorf("invalid discovery metadata: %w", err)
	}
	if meta.JwksURI == "" {
		return nil, errors.New("discovery incomplete: missing jwks_uri")
	}
	cfg := DefaultConfig()
	cfg.ClientID = clientID
	cfg.Issuer = issuer
	cfg.JWKSURL = meta.JwksURI
	return New(ctx, cfg)
}

// Profile verifies the raw ID token and maps its claims onto the fixed
// profile shape. Implements googletoken.ProfileSource.
func (v *Verifier) Profile(ctx context.Context, rawToken string) (*googletoken.Profile, error) {
	if rawToken == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(v.cfg.AllowedAlgs),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithAudience(v.cfg.ClientID),
		jwt.WithLeeway(v.cfg.Leeway),
	)
	parsed, err := parser.Parse(rawToken, v.keyfunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid claims type", ErrInvalidToken)
	}
	if sub, _ := claims["sub"].(string); sub == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}

	body, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return googletoken.NormalizeProfile(body)
}
