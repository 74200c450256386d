package googletoken

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/oauthkit/google-token-go/profilecache"
)

const (
	defaultAuthorizationURL = "https://accounts.google.com/o/oauth2/auth"
	defaultTokenURL         = "https://accounts.google.com/o/oauth2/token"
	defaultAPIVersion       = "v3"

	defaultCodeField         = "code"
	defaultAccessTokenField  = "access_token"
	defaultRefreshTokenField = "refresh_token"

	defaultTimeout  = 15 * time.Second
	defaultCacheTTL = 5 * time.Minute
)

func defaultProfileURL(apiVersion string) string {
	return fmt.Sprintf("https://www.googleapis.com/oauth2/%s/userinfo", apiVersion)
}

// Option configures optional aspects of a Strategy. Defaults are applied in
// New; an option that is never supplied leaves its field unset, so defaults
// apply only to genuinely unconfigured fields.
type Option func(*settings)

type settings struct {
	authorizationURL  string
	tokenURL          string
	profileURL        string
	profileURLSet     bool
	apiVersion        string
	codeField         string
	accessTokenField  string
	refreshTokenField string

	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger

	source        ProfileSource
	cache         profilecache.Cache
	cacheTTL      time.Duration
	exchangeCodes bool

	verifyReq VerifyRequestFunc
}

// WithAuthorizationURL overrides the provider's authorization endpoint.
func WithAuthorizationURL(u string) Option {
	return func(s *settings) { s.authorizationURL = u }
}

// WithTokenURL overrides the provider's token endpoint.
func WithTokenURL(u string) Option {
	return func(s *settings) { s.tokenURL = u }
}

// WithProfileURL overrides the userinfo endpoint the profile is fetched
// from. Takes precedence over WithAPIVersion. The supplied URL is validated
// as-is; an empty value is rejected rather than replaced with the default.
func WithProfileURL(u string) Option {
	return func(s *settings) {
		s.profileURL = u
		s.profileURLSet = true
	}
}

// WithAPIVersion selects the userinfo endpoint version used to build the
// default profile URL. Defaults to "v3".
func WithAPIVersion(v string) Option {
	return func(s *settings) { s.apiVersion = v }
}

// WithCodeField renames the authorization-code request field. Defaults to
// "code"; only consulted when WithCodeExchange is enabled.
func WithCodeField(name string) Option {
	return func(s *settings) { s.codeField = name }
}

// WithAccessTokenField renames the access-token request field. Defaults to
// "access_token".
func WithAccessTokenField(name string) Option {
	return func(s *settings) { s.accessTokenField = name }
}

// WithRefreshTokenField renames the refresh-token request field. Defaults
// to "refresh_token".
func WithRefreshTokenField(name string) Option {
	return func(s *settings) { s.refreshTokenField = name }
}

// WithHTTPClient supplies the HTTP client used for outbound calls. The
// default client carries a 15s timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// WithTimeout bounds each outbound call when no custom HTTP client is
// supplied. Expiry surfaces as a transport failure. A non-positive duration
// selects the 15s default; disabling the timeout entirely requires
// WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithLogger sets the logger used for attempt diagnostics. Defaults to
// slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithProfileSource replaces the userinfo round trip with an alternative
// ProfileSource, such as an idtoken.Verifier.
func WithProfileSource(src ProfileSource) Option {
	return func(s *settings) { s.source = src }
}

// WithProfileCache consults the cache before the profile source and stores
// fresh profiles after a successful fetch. A non-positive ttl selects the
// default of 5 minutes. Cache faults degrade to a fetch, never to a
// terminal error.
func WithProfileCache(c profilecache.Cache, ttl time.Duration) Option {
	return func(s *settings) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithCodeExchange lets Authenticate fall back to the configured code field
// when no access token is resolvable, trading the authorization code for
// tokens at the token endpoint before proceeding. Disabled by default.
func WithCodeExchange() Option {
	return func(s *settings) { s.exchangeCodes = true }
}

// WithRequestPassthrough supplies a verification function that also
// receives the original request, for applications that key verification on
// request attributes. When set, it replaces the verify function passed to
// New (which may then be nil).
func WithRequestPassthrough(fn VerifyRequestFunc) Option {
	return func(s *settings) { s.verifyReq = fn }
}

// Config holds the provider credentials and endpoint overrides in a form
// loadable from the environment.
type Config struct {
	// ClientID is the OAuth client identifier. ENV: GOOGLE_CLIENT_ID
	ClientID string `env:"GOOGLE_CLIENT_ID,required"`
	// ClientSecret is the OAuth client secret. ENV: GOOGLE_CLIENT_SECRET
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET,required"`
	// AuthorizationURL overrides the authorization endpoint. ENV: GOOGLE_AUTHORIZATION_URL
	AuthorizationURL string `env:"GOOGLE_AUTHORIZATION_URL"`
	// TokenURL overrides the token endpoint. ENV: GOOGLE_TOKEN_URL
	TokenURL string `env:"GOOGLE_TOKEN_URL"`
	// ProfileURL overrides the userinfo endpoint. ENV: GOOGLE_PROFILE_URL
	ProfileURL string `env:"GOOGLE_PROFILE_URL"`
	// APIVersion selects the default userinfo endpoint version. ENV: GOOGLE_API_VERSION
	APIVersion string `env:"GOOGLE_API_VERSION,default=v3"`
}

// ConfigFromEnv populates a Config from the environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	return cfg, nil
}

// NewFromEnv constructs a Strategy from environment configuration. Options
// are applied after the environment-derived ones and win on conflict.
func NewFromEnv(verify VerifyFunc, opts ...Option) (*Strategy, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, verify, opts...)
}

// NewFromConfig constructs a Strategy from a Config.
func NewFromConfig(cfg Config, verify VerifyFunc, opts ...Option) (*Strategy, error) {
	var fromCfg []Option
	if cfg.AuthorizationURL != "" {
		fromCfg = append(fromCfg, WithAuthorizationURL(cfg.AuthorizationURL))
	}
	if cfg.TokenURL != "" {
		fromCfg = append(fromCfg, WithTokenURL(cfg.TokenURL))
	}
	if cfg.ProfileURL != "" {
		fromCfg = append(fromCfg, WithProfileURL(cfg.ProfileURL))
	}
	if cfg.APIVersion != "" {
		fromCfg = append(fromCfg, WithAPIVersion(cfg.APIVersion))
	}
	return New(cfg.ClientID, cfg.ClientSecret, verify, append(fromCfg, opts...)...)
}

// validateEndpoint requires a well-formed absolute URL.
func validateEndpoint(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
	}
	return nil
}
