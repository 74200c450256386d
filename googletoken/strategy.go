package googletoken

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/oauthkit/google-token-go/internal/logctx"
	"github.com/oauthkit/google-token-go/profilecache"
)

// TokenPair is the credential pair resolved from one request: a required
// access token and an optional refresh token. It is constructed per attempt
// and discarded once verification completes.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// ProfileSource produces a normalized Profile for an access token.
// Implementations must be safe for concurrent use.
type ProfileSource interface {
	Profile(ctx context.Context, accessToken string) (*Profile, error)
}

// VerifyFunc maps the resolved tokens and normalized profile onto an
// application user. Returning a non-nil error yields StatusError; returning
// a nil user yields StatusFailure carrying the supplied Info; returning a
// user yields StatusSuccess. The function is invoked exactly once per
// attempt.
type VerifyFunc func(ctx context.Context, tokens TokenPair, profile *Profile) (user any, info Info, err error)

// VerifyRequestFunc is VerifyFunc with the original request passed through,
// enabled via WithRequestPassthrough.
type VerifyRequestFunc func(ctx context.Context, req Request, tokens TokenPair, profile *Profile) (user any, info Info, err error)

// Strategy authenticates requests bearing a Google OAuth 2.0 access token.
// It is immutable after New and safe for concurrent use by any number of
// in-flight requests.
type Strategy struct {
	verify    VerifyFunc
	verifyReq VerifyRequestFunc

	accessTokenField  string
	refreshTokenField string
	codeField         string

	source        ProfileSource
	cache         profilecache.Cache
	cacheTTL      time.Duration
	httpClient    *http.Client
	oauth         *oauth2.Config
	exchangeCodes bool

	log *slog.Logger
}

// New constructs a Strategy for the given client credentials and
// verification function. verify may be nil only when
// WithRequestPassthrough supplies the request-aware variant.
func New(clientID, clientSecret string, verify VerifyFunc, opts ...Option) (*Strategy, error) {
	if clientID == "" {
		return nil, errors.New("client ID is required")
	}
	if clientSecret == "" {
		return nil, errors.New("client secret is required")
	}

	s := settings{
		authorizationURL:  defaultAuthorizationURL,
		tokenURL:          defaultTokenURL,
		apiVersion:        defaultAPIVersion,
		codeField:         defaultCodeField,
		accessTokenField:  defaultAccessTokenField,
		refreshTokenField: defaultRefreshTokenField,
		timeout:           defaultTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if verify == nil && s.verifyReq == nil {
		return nil, errors.New("a verify function is required")
	}
	if s.apiVersion == "" {
		return nil, errors.New("API version is required")
	}
	if !s.profileURLSet {
		s.profileURL = defaultProfileURL(s.apiVersion)
	}
	for _, ep := range []struct{ name, url string }{
		{"authorization URL", s.authorizationURL},
		{"token URL", s.tokenURL},
		{"profile URL", s.profileURL},
	} {
		if err := validateEndpoint(ep.name, ep.url); err != nil {
			return nil, err
		}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	log := slog.New(logctx.NewHandler(s.logger.Handler()))
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: s.timeout}
	}
	if s.source == nil {
		s.source = &userinfoSource{
			url:    s.profileURL,
			client: s.httpClient,
			log:    log,
		}
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = defaultCacheTTL
	}

	return &Strategy{
		verify:            verify,
		verifyReq:         s.verifyReq,
		accessTokenField:  s.accessTokenField,
		refreshTokenField: s.refreshTokenField,
		codeField:         s.codeField,
		source:            s.source,
		cache:             s.cache,
		httpClient:        s.httpClient,
		cacheTTL:          s.cacheTTL,
		exchangeCodes:     s.exchangeCodes,
		log:               log,
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  s.authorizationURL,
				TokenURL: s.tokenURL,
			},
		},
	}, nil
}

// Authenticate runs one authentication attempt against the request and
// returns exactly one terminal Result: resolve the access token (failing
// synchronously when absent), fetch and normalize the profile, then let the
// verification function decide. No step is retried; the host owns any
// retry of the whole request.
func (s *Strategy) Authenticate(ctx context.Context, req Request) Result {
	attempt := &logctx.Attempt{ID: uuid.NewString(), Provider: ProviderName}
	ctx = logctx.WithAttempt(ctx, attempt)

	tokens, src, info, ok := s.resolveTokens(ctx, req)
	if !ok {
		s.log.InfoContext(ctx, "auth.token.missing", slog.String("field", s.accessTokenField))
		return failure(info)
	}
	attempt.TokenSource = string(src)
	s.log.DebugContext(ctx, "auth.token.resolved")

	profile, err := s.fetchProfile(ctx, tokens.AccessToken)
	if err != nil {
		s.log.InfoContext(ctx, "auth.profile.fail", slog.String("err", err.Error()))
		return errored(err)
	}
	s.log.DebugContext(ctx, "auth.profile.ok", slog.String("sub", profile.ID))

	var user any
	if s.verifyReq != nil {
		user, info, err = s.verifyReq(ctx, req, tokens, profile)
	} else {
		user, info, err = s.verify(ctx, tokens, profile)
	}
	if err != nil {
		s.log.InfoContext(ctx, "auth.verify.err", slog.String("err", err.Error()))
		return errored(err)
	}
	if user == nil {
		s.log.InfoContext(ctx, "auth.verify.fail", slog.String("message", info.Message))
		return failure(info)
	}
	s.log.InfoContext(ctx, "auth.verify.ok")
	return success(user, info)
}

// resolveTokens applies the shared field resolver for the access-token and
// refresh-token fields, optionally falling back to an authorization-code
// exchange when enabled. On failure the returned Info names the missing
// field, or the failed exchange when a code was supplied.
func (s *Strategy) resolveTokens(ctx context.Context, req Request) (TokenPair, tokenSource, Info, bool) {
	access, src, ok := resolveField(req, s.accessTokenField)
	if ok {
		refresh, _, _ := resolveField(req, s.refreshTokenField)
		return TokenPair{AccessToken: access, RefreshToken: refresh}, src, Info{}, true
	}
	if s.exchangeCodes {
		if code, codeSrc, ok := resolveField(req, s.codeField); ok {
			tokens, err := s.ExchangeCode(ctx, code)
			if err != nil {
				s.log.InfoContext(ctx, "auth.exchange.fail", slog.String("err", err.Error()))
				return TokenPair{}, "", Info{Message: "failed to exchange " + s.codeField}, false
			}
			return tokens, codeSrc, Info{}, true
		}
	}
	return TokenPair{}, "", Info{Message: s.accessTokenField + " is required"}, false
}

// fetchProfile consults the optional cache before the profile source. Cache
// faults are logged and degrade to a source fetch.
func (s *Strategy) fetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	if s.cache == nil {
		return s.source.Profile(ctx, accessToken)
	}

	key := cacheKey(accessToken)
	if b, err := s.cache.Get(ctx, key); err != nil {
		s.log.DebugContext(ctx, "auth.cache.err", slog.String("err", err.Error()))
	} else if b != nil {
		var p Profile
		if err := json.Unmarshal(b, &p); err == nil {
			s.log.DebugContext(ctx, "auth.cache.hit")
			return &p, nil
		}
		s.log.DebugContext(ctx, "auth.cache.corrupt")
	}

	p, err := s.source.Profile(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(p); err == nil {
		if err := s.cache.Put(ctx, key, b, s.cacheTTL); err != nil {
			s.log.DebugContext(ctx, "auth.cache.put.err", slog.String("err", err.Error()))
		}
	}
	return p, nil
}

// cacheKey digests the access token so the raw credential never becomes a
// cache key.
func cacheKey(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return hex.EncodeToString(sum[:])
}
