package googletoken_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oauthkit/google-token-go/googletoken"
	"github.com/oauthkit/google-token-go/googletoken/googletokentest"
	"github.com/oauthkit/google-token-go/profilecache/memorycache"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStrategy(t *testing.T, verify googletoken.VerifyFunc, opts ...googletoken.Option) *googletoken.Strategy {
	t.Helper()
	opts = append([]googletoken.Option{googletoken.WithLogger(discardLogger())}, opts...)
	s, err := googletoken.New("client-id", "client-secret", verify, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestAuthenticateMissingToken(t *testing.T) {
	s := newStrategy(t, googletokentest.AcceptAll("user"))

	res := s.Authenticate(context.Background(), &googletokentest.Request{})
	if res.Status != googletoken.StatusFailure {
		t.Fatalf("Status = %v, want StatusFailure", res.Status)
	}
	if res.Info.Message != "access_token is required" {
		t.Errorf("Info.Message = %q, want %q", res.Info.Message, "access_token is required")
	}
}

func TestAuthenticateMissingTokenCustomField(t *testing.T) {
	s := newStrategy(t, googletokentest.AcceptAll("user"),
		googletoken.WithAccessTokenField("oauth_token"))

	res := s.Authenticate(context.Background(), &googletokentest.Request{
		Body: map[string]string{"access_token": "ignored"},
	})
	if res.Status != googletoken.StatusFailure {
		t.Fatalf("Status = %v, want StatusFailure", res.Status)
	}
	if res.Info.Message != "oauth_token is required" {
		t.Errorf("Info.Message = %q, want the configured field name", res.Info.Message)
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	srv := googletokentest.NewUserinfoServer(t, map[string]any{
		"sub":   "42",
		"name":  "Ada Lovelace",
		"email": "ada@example.com",
	})

	var gotTokens googletoken.TokenPair
	var gotProfile *googletoken.Profile
	verify := func(ctx context.Context, tokens googletoken.TokenPair, profile *googletoken.Profile) (any, googletoken.Info, error) {
		gotTokens = tokens
		gotProfile = profile
		return "app-user", googletoken.Info{}, nil
	}
	s := newStrategy(t, verify, googletoken.WithProfileURL(srv.URL))

	res := s.Authenticate(context.Background(), &googletokentest.Request{
		Body: map[string]string{
			"access_token":  "tok-1",
			"refresh_token": "refresh-1",
		},
	})
	if res.Status != googletoken.StatusSuccess {
		t.Fatalf("Status = %v (err=%v), want StatusSuccess", res.Status, res.Err)
	}
	if res.User != "app-user" {
		t.Errorf("User = %v, want app-user", res.User)
	}
	if gotTokens.AccessToken != "tok-1" || gotTokens.RefreshToken != "refresh-1" {
		t.Errorf("tokens = %+v, want tok-1/refresh-1", gotTokens)
	}
	if srv.LastToken() != "tok-1" {
		t.Errorf("userinfo saw access_token=%q, want tok-1", srv.LastToken())
	}
	if gotProfile == nil || gotProfile.ID != "42" || gotProfile.DisplayName != "Ada Lovelace" {
		t.Errorf("profile = %+v, want normalized Ada Lovelace", gotProfile)
	}
}

func TestAuthenticateBearerHeader(t *testing.T) {
	srv := googletokentest.NewUserinfoServer(t, map[string]any{"sub": "42"})
	s := newStrategy(t, googletokentest.AcceptAll("user"), googletoken.WithProfileURL(srv.URL))

	res := s.Authenticate(context.Background(), &googletokentest.Request{
		Header: map[string]string{"Authorization": "Bearer abc123"},
	})
	if res.Status != googletoken.StatusSuccess {
		t.Fatalf("Status = %v (err=%v), want StatusSuccess", res.Status, res.Err)
	}
	if srv.LastToken() != "abc123" {
		t.Errorf("userinfo saw access_token=%q, want abc123", srv.LastToken())
	}
}

func TestAuthenticateTransportError(t *testing.T) {
	srv := googletokentest.NewUserinfoServer(t, nil)
	srv.RespondWith(http.StatusInternalServerError, []byte("boom"))
	s := newStrategy(t, googletokentest.AcceptAll("user"), googletoken.WithProfileURL(srv.URL))

	res := s.Authenticate(context.Background(), &googletokentest.Request{
		Query: map[string]string{"access_token": "tok-1"},
	})
	if res.Status != googletoken.StatusError {
		t.Fatalf("Status = %v, want StatusError", res.Status)
	}
	if !errors.Is(res.Err, googletoken.ErrProfileFetch) {
		t.Errorf("Err = %v, want wrapped ErrProfileFetch", res.Err)
	}
}

func TestAuthenticateConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()
	s := newStrategy(t, googletokentest.AcceptAll("user"), googletoken.WithProfileURL(srv.URL))

	res := s.Authenticate(context.Background(), &googletokentest.Request{
		Query: map[string]string{"access_token": "tok-1"},
	})
	if res.Status != googletoken.StatusError {
		t.Fatalf("Status = %v, want StatusError", res.Status)
	}
	if !errors.Is(res.Err, googletoken.ErrProfileFetch) {
		t.Errorf("Err = %v, want wrapped ErrProfileFetch", res.Err)
	}
}

func TestAuthenticateMalformedResponse(t *testing.T) {
	srv := googletokentest.NewUserinfoServer(t, nil)
	srv.RespondWith(http.StatusOK, []byte("not json"))

	verified := false
	verify := func(ctx context.Context, tokens googletoken.TokenPair, profile *googletoken.Profile) (any, googletoken.Info, error) {
		verified = true
		return "user", googletoken.Info{}, nil
	}
	s := newStrategy(t, verify, googletoken.WithProfileURL(srv.URL))

	res := s.Authenticate(context.Background(), &googletokentest.Request{
		Query: map[string]string{"access_token": "tok-1"},
	})
	if res.Status != googletoken.StatusError {
		t.Fatalf("Status = %v, want StatusError", res.Status)
	}
	// Parse errors surface as-is, not wrapped in the transport sentinel.
	if errors.Is(res.Err, googletoken.ErrProfileFetch) {
		t.Errorf("Err = %v, want bare parse error", res.Err)
	}
	if verified {
		t.Error("verification ran despite a malformed profile response")
	}
}

func TestAuthenticateVerificationRejected(t *testing.T) {
	srv := googletokentest.NewUserinfoServer(t, map[string]any{"sub": "42"})
	s := newStrategy(t, googletokentest.RejectAll("denied"), googletoken.WithProfileURL(srv.URL))

	res := s.Authenticate(context.Background(), &googletokentest.Request{
		Query: map[string]string{"access_token": "tok-1"},
	})
	if res.Status != googletoken.StatusFailure {
		t.Fatalf("Status = %v, want StatusFailure", res.Status)
	}
	if res.Info.Message != "denied" {
		t.Errorf("Info.Message = %q, want denied", res.Info.Message)
	}
}

func TestAuthenticateVerificationError(t *testing.T) {
	srv := googletokentest.NewUserinfoServer(t, map[string]any{"sub": "42"})
	wantErr := errors.New("database down")
	verify := func(ctx context.Context, tokens googletoken.TokenPair, profile *googletoken.Profile) (any, googletoken.Info, error) {
		return nil, googletoken.Info{}, wantErr
	}
	s := newStrategy(t, verify, googletoken.WithProfileURL(srv.URL))

	res := s.Authenticate(context.Background(), &googletokentest.Request{
		Query: map[string]string{"access_token": "tok-1"},
	})
	if res.Status != googletoken.StatusError {
		t.Fatalf("Status = %v, want StatusError", res.Status)
	}
	if !errors.Is(res.Err, wantErr) {
		t.Errorf("Err = %v, want the verification error as-is", res.Err)
	}
}

func TestAuthenticateRequestPassthrough(t *testing.T) {
	srv := googletokentest.NewUserinfoServer(t, map[string]any{"sub": "42"})
	inbound := &googletokentest.Request{
		Query: map[string]string{"access_token": "tok-1"},
	}

	var gotReq googletoken.Request
	verifyReq := func(ctx context.Context, req googletoken.Request, tokens googletoken.TokenPair, profile *googletoken.Profile) (any, googletoken.Info, error) {
		gotReq = req
		return "user", googletoken.Info{}, nil
	}
	s := newStrategy(t, nil,
		googletoken.WithProfileURL(srv.URL),
		googletoken.WithRequestPassthrough(verifyReq))

	res := s.Authenticate(context.Background(), inbound)
	if res.Status != googletoken.StatusSuccess {
		t.Fatalf("Status = %v (err=%v), want StatusSuccess", res.Status, res.Err)
	}
	if gotReq != googletoken.Request(inbound) {
		t.Error("verification did not receive the original request")
	}
}

func TestAuthenticateProfileCache(t *testing.T) {
	srv := googletokentest.NewUserinfoServer(t, map[string]any{"sub": "42", "email": "ada@example.com"})
	s := newStrategy(t, googletokentest.AcceptAll("user"),
		googletoken.WithProfileURL(srv.URL),
		googletoken.WithProfileCache(memorycache.New(), 0))

	req := &googletokentest.Request{Query: map[string]string{"access_token": "tok-1"}}
	for i := 0; i < 3; i++ {
		if res := s.Authenticate(context.Background(), req); res.Status != googletoken.StatusSuccess {
			t.Fatalf("attempt %d: Status = %v (err=%v)", i, res.Status, res.Err)
		}
	}
	if srv.Calls() != 1 {
		t.Errorf("userinfo calls = %d, want 1 (cache hits after the first)", srv.Calls())
	}

	// A different token must not hit the cached entry.
	other := &googletokentest.Request{Query: map[string]string{"access_token": "tok-2"}}
	if res := s.Authenticate(context.Background(), other); res.Status != googletoken.StatusSuccess {
		t.Fatalf("other token: Status = %v (err=%v)", res.Status, res.Err)
	}
	if srv.Calls() != 2 {
		t.Errorf("userinfo calls = %d, want 2 after a distinct token", srv.Calls())
	}
}

func TestAuthenticateCodeExchange(t *testing.T) {
	userinfo := googletokentest.NewUserinfoServer(t, map[string]any{"sub": "42"})

	var gotCode string
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotCode = r.PostForm.Get("code")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "exchanged-token",
			"token_type":    "Bearer",
			"refresh_token": "exchanged-refresh",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(tokenSrv.Close)

	var gotTokens googletoken.TokenPair
	verify := func(ctx context.Context, tokens googletoken.TokenPair, profile *googletoken.Profile) (any, googletoken.Info, error) {
		gotTokens = tokens
		return "user", googletoken.Info{}, nil
	}
	s := newStrategy(t, verify,
		googletoken.WithProfileURL(userinfo.URL),
		googletoken.WithTokenURL(tokenSrv.URL),
		googletoken.WithCodeExchange())

	res := s.Authenticate(context.Background(), &googletokentest.Request{
		Body: map[string]string{"code": "auth-code-1"},
	})
	if res.Status != googletoken.StatusSuccess {
		t.Fatalf("Status = %v (err=%v), want StatusSuccess", res.Status, res.Err)
	}
	if gotCode != "auth-code-1" {
		t.Errorf("token endpoint saw code=%q, want auth-code-1", gotCode)
	}
	if gotTokens.AccessToken != "exchanged-token" || gotTokens.RefreshToken != "exchanged-refresh" {
		t.Errorf("tokens = %+v, want the exchanged pair", gotTokens)
	}
	if userinfo.LastToken() != "exchanged-token" {
		t.Errorf("userinfo saw access_token=%q, want exchanged-token", userinfo.LastToken())
	}
}

func TestAuthenticateCodeExchangeFailure(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	t.Cleanup(tokenSrv.Close)

	s := newStrategy(t, googletokentest.AcceptAll("user"),
		googletoken.WithTokenURL(tokenSrv.URL),
		googletoken.WithCodeExchange())

	res := s.Authenticate(context.Background(), &googletokentest.Request{
		Body: map[string]string{"code": "bad-code"},
	})
	if res.Status != googletoken.StatusFailure {
		t.Fatalf("Status = %v, want StatusFailure", res.Status)
	}
	if res.Info.Message != "failed to exchange code" {
		t.Errorf("Info.Message = %q, want the exchange failure, not a missing-token message", res.Info.Message)
	}
}

func TestAuthenticateCodeExchangeDisabledByDefault(t *testing.T) {
	s := newStrategy(t, googletokentest.AcceptAll("user"))

	res := s.Authenticate(context.Background(), &googletokentest.Request{
		Body: map[string]string{"code": "auth-code-1"},
	})
	if res.Status != googletoken.StatusFailure {
		t.Fatalf("Status = %v, want StatusFailure without WithCodeExchange", res.Status)
	}
}

func TestResultChallenge(t *testing.T) {
	srv := googletokentest.NewUserinfoServer(t, map[string]any{"sub": "42"})
	s := newStrategy(t, googletokentest.RejectAll("denied"), googletoken.WithProfileURL(srv.URL))

	failure := s.Authenticate(context.Background(), &googletokentest.Request{})
	ch := failure.Challenge("api")
	if ch == nil || ch.Status != http.StatusUnauthorized {
		t.Errorf("failure challenge = %+v, want 401", ch)
	}

	srv.RespondWith(http.StatusBadGateway, []byte("oops"))
	errored := s.Authenticate(context.Background(), &googletokentest.Request{
		Query: map[string]string{"access_token": "tok-1"},
	})
	if ch := errored.Challenge("api"); ch == nil || ch.Status != http.StatusInternalServerError {
		t.Errorf("error challenge = %+v, want 500", ch)
	}
}

func TestNewValidation(t *testing.T) {
	verify := googletokentest.AcceptAll("user")

	if _, err := googletoken.New("", "secret", verify); err == nil {
		t.Error("New accepted an empty client ID")
	}
	if _, err := googletoken.New("id", "", verify); err == nil {
		t.Error("New accepted an empty client secret")
	}
	if _, err := googletoken.New("id", "secret", nil); err == nil {
		t.Error("New accepted a nil verify function")
	}
	if _, err := googletoken.New("id", "secret", verify, googletoken.WithProfileURL("userinfo")); err == nil {
		t.Error("New accepted a relative profile URL")
	}
	if _, err := googletoken.New("id", "secret", verify, googletoken.WithProfileURL("")); err == nil {
		t.Error("New substituted a default for an explicitly empty profile URL")
	}
	if _, err := googletoken.New("id", "secret", verify, googletoken.WithAPIVersion("")); err == nil {
		t.Error("New accepted an empty API version")
	}
}

func TestAPIVersionBuildsProfileURL(t *testing.T) {
	s, err := googletoken.New("id", "secret", googletokentest.AcceptAll("user"),
		googletoken.WithLogger(discardLogger()),
		googletoken.WithAPIVersion("v2"))
	if err != nil {
		t.Fatalf("New with v2: %v", err)
	}
	if s == nil {
		t.Fatal("nil strategy")
	}
}
