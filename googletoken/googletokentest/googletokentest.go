// Package googletokentest provides test doubles for exercising the
// googletoken strategy without Google: an in-memory Request and a fake
// userinfo endpoint backed by httptest.
package googletokentest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/oauthkit/google-token-go/googletoken"
)

// Request is an in-memory googletoken.Request. Map lookups are exact-key,
// which makes it suitable for asserting the resolver's case handling; empty
// values count as not provided. A nil map is simply an absent container.
type Request struct {
	Body   map[string]string
	Query  map[string]string
	Header map[string]string
}

func (r *Request) BodyField(name string) (string, bool)   { return lookup(r.Body, name) }
func (r *Request) QueryField(name string) (string, bool)  { return lookup(r.Query, name) }
func (r *Request) HeaderField(name string) (string, bool) { return lookup(r.Header, name) }

func lookup(m map[string]string, name string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// UserinfoServer is a fake userinfo endpoint. By default it serves Claims
// as a JSON document to any request carrying an access_token parameter and
// records the most recent token it saw. Status and RawBody override the
// response wholesale for fault injection.
type UserinfoServer struct {
	*httptest.Server

	mu        sync.Mutex
	claims    map[string]any
	status    int
	rawBody   []byte
	lastToken string
	calls     int
}

// NewUserinfoServer starts a fake endpoint serving the given claims. The
// server is shut down automatically when the test finishes.
func NewUserinfoServer(t testing.TB, claims map[string]any) *UserinfoServer {
	s := &UserinfoServer{claims: claims, status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Server.Close)
	return s
}

func (s *UserinfoServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.lastToken = r.URL.Query().Get("access_token")
	s.calls++
	status, raw, claims := s.status, s.rawBody, s.claims
	s.mu.Unlock()

	if raw != nil {
		w.WriteHeader(status)
		_, _ = w.Write(raw)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(claims)
}

// RespondWith replaces subsequent responses with a fixed status and body.
func (s *UserinfoServer) RespondWith(status int, body []byte) {
	s.mu.Lock()
	s.status = status
	s.rawBody = body
	s.mu.Unlock()
}

// LastToken reports the access token seen on the most recent request.
func (s *UserinfoServer) LastToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastToken
}

// Calls reports how many requests the server has received.
func (s *UserinfoServer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// AcceptAll returns a verify function that accepts every profile with the
// given user value.
func AcceptAll(user any) googletoken.VerifyFunc {
	return func(ctx context.Context, tokens googletoken.TokenPair, profile *googletoken.Profile) (any, googletoken.Info, error) {
		return user, googletoken.Info{}, nil
	}
}

// RejectAll returns a verify function that rejects every profile with the
// given message.
func RejectAll(message string) googletoken.VerifyFunc {
	return func(ctx context.Context, tokens googletoken.TokenPair, profile *googletoken.Profile) (any, googletoken.Info, error) {
		return nil, googletoken.Info{Message: message}, nil
	}
}
