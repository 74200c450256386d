package googletoken

import (
	"net/http"
	"strings"
)

// Request is the inbound request abstraction consumed by the strategy. Each
// accessor returns the named field's value and whether it was provided; a
// missing field and a present-but-empty field both report false ("empty and
// missing are both treated as not-provided"). Implementations must tolerate
// absent underlying containers and must not mutate state on lookup.
type Request interface {
	// BodyField returns the named field from the request body.
	BodyField(name string) (string, bool)
	// QueryField returns the named field from the query string.
	QueryField(name string) (string, bool)
	// HeaderField returns the named header. Implementations backed by
	// case-preserving maps should match the name exactly; the resolver
	// retries with a lower-cased name itself.
	HeaderField(name string) (string, bool)
}

// HTTPRequest adapts an *http.Request to the Request interface. Body fields
// come from the parsed POST form, query fields from the URL, and header
// lookups use net/http's canonical (case-insensitive) matching.
func HTTPRequest(r *http.Request) Request {
	return httpRequest{r: r}
}

type httpRequest struct {
	r *http.Request
}

func (h httpRequest) BodyField(name string) (string, bool) {
	if h.r.PostForm == nil {
		// ParseForm caches its result on the request, so repeated
		// resolution of the same request stays idempotent.
		_ = h.r.ParseForm()
	}
	return provided(h.r.PostForm.Get(name))
}

func (h httpRequest) QueryField(name string) (string, bool) {
	return provided(h.r.URL.Query().Get(name))
}

func (h httpRequest) HeaderField(name string) (string, bool) {
	return provided(h.r.Header.Get(name))
}

func provided(v string) (string, bool) {
	if v == "" {
		return "", false
	}
	return v, true
}

// tokenSource records where in the request a credential was found. Used for
// structured logging only.
type tokenSource string

const (
	sourceBody   tokenSource = "body"
	sourceQuery  tokenSource = "query"
	sourceHeader tokenSource = "header"
	sourceBearer tokenSource = "bearer"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

// resolveField locates a named credential field in the request. Lookup
// order, first match wins: body, query, header (name as given, then
// lower-cased), and finally a well-formed "Authorization: Bearer <token>"
// header, whose captured token satisfies the lookup regardless of the field
// name. The same routine serves both the access-token and refresh-token
// fields, so the Bearer fallback applies to both.
func resolveField(req Request, field string) (string, tokenSource, bool) {
	if v, ok := req.BodyField(field); ok {
		return v, sourceBody, true
	}
	if v, ok := req.QueryField(field); ok {
		return v, sourceQuery, true
	}
	if v, ok := req.HeaderField(field); ok {
		return v, sourceHeader, true
	}
	if lower := strings.ToLower(field); lower != field {
		if v, ok := req.HeaderField(lower); ok {
			return v, sourceHeader, true
		}
	}
	for _, name := range []string{authorizationHeader, strings.ToLower(authorizationHeader)} {
		raw, ok := req.HeaderField(name)
		if !ok {
			continue
		}
		if tok, ok := parseBearer(raw); ok {
			return tok, sourceBearer, true
		}
		// The header was present but did not carry a usable bearer
		// token; a differently-cased duplicate would shadow it.
		break
	}
	return "", "", false
}

// parseBearer extracts the token from an RFC 6750 "Bearer <token>" header
// value. A wrong scheme, missing token, or bare "Bearer" reports false.
func parseBearer(v string) (string, bool) {
	if !strings.HasPrefix(v, bearerPrefix) || len(v) <= len(bearerPrefix) {
		return "", false
	}
	tok := strings.TrimSpace(v[len(bearerPrefix):])
	if tok == "" {
		return "", false
	}
	return tok, true
}
