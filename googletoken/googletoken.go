// Package googletoken implements a bearer access-token authentication
// strategy for Google OAuth 2.0. A client presents an access token it
// already holds (request body, query string, header, or an RFC 6750
// "Authorization: Bearer" header); the strategy exchanges the token for the
// user's profile at Google's userinfo endpoint, normalizes the profile into
// a fixed shape, and hands it to an application-supplied verification
// function that maps it onto an application user.
//
// The public surface intentionally stays small: a Strategy is constructed
// once with New and is safe for concurrent use; Authenticate runs one
// authentication attempt and returns exactly one terminal Result. The host
// framework is responsible for routing, sessions, and translating the
// Result into a response (Result.Challenge helps with the HTTP mapping).
//
// Example:
//
//	verify := func(ctx context.Context, tokens googletoken.TokenPair, profile *googletoken.Profile) (any, googletoken.Info, error) {
//	    user, err := users.FindOrCreate(ctx, profile.ID, profile.Emails[0].Value)
//	    if err != nil {
//	        return nil, googletoken.Info{}, err
//	    }
//	    return user, googletoken.Info{}, nil
//	}
//
//	strategy, err := googletoken.New(clientID, clientSecret, verify)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Inside request handling:
//	res := strategy.Authenticate(r.Context(), googletoken.HTTPRequest(r))
//	switch res.Status {
//	case googletoken.StatusSuccess: // res.User is the application user
//	case googletoken.StatusFailure: // deny; see res.Info.Message
//	case googletoken.StatusError:   // server error; see res.Err
//	}
//
// # Token resolution
//
// The access token is located by checking, in priority order, the request
// body, the query string, a header named after the configured field (as
// given, then lower-cased), and finally a well-formed "Bearer" Authorization
// header. Empty values count as absent. The same routine resolves the
// optional refresh token.
//
// # Alternative profile sources
//
// The userinfo round trip is the default ProfileSource. The idtoken
// subpackage verifies a Google-issued OpenID Connect ID token locally and
// produces the same Profile shape; inject it with WithProfileSource. A
// profilecache.Cache (see WithProfileCache) can short-circuit repeated
// lookups for the same token.
package googletoken
