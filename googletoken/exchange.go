package googletoken

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// AuthCodeURL builds the provider authorization URL for the given state
// token, for hosts that also drive the interactive consent flow.
func (s *Strategy) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return s.oauth.AuthCodeURL(state, opts...)
}

// ExchangeCode trades an authorization code for a token pair at the
// configured token endpoint. Authenticate calls this automatically when
// WithCodeExchange is enabled and no access token was resolvable.
func (s *Strategy) ExchangeCode(ctx context.Context, code string) (TokenPair, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return TokenPair{}, fmt.Errorf("exchange authorization code: %w", err)
	}
	return TokenPair{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}, nil
}
