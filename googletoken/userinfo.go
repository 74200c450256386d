package googletoken

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elnormous/contenttype"
)

// ErrProfileFetch is the sentinel wrapped around transport-level failures of
// the userinfo call (connection errors, timeouts, non-2xx statuses). Parse
// failures of the response body are returned as-is, not wrapped.
var ErrProfileFetch = errors.New("failed to fetch user profile")

// userinfoSource is the default ProfileSource: one authenticated GET to the
// configured userinfo endpoint per call. The access token travels as the
// access_token query parameter; header-based bearer auth is deliberately
// not used for this call.
type userinfoSource struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

func (u *userinfoSource) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileFetch, err)
	}
	q := req.URL.Query()
	q.Set("access_token", accessToken)
	req.URL.RawQuery = q.Encode()

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileFetch, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrProfileFetch, resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		// Advisory only: some deployments omit or mislabel the media
		// type, so parsing still decides success or failure.
		if mt := contenttype.NewMediaType(ct); !isJSONMediaType(mt) {
			u.log.DebugContext(ctx, "auth.profile.mediatype", slog.String("content_type", ct))
		}
	}

	return NormalizeProfile(body)
}

func isJSONMediaType(mt contenttype.MediaType) bool {
	return mt.Subtype == "json" || strings.HasSuffix(mt.Subtype, "+json")
}
