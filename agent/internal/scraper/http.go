package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/obsidianstack/statsrelay/pkg/types"
)

type httpTransport struct {
	url    string
	user   string
	pass   string
	client *http.Client
}

// Fetch GETs the stats CSV. Credentials are only sent after the server
// challenges with a 401: the challenge is parsed, and if it names the Basic
// scheme the request is retried exactly once with an Authorization header.
// A second 401 is terminal for this cycle.
func (t *httpTransport) Fetch(ctx context.Context) ([]string, error) {
	resp, err := t.get(ctx, "")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		challenge := resp.Header.Get("WWW-Authenticate")
		discard(resp)

		if _, err := ParseChallenge(challenge); err != nil {
			return nil, err
		}

		resp, err = t.get(ctx, basicCredential(t.user, t.pass))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			discard(resp)
			return nil, fmt.Errorf("%w: credentials rejected by %s (invalid username or password?)", types.ErrAuth, t.url)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: unexpected status %d", types.ErrTransport, t.url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", types.ErrTransport, err)
	}
	return splitLines(body), nil
}

// get issues one GET, attaching authorization when non-empty.
func (t *httpTransport) get(ctx context.Context, authorization string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", types.ErrTransport, err)
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http get: %w", types.ErrTransport, err)
	}
	return resp, nil
}

// discard drains and closes a response body so the connection can be reused.
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
