package scraper

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/obsidianstack/statsrelay/pkg/types"
)

// challengeRe extracts scheme and realm from a WWW-Authenticate value.
// The header name itself is tolerated as a prefix.
var challengeRe = regexp.MustCompile(`(?i)^(?:\s*www-authenticate\s*:)?\s*(\w*)\s+realm=['"]([^'"]+)['"]`)

// Challenge is the scheme and realm parsed from a 401 response.
type Challenge struct {
	Scheme string
	Realm  string
}

// ParseChallenge parses a WWW-Authenticate header value. Only the Basic
// scheme is accepted; an absent, malformed or non-Basic challenge yields an
// error wrapping types.ErrAuth, meaning "do not retry".
func ParseChallenge(header string) (Challenge, error) {
	if strings.TrimSpace(header) == "" {
		return Challenge{}, fmt.Errorf("%w: 401 without WWW-Authenticate header", types.ErrAuth)
	}
	m := challengeRe.FindStringSubmatch(header)
	if m == nil {
		return Challenge{}, fmt.Errorf("%w: malformed authentication header %q", types.ErrAuth, header)
	}
	ch := Challenge{Scheme: m[1], Realm: m[2]}
	if !strings.EqualFold(ch.Scheme, "basic") {
		return ch, fmt.Errorf("%w: unsupported authentication scheme %q", types.ErrAuth, ch.Scheme)
	}
	return ch, nil
}

// basicCredential returns the Authorization header value for user:pass.
func basicCredential(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}
