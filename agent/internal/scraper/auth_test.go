package scraper

import (
	"errors"
	"testing"

	"github.com/obsidianstack/statsrelay/pkg/types"
)

func TestParseChallenge(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantRealm string
		wantErr   bool
	}{
		{"basic", `Basic realm="HAProxy Statistics"`, "HAProxy Statistics", false},
		{"lowercase scheme", `basic realm="x"`, "x", false},
		{"single quotes", `BASIC realm='stats'`, "stats", false},
		{"header name prefix", `WWW-Authenticate: Basic realm="x"`, "x", false},
		{"digest", `Digest realm="x"`, "", true},
		{"absent", "", "", true},
		{"malformed", `Basic`, "", true},
		{"no realm", `Basic charset="UTF-8"`, "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ch, err := ParseChallenge(tc.header)
			if tc.wantErr {
				if !errors.Is(err, types.ErrAuth) {
					t.Fatalf("ParseChallenge(%q) err = %v, want ErrAuth", tc.header, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseChallenge(%q) unexpected error: %v", tc.header, err)
			}
			if ch.Realm != tc.wantRealm {
				t.Errorf("Realm = %q, want %q", ch.Realm, tc.wantRealm)
			}
		})
	}
}

func TestBasicCredential(t *testing.T) {
	// base64("admin:password")
	if got, want := basicCredential("admin", "password"), "Basic YWRtaW46cGFzc3dvcmQ="; got != want {
		t.Errorf("basicCredential = %q, want %q", got, want)
	}
}
