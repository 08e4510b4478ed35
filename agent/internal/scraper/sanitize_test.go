package scraper

import (
	"regexp"
	"testing"
)

var tokenRe = regexp.MustCompile(`^[A-Za-z0-9_-]*$`)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"web", "web"},
		{"web-01_a", "web-01_a"},
		{"my.backend", "my_backend"},
		{"a b/c:d", "a_b_c_d"},
		{"Ünïcode", "_n_code"},
		{"# pxname", "__pxname"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got := Sanitize(tc.in)
			if got != tc.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
			}
			if !tokenRe.MatchString(got) {
				t.Errorf("Sanitize(%q) = %q contains unsafe characters", tc.in, got)
			}
			if again := Sanitize(got); again != got {
				t.Errorf("Sanitize not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func FuzzSanitize(f *testing.F) {
	for _, seed := range []string{"", "web.frontend", "ÿ\x00\xff", "a-b_c"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		got := Sanitize(s)
		if !tokenRe.MatchString(got) {
			t.Fatalf("Sanitize(%q) = %q contains unsafe characters", s, got)
		}
		if Sanitize(got) != got {
			t.Fatalf("Sanitize not idempotent for %q", s)
		}
	})
}
