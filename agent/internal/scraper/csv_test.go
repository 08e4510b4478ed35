package scraper

import (
	"errors"
	"testing"

	"github.com/obsidianstack/statsrelay/pkg/types"
)

// byName indexes observations by name, failing on duplicates.
func byName(t *testing.T, obs []Observation) map[string]Observation {
	t.Helper()
	m := make(map[string]Observation, len(obs))
	for _, o := range obs {
		if _, dup := m[o.Name]; dup {
			t.Fatalf("duplicate observation %q", o.Name)
		}
		m[o.Name] = o
	}
	return m
}

func TestNormalize_NumericColumn(t *testing.T) {
	lines := []string{
		"pxname,svname,status,rate",
		"web,FRONTEND,OPEN,42",
	}
	obs, err := Normalize(lines, "", false)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	got := byName(t, obs)

	rate, ok := got["web.frontend.rate"]
	if !ok {
		t.Fatalf("web.frontend.rate missing, got %v", obs)
	}
	if rate.Value != 42.0 {
		t.Errorf("rate value = %v, want 42", rate.Value)
	}
	if rate.Kind != types.KindGauge {
		t.Errorf("rate kind = %q, want GAUGE", rate.Kind)
	}
}

func TestNormalize_EmptyCellSkipped(t *testing.T) {
	lines := []string{
		"pxname,svname,status,rate",
		"web,FRONTEND,OPEN,",
	}
	obs, err := Normalize(lines, "", false)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	got := byName(t, obs)
	if _, ok := got["web.frontend.rate"]; ok {
		t.Error("empty rate cell must not emit a metric")
	}
	if len(obs) != 1 {
		t.Errorf("observations = %d, want 1 (status only)", len(obs))
	}
}

func TestNormalize_EnumColumn(t *testing.T) {
	lines := []string{
		"pxname,svname,status,rate",
		"web,FRONTEND,OPEN,42",
	}
	obs, _ := Normalize(lines, "", false)
	got := byName(t, obs)

	st, ok := got["web.frontend.status.open"]
	if !ok {
		t.Fatalf("web.frontend.status.open missing, got %v", obs)
	}
	if st.Value != 1 {
		t.Errorf("status value = %v, want 1", st.Value)
	}
	if _, ok := got["web.frontend.status"]; ok {
		t.Error("enum column must not also emit a bare status metric")
	}
}

func TestNormalize_HAProxyHeaderAndPrefix(t *testing.T) {
	lines := []string{
		"# pxname,svname,qcur,status,",
		"web,BACKEND,3,UP 1/2,",
	}
	obs, err := Normalize(lines, "lb1", false)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	got := byName(t, obs)
	if o, ok := got["lb1.web.backend.qcur"]; !ok || o.Value != 3 {
		t.Errorf("lb1.web.backend.qcur = %+v (present %v), want 3", o, ok)
	}
	if _, ok := got["lb1.web.backend.status.up_1_2"]; !ok {
		t.Errorf("sanitized enum name missing, got %v", obs)
	}
}

func TestNormalize_IgnoreNonAggregateRows(t *testing.T) {
	lines := []string{
		"pxname,svname,status,rate",
		"web,srv1,UP,7",
		"web,Backend,UP,9",
	}

	obs, err := Normalize(lines, "", true)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	for _, o := range obs {
		if o.Name == "web.srv1.rate" || o.Name == "web.srv1.status.up" {
			t.Errorf("server row leaked through filter: %q", o.Name)
		}
	}
	if len(obs) != 2 {
		t.Errorf("observations = %d, want 2 (backend row only)", len(obs))
	}

	all, _ := Normalize(lines, "", false)
	if len(all) != 4 {
		t.Errorf("unfiltered observations = %d, want 4", len(all))
	}
}

func TestNormalize_ShortRowSkipped(t *testing.T) {
	lines := []string{
		"pxname,svname,status,rate",
		"web,FRONTEND",
		"api,FRONTEND,OPEN,5",
	}
	obs, err := Normalize(lines, "", false)
	if !errors.Is(err, types.ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
	got := byName(t, obs)
	if o, ok := got["api.frontend.rate"]; !ok || o.Value != 5 {
		t.Errorf("valid row after a short one should survive, got %v", obs)
	}
}

func TestNormalize_NoHeader(t *testing.T) {
	for _, lines := range [][]string{nil, {}} {
		obs, err := Normalize(lines, "", false)
		if !errors.Is(err, types.ErrParse) {
			t.Errorf("err = %v, want ErrParse", err)
		}
		if len(obs) != 0 {
			t.Errorf("observations = %d, want 0", len(obs))
		}
	}
}

func TestJoinName(t *testing.T) {
	tests := []struct {
		parts []string
		want  string
	}{
		{[]string{"haproxy", "lb1", "web"}, "haproxy.lb1.web"},
		{[]string{"", "", "web"}, "web"},
		{[]string{"haproxy", ""}, "haproxy"},
		{nil, ""},
	}
	for _, tc := range tests {
		if got := joinName(tc.parts...); got != tc.want {
			t.Errorf("joinName(%q) = %q, want %q", tc.parts, got, tc.want)
		}
	}
}
