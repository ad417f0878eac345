package router

import (
	"strings"
	"testing"
)

func TestCompile_Match(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		template   string
		path       string
		wantMatch  bool
		wantParams Params
	}{
		{"root", "/", "/", true, Params{}},
		{"literal", "/health", "/health", true, Params{}},
		{"literal mismatch", "/health", "/healthz", false, nil},
		{"prefix is not a match", "/images", "/images/123", false, nil},
		{"single param", "/images/:id", "/images/01HX", true, Params{{"id", "01HX"}}},
		{"param needs a value", "/images/:id", "/images/", false, nil},
		{"param does not cross slashes", "/images/:id", "/images/a/b", false, nil},
		{"fewer segments", "/a/:x/:y", "/a/1", false, nil},
		{"more segments", "/a/:x", "/a/1/2", false, nil},
		{"two params in order", "/u/:user/ops/:op", "/u/42/ops/7", true, Params{{"user", "42"}, {"op", "7"}}},
		{"dot is literal", "/files/a.b", "/files/a.b", true, Params{}},
		{"dot does not match any char", "/files/a.b", "/files/aXb", false, nil},
		{"plus is literal", "/v1+/x", "/v1+/x", true, Params{}},
		{"plus is not a quantifier", "/v1+/x", "/v11/x", false, nil},
		{"parens are literal", "/q/(a)", "/q/(a)", true, Params{}},
		{"trailing slash is significant", "/images/", "/images", false, nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := Compile(tt.template)
			if err != nil {
				t.Fatalf("Compile(%q) failed: %v", tt.template, err)
			}

			params, ok := p.Match(tt.path)
			if ok != tt.wantMatch {
				t.Fatalf("Match(%q) on %q = %v, want %v", tt.path, tt.template, ok, tt.wantMatch)
			}
			if !ok {
				return
			}
			if len(params) != len(tt.wantParams) {
				t.Fatalf("expected %d params, got %d (%v)", len(tt.wantParams), len(params), params)
			}
			for i, want := range tt.wantParams {
				if params[i] != want {
					t.Errorf("param %d: expected %+v, got %+v", i, want, params[i])
				}
			}
		})
	}
}

func TestCompile_SegmentCount(t *testing.T) {
	t.Parallel()

	p := MustCompile("/a/:b/:c")
	for _, path := range []string{"/a", "/a/1", "/a/1/2/3", "/a/1/2/3/4"} {
		if _, ok := p.Match(path); ok {
			t.Errorf("expected %q not to match a three-segment template", path)
		}
	}
	if _, ok := p.Match("/a/1/2"); !ok {
		t.Error("expected three-segment path to match")
	}
}

func TestCompile_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		template string
		wantErr  string
	}{
		{"images", "must start with /"},
		{"/images/:", "unnamed parameter"},
		{"/a/:id/b/:id", "repeats parameter"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.template, func(t *testing.T) {
			t.Parallel()

			_, err := Compile(tt.template)
			if err == nil {
				t.Fatalf("expected error for %q", tt.template)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMustCompile_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("expected MustCompile to panic on a malformed template")
		}
	}()
	MustCompile("no-slash")
}

func TestParams_Get(t *testing.T) {
	t.Parallel()

	ps := Params{{"id", "1"}, {"kind", "logo"}}
	if ps.Get("kind") != "logo" {
		t.Errorf("expected logo, got %q", ps.Get("kind"))
	}
	if ps.Get("missing") != "" {
		t.Errorf("expected empty value for a missing param, got %q", ps.Get("missing"))
	}
}

func TestJoinPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix, template, want string
	}{
		{"", "/a", "/a"},
		{"/images", "/", "/images"},
		{"/images/", "/:id", "/images/:id"},
		{"/api", "/credits/add", "/api/credits/add"},
	}

	for _, tt := range tests {
		if got := joinPath(tt.prefix, tt.template); got != tt.want {
			t.Errorf("joinPath(%q, %q) = %q, want %q", tt.prefix, tt.template, got, tt.want)
		}
	}
}
