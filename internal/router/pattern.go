package router

import (
	"fmt"
	"regexp"
	"strings"
)

// Param is a single path parameter binding.
type Param struct {
	Name  string
	Value string
}

// Params holds path parameter bindings in template order.
type Params []Param

// Get returns the value bound to name, or "" if absent.
func (ps Params) Get(name string) string {
	for _, p := range ps {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

// Pattern is a compiled route template such as "/images/:id".
type Pattern struct {
	template string
	re       *regexp.Regexp
	names    []string
}

// Compile turns a template made of literal segments and ":name" segments
// into an anchored matcher. Each parameter captures exactly one segment.
// Literal segments are matched verbatim, including regex metacharacters.
func Compile(template string) (*Pattern, error) {
	if !strings.HasPrefix(template, "/") {
		return nil, fmt.Errorf("route template %q must start with /", template)
	}

	segments := strings.Split(template, "/")
	parts := make([]string, len(segments))
	var names []string
	seen := make(map[string]bool)

	for i, seg := range segments {
		if !strings.HasPrefix(seg, ":") {
			parts[i] = regexp.QuoteMeta(seg)
			continue
		}

		name := seg[1:]
		if name == "" {
			return nil, fmt.Errorf("route template %q has an unnamed parameter", template)
		}
		if seen[name] {
			return nil, fmt.Errorf("route template %q repeats parameter %q", template, name)
		}
		seen[name] = true
		names = append(names, name)
		parts[i] = "([^/]+)"
	}

	re, err := regexp.Compile("^" + strings.Join(parts, "/") + "$")
	if err != nil {
		return nil, fmt.Errorf("compile route template %q: %w", template, err)
	}

	return &Pattern{template: template, re: re, names: names}, nil
}

// MustCompile is like Compile but panics on a malformed template.
func MustCompile(template string) *Pattern {
	p, err := Compile(template)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether path matches the whole pattern and returns the
// parameter bindings in template order.
func (p *Pattern) Match(path string) (Params, bool) {
	m := p.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}

	params := make(Params, len(p.names))
	for i, name := range p.names {
		params[i] = Param{Name: name, Value: m[i+1]}
	}
	return params, true
}

// Names returns the parameter names in template order.
func (p *Pattern) Names() []string {
	return append([]string(nil), p.names...)
}

// String returns the source template.
func (p *Pattern) String() string {
	return p.template
}

// joinPath prefixes template with prefix. A "/" template maps onto the
// prefix itself so group("/images", "/") serves "/images".
func joinPath(prefix, template string) string {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return template
	}
	if template == "/" || template == "" {
		return prefix
	}
	return prefix + template
}
