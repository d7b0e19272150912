package vars

import (
	"os"
	"regexp"
	"strings"
)

// Provider resolves a single variable name to a value.
type Provider interface {
	Resolve(name string) (string, bool)
	Label() string
}

// Resolver expands {{name}} placeholders by asking its providers in order.
// Expansion is a single pass: a value that itself contains {{...}} is not
// re-substituted, and unknown placeholders are left in the text untouched.
type Resolver struct {
	providers []Provider
}

func NewResolver(providers ...Provider) *Resolver {
	return &Resolver{providers: providers}
}

func (r *Resolver) Resolve(name string) (string, bool) {
	for _, provider := range r.providers {
		if value, ok := provider.Resolve(name); ok {
			return value, true
		}
	}
	return "", false
}

var placeholderPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Expand replaces every {{name}} placeholder whose name resolves through the
// provider chain. Placeholders that do not resolve are returned verbatim.
func (r *Resolver) Expand(input string) string {
	if r == nil || !strings.Contains(input, "{{") {
		return input
	}
	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := strings.TrimSpace(placeholderPattern.FindStringSubmatch(match)[1])
		if name == "" {
			return match
		}
		if value, ok := r.Resolve(name); ok {
			return value
		}
		return match
	})
}

// ExpandAll expands every value of a map, returning a new map.
func (r *Resolver) ExpandAll(values map[string]string) map[string]string {
	if values == nil {
		return nil
	}
	expanded := make(map[string]string, len(values))
	for k, v := range values {
		expanded[k] = r.Expand(v)
	}
	return expanded
}

// Substitute applies a plain key/value set to text. Overlapping keys where one
// key is a literal substring of another are unspecified; callers should avoid
// them.
func Substitute(text string, values map[string]string) string {
	if len(values) == 0 {
		return text
	}
	return NewResolver(NewMapProvider("values", values)).Expand(text)
}

type MapProvider struct {
	values map[string]string
	label  string
}

func NewMapProvider(label string, values map[string]string) Provider {
	return &MapProvider{values: values, label: label}
}

func (p *MapProvider) Resolve(name string) (string, bool) {
	value, ok := p.values[name]
	return value, ok
}

func (p *MapProvider) Label() string {
	return p.label
}

// EnvProvider resolves variables from the process environment as a fallback.
type EnvProvider struct{}

func (EnvProvider) Resolve(name string) (string, bool) {
	if value, ok := os.LookupEnv(name); ok {
		return value, true
	}
	return os.LookupEnv(strings.ToUpper(name))
}

func (EnvProvider) Label() string {
	return "env"
}
