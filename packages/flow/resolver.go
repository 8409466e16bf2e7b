package flow

import (
	"regexp"
	"strings"
)

var (
	variablePattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)
	// [*$[ $$login.response.body.token ]$*]
	expressionPattern = regexp.MustCompile(`(?s)\[\*\$\[(.*?)\]\$\*\]`)
)

// WarnFunc is called for references that cannot be resolved
type WarnFunc func(format string, args ...any)

// Resolver substitutes environment variables and references to earlier
// nodes. {{name}} is an environment variable; {{$$block.path}} and
// [*$[ $$block.path ]$*] read the chain with a gjson path.
type Resolver struct {
	variables map[string]string
	chain     *Chain
	warn      WarnFunc
}

// NewResolver keeps the checked variables that have both a key and a value.
func NewResolver(vars []Variable, chain *Chain, warn WarnFunc) *Resolver {
	if warn == nil {
		warn = func(string, ...any) {}
	}
	r := &Resolver{
		variables: make(map[string]string, len(vars)),
		chain:     chain,
		warn:      warn,
	}
	for _, v := range vars {
		if !v.Checked || strings.TrimSpace(v.Key) == "" || strings.TrimSpace(v.Value) == "" {
			continue
		}
		r.variables[v.Key] = v.Value
	}
	return r
}

// Text substitutes into a plain value such as a URL, header or form field.
func (r *Resolver) Text(input string) string {
	return r.resolve(input, false)
}

// JSON substitutes into a raw JSON body. An expression resolving to a string
// is inserted quoted and one resolving to an object or array is inserted as
// JSON, so [*$[ $$login.response.body.user ]$*] can stand for a whole value.
func (r *Resolver) JSON(input string) string {
	return r.resolve(input, true)
}

func (r *Resolver) resolve(input string, asJSON bool) string {
	out := expressionPattern.ReplaceAllStringFunc(input, func(match string) string {
		ref := strings.TrimSpace(expressionPattern.FindStringSubmatch(match)[1])
		value, ok := r.chain.Lookup(ref)
		if !ok {
			r.warn("unresolved expression: %s", ref)
			return ""
		}
		if asJSON {
			return value.Raw
		}
		return value.String()
	})

	return variablePattern.ReplaceAllStringFunc(out, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])

		if strings.HasPrefix(name, ChainPrefix) {
			if value, ok := r.chain.Lookup(name); ok {
				return value.String()
			}
			r.warn("unresolved reference: %s", name)
			return match
		}

		if value, ok := r.variables[name]; ok {
			return value
		}
		r.warn("unresolved variable: %s", name)
		return match
	})
}
