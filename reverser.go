package bserve

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// Reverser keeps track of named paths and allows building URLS. A path segment of the form "{name}" is a
// parameter that is filled in when reversing.
type Reverser struct {
	pats map[string][]string
}

// NewReverser inits the reverser.
func NewReverser() *Reverser {
	return &Reverser{make(map[string][]string)}
}

// Reverse reverses the named path into a url.
func (r Reverser) Reverse(name string, vals ...string) (string, error) {
	segs, ok := r.pats[name]
	if !ok {
		keys := lo.Keys(r.pats)
		slices.Sort(keys)

		return "", errors.Errorf("no route named: %q, got: %v", name, keys)
	}

	out := make([]string, len(segs))
	for i, seg := range segs {
		if !isParam(seg) {
			out[i] = seg
			continue
		}

		if len(vals) < 1 {
			return "", errors.Errorf("failed to build: not enough values for %q", name)
		}

		out[i], vals = vals[0], vals[1:]
	}

	if len(vals) > 0 {
		return "", errors.Errorf("failed to build: %d values left for %q", len(vals), name)
	}

	return "/" + strings.Join(out, "/"), nil
}

// Has reports whether a path with the name is known.
func (r Reverser) Has(name string) bool {
	_, ok := r.pats[name]
	return ok
}

// Named is a convenience method that panics if naming the path fails.
func (r Reverser) Named(name, str string) string {
	str, err := r.NamedPattern(name, str)
	if err != nil {
		panic("bserve: " + err.Error())
	}

	return str
}

// NamedPattern will parse 's' as an absolute path while returning it as well.
func (r Reverser) NamedPattern(name, str string) (string, error) {
	if _, exists := r.pats[name]; exists {
		return str, errors.Errorf("route with name %q already exists", name)
	}

	if !strings.HasPrefix(str, "/") {
		return str, errors.Errorf("failed to parse path: %q is not absolute", str)
	}

	segs := strings.Split(strings.TrimPrefix(str, "/"), "/")
	for _, seg := range segs {
		if strings.ContainsAny(seg, "{}") && !isParam(seg) {
			return str, errors.Errorf("failed to parse path: bad parameter segment %q", seg)
		}
	}

	r.pats[name] = segs

	return str, nil
}

func isParam(seg string) bool {
	return len(seg) > 2 && seg[0] == '{' && seg[len(seg)-1] == '}'
}
