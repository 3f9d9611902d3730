package cleanup

import "path"

// Filter restricts a run to a subset of cookbooks by glob pattern.
type Filter struct {
	// Include, when non-empty, admits only cookbooks matching one pattern.
	Include []string

	// Exclude rejects cookbooks matching any pattern. Exclude wins over Include.
	Exclude []string
}

// Match reports whether the cookbook takes part in the run. Patterns use
// path.Match syntax and are validated when the configuration is loaded;
// a malformed pattern never matches.
func (f Filter) Match(name string) bool {
	for _, pattern := range f.Exclude {
		if ok, _ := path.Match(pattern, name); ok {
			return false
		}
	}

	if len(f.Include) == 0 {
		return true
	}
	for _, pattern := range f.Include {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
