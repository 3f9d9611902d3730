package cleanup

import "testing"

func TestFilter_Match(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		cases  map[string]bool
	}{
		{
			name:   "empty admits everything",
			filter: Filter{},
			cases:  map[string]bool{"apache2": true, "base": true},
		},
		{
			name:   "include only",
			filter: Filter{Include: []string{"app-*", "nginx"}},
			cases:  map[string]bool{"app-web": true, "nginx": true, "apache2": false},
		},
		{
			name:   "exclude only",
			filter: Filter{Exclude: []string{"base-*"}},
			cases:  map[string]bool{"base-os": false, "apache2": true},
		},
		{
			name:   "exclude wins",
			filter: Filter{Include: []string{"app-*"}, Exclude: []string{"app-legacy"}},
			cases:  map[string]bool{"app-web": true, "app-legacy": false},
		},
		{
			name:   "malformed pattern never matches",
			filter: Filter{Exclude: []string{"base-["}},
			cases:  map[string]bool{"base-[": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for name, want := range tt.cases {
				if got := tt.filter.Match(name); got != want {
					t.Errorf("Match(%q) = %v, want %v", name, got, want)
				}
			}
		})
	}
}
