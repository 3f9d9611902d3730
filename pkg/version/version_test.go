package version

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []uint64
		wantErr bool
	}{
		{name: "three segments", input: "1.2.3", want: []uint64{1, 2, 3}},
		{name: "single segment", input: "7", want: []uint64{7}},
		{name: "four segments", input: "2.0.0.4", want: []uint64{2, 0, 0, 4}},
		{name: "surrounding whitespace", input: "  0.1.0 ", want: []uint64{0, 1, 0}},
		{name: "leading zeros", input: "01.002", want: []uint64{1, 2}},
		{name: "empty", input: "", wantErr: true},
		{name: "blank", input: "   ", wantErr: true},
		{name: "empty segment", input: "1..2", wantErr: true},
		{name: "trailing dot", input: "1.2.", wantErr: true},
		{name: "alpha segment", input: "1.2.beta", wantErr: true},
		{name: "negative segment", input: "1.-2", wantErr: true},
		{name: "prerelease suffix", input: "1.2.3-rc1", wantErr: true},
		{name: "overflow", input: "99999999999999999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				var perr *ParseError
				if !errors.As(err, &perr) {
					t.Fatalf("Parse(%q) error type = %T, want *ParseError", tt.input, err)
				}
				if perr.Input != tt.input {
					t.Errorf("ParseError.Input = %q, want %q", perr.Input, tt.input)
				}
				return
			}
			if !reflect.DeepEqual(got.Segments(), tt.want) {
				t.Errorf("Parse(%q) segments = %v, want %v", tt.input, got.Segments(), tt.want)
			}
		})
	}
}

func TestParsePin(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		want       string
		wantErr    bool
	}{
		{name: "equality with space", constraint: "= 1.4.0", want: "1.4.0"},
		{name: "equality without space", constraint: "=2.0", want: "2.0"},
		{name: "bare version", constraint: "3.1.4", want: "3.1.4"},
		{name: "pessimistic operator", constraint: "~> 1.2", wantErr: true},
		{name: "greater or equal", constraint: ">= 1.0.0", wantErr: true},
		{name: "less than", constraint: "< 2.0", wantErr: true},
		{name: "equality with garbage", constraint: "= latest", wantErr: true},
		{name: "empty", constraint: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePin(tt.constraint)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePin(%q) error = %v, wantErr %v", tt.constraint, err, tt.wantErr)
			}
			if tt.wantErr {
				var perr *ParseError
				if !errors.As(err, &perr) {
					t.Fatalf("ParsePin(%q) error type = %T, want *ParseError", tt.constraint, err)
				}
				if perr.Input != tt.constraint {
					t.Errorf("ParseError.Input = %q, want %q", perr.Input, tt.constraint)
				}
				return
			}
			if got.String() != tt.want {
				t.Errorf("ParsePin(%q) = %q, want %q", tt.constraint, got.String(), tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want Ordering
	}{
		{"1.0.0", "1.0.0", Equal},
		{"1.0", "1.0.0", Equal},
		{"1", "1.0.0.0", Equal},
		{"1.9", "1.10", Less},
		{"1.10", "1.9", Greater},
		{"2.0", "1.99.99", Greater},
		{"1.2.3", "1.2.4", Less},
		{"1.2.0.1", "1.2", Greater},
		{"0.0.1", "0.1", Less},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			got := Compare(MustParse(tt.a), MustParse(tt.b))
			if got != tt.want {
				t.Errorf("Compare(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			// Antisymmetry
			if back := Compare(MustParse(tt.b), MustParse(tt.a)); back != -tt.want {
				t.Errorf("Compare(%s, %s) = %v, want %v", tt.b, tt.a, back, -tt.want)
			}
		})
	}
}

func TestCompare_TotalOrder(t *testing.T) {
	inputs := []string{"0", "0.1", "1", "1.0.1", "1.2", "1.9", "1.10", "1.10.0", "2", "10.0"}
	versions := make([]Version, len(inputs))
	for i, s := range inputs {
		versions[i] = MustParse(s)
	}

	for _, a := range versions {
		for _, b := range versions {
			ab := Compare(a, b)
			if ab != Less && ab != Equal && ab != Greater {
				t.Fatalf("Compare(%s, %s) returned %v", a, b, ab)
			}
			for _, c := range versions {
				// Transitivity: a <= b and b <= c implies a <= c.
				if ab != Greater && Compare(b, c) != Greater && Compare(a, c) == Greater {
					t.Errorf("transitivity violated for %s, %s, %s", a, b, c)
				}
			}
		}
	}
}

func TestSortDescending(t *testing.T) {
	input := []Version{
		MustParse("1.0"),
		MustParse("1.10"),
		MustParse("1.2.0"),
		MustParse("1.9"),
		MustParse("1.2"),
		MustParse("2.0"),
	}

	SortDescending(input)

	want := []string{"2.0", "1.10", "1.9", "1.2.0", "1.2", "1.0"}
	if got := Strings(input); !reflect.DeepEqual(got, want) {
		t.Errorf("SortDescending() = %v, want %v", got, want)
	}
}

func TestVersion_String(t *testing.T) {
	if got := MustParse(" 1.02 ").String(); got != "1.02" {
		t.Errorf("String() = %q, want %q", got, "1.02")
	}
	var zero Version
	if got := zero.String(); got != "0" {
		t.Errorf("zero String() = %q, want %q", got, "0")
	}
	if !zero.Equal(MustParse("0.0")) {
		t.Error("zero value should equal 0.0")
	}
}

func TestVersion_TextRoundTrip(t *testing.T) {
	var v Version
	if err := v.UnmarshalText([]byte("4.5.6")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	text, err := v.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(text) != "4.5.6" {
		t.Errorf("MarshalText() = %q, want %q", text, "4.5.6")
	}
	if err := v.UnmarshalText([]byte("x")); err == nil {
		t.Error("UnmarshalText(x) should fail")
	}
}

func TestParseAll(t *testing.T) {
	got, err := ParseAll([]string{"1.0", "1.1"})
	if err != nil {
		t.Fatalf("ParseAll() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ParseAll() len = %d, want 2", len(got))
	}

	if _, err := ParseAll([]string{"1.0", "nope"}); err == nil {
		t.Error("ParseAll() should fail on invalid entry")
	}
}
