package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type fakeTable struct {
	header []string
	rows   [][]string
}

func (f fakeTable) Header() []string { return f.header }
func (f fakeTable) Rows() [][]string { return f.rows }

var cookbooks = fakeTable{
	header: []string{"cookbook", "planned"},
	rows: [][]string{
		{"apache2", "3"},
		{"nginx", "0"},
		{"openssl, legacy", "1"},
	},
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "text", want: FormatText},
		{in: "JSON", want: FormatJSON},
		{in: "csv", want: FormatCSV},
		{in: "yaml", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			if ExitCode(err) != ExitConfig {
				t.Errorf("invalid format should be a config error, got exit %d", ExitCode(err))
			}
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTextFormatter_Table(t *testing.T) {
	var buf bytes.Buffer
	if err := (TextFormatter{}).FormatTo(&buf, cookbooks); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 3 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "COOKBOOK") || !strings.Contains(lines[0], "PLANNED") {
		t.Errorf("unexpected header %q", lines[0])
	}
	col := strings.Index(lines[0], "PLANNED")
	for _, l := range lines[1:] {
		if len(l) <= col || l[col] == ' ' {
			t.Errorf("row %q not aligned with header column %d", l, col)
		}
	}
}

func TestTextFormatter_Value(t *testing.T) {
	var buf bytes.Buffer
	if err := (TextFormatter{}).FormatTo(&buf, "dry run complete"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "dry run complete\n" {
		t.Errorf("FormatTo() = %q", buf.String())
	}
}

func TestJSONFormatter(t *testing.T) {
	data := map[string]int{"versions_planned": 3}

	for _, indent := range []bool{false, true} {
		var buf bytes.Buffer
		if err := (JSONFormatter{Indent: indent}).FormatTo(&buf, data); err != nil {
			t.Fatalf("FormatTo() error = %v", err)
		}

		var decoded map[string]int
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON %q: %v", buf.String(), err)
		}
		if decoded["versions_planned"] != 3 {
			t.Errorf("decoded %v", decoded)
		}
		if got := strings.Contains(buf.String(), "\n  "); got != indent {
			t.Errorf("indent=%v but output %q", indent, buf.String())
		}
	}
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (CSVFormatter{}).FormatTo(&buf, cookbooks); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	want := "cookbook,planned\napache2,3\nnginx,0\n\"openssl, legacy\",1\n"
	if buf.String() != want {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), want)
	}

	if err := (CSVFormatter{}).FormatTo(&buf, struct{}{}); err == nil {
		t.Error("expected error for a value that is not a table")
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format OutputFormat
		want   Formatter
	}{
		{FormatText, TextFormatter{}},
		{FormatJSON, JSONFormatter{Indent: true}},
		{FormatCSV, CSVFormatter{}},
		{"unknown", TextFormatter{}},
	}

	for _, tt := range tests {
		if got := NewFormatter(tt.format); got != tt.want {
			t.Errorf("NewFormatter(%q) = %#v, want %#v", tt.format, got, tt.want)
		}
	}
}
