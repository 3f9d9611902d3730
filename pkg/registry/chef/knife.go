package chef

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// KnifeConfig holds the settings read from a knife.rb.
type KnifeConfig struct {
	ServerURL  string
	NodeName   string
	ClientKey  string
	SourcePath string
}

var (
	// chef_server_url "https://..." / node_name 'admin' / client_key "#{current_dir}/admin.pem"
	knifeSettingRe = regexp.MustCompile(`^\s*(chef_server_url|node_name|client_key)\s*\(?\s*(?:"([^"]*)"|'([^']*)')\s*\)?\s*(?:#.*)?$`)
	knifeEnvRe     = regexp.MustCompile(`#\{ENV\[['"]([A-Za-z_][A-Za-z0-9_]*)['"]\]\}`)
)

// ParseKnifeConfig reads the settings cookbook-cleaner needs from a
// knife.rb. Only literal string assignments are understood; the
// interpolations #{current_dir}, #{File.dirname(__FILE__)} and
// #{ENV['NAME']} are expanded. Relative client_key paths are resolved
// against the knife.rb directory.
func ParseKnifeConfig(path string) (*KnifeConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open knife config %q: %w", path, err)
	}
	defer f.Close()

	dir := filepath.Dir(path)
	kc := &KnifeConfig{SourcePath: path}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := knifeSettingRe.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}

		value := m[2]
		if value == "" {
			value = m[3]
		}
		// Single-quoted Ruby strings are not interpolated.
		if m[3] == "" {
			value = expandKnifeValue(value, dir)
		}

		switch m[1] {
		case "chef_server_url":
			kc.ServerURL = value
		case "node_name":
			kc.NodeName = value
		case "client_key":
			if value != "" && !filepath.IsAbs(value) {
				value = filepath.Join(dir, value)
			}
			kc.ClientKey = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read knife config %q: %w", path, err)
	}

	return kc, nil
}

func expandKnifeValue(value, dir string) string {
	value = strings.ReplaceAll(value, "#{current_dir}", dir)
	value = strings.ReplaceAll(value, "#{File.dirname(__FILE__)}", dir)
	return knifeEnvRe.ReplaceAllStringFunc(value, func(s string) string {
		name := knifeEnvRe.FindStringSubmatch(s)[1]
		return os.Getenv(name)
	})
}
