package chef

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"chefops/cookbook-cleaner/pkg/config"
)

func writeKnife(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "knife.rb")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseKnifeConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CHEF_ORG", "acme")

	path := writeKnife(t, dir, `
current_dir = File.dirname(__FILE__)
log_level                :info
node_name                "cleaner"
client_key               "#{current_dir}/cleaner.pem"
chef_server_url          "https://chef.example.com/organizations/#{ENV['CHEF_ORG']}" # org from env
cookbook_path            ["#{current_dir}/../cookbooks"]
`)

	kc, err := ParseKnifeConfig(path)
	if err != nil {
		t.Fatalf("ParseKnifeConfig() error = %v", err)
	}

	if kc.NodeName != "cleaner" {
		t.Errorf("expected node name %q, got %q", "cleaner", kc.NodeName)
	}
	if want := filepath.Join(dir, "cleaner.pem"); kc.ClientKey != want {
		t.Errorf("expected client key %q, got %q", want, kc.ClientKey)
	}
	if kc.ServerURL != "https://chef.example.com/organizations/acme" {
		t.Errorf("unexpected server URL %q", kc.ServerURL)
	}
}

func TestParseKnifeConfig_SingleQuotesAndRelativeKey(t *testing.T) {
	dir := t.TempDir()
	path := writeKnife(t, dir, `
node_name 'ops'
client_key 'keys/ops.pem'
chef_server_url('https://chef.internal/organizations/ops')
`)

	kc, err := ParseKnifeConfig(path)
	if err != nil {
		t.Fatalf("ParseKnifeConfig() error = %v", err)
	}
	if kc.NodeName != "ops" {
		t.Errorf("unexpected node name %q", kc.NodeName)
	}
	if want := filepath.Join(dir, "keys/ops.pem"); kc.ClientKey != want {
		t.Errorf("relative key should resolve against knife.rb directory: got %q", kc.ClientKey)
	}
	if kc.ServerURL != "https://chef.internal/organizations/ops" {
		t.Errorf("unexpected server URL %q", kc.ServerURL)
	}
}

func TestParseKnifeConfig_Missing(t *testing.T) {
	if _, err := ParseKnifeConfig(filepath.Join(t.TempDir(), "knife.rb")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFromConfig_KnifeFallback(t *testing.T) {
	dir := t.TempDir()
	writeTestKey(t, dir)
	knife := writeKnife(t, dir, `
node_name "knife-user"
client_key "#{current_dir}/client.pem"
chef_server_url "https://chef.example.com/organizations/acme"
`)

	cfg, err := FromConfig(config.ChefConfig{
		ClientName:  "explicit-user",
		KnifeConfig: knife,
		APIVersion:  "1",
		Timeout:     10 * time.Second,
		MaxRetries:  4,
	})
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}

	if cfg.ClientName != "explicit-user" {
		t.Errorf("explicit client name should win, got %q", cfg.ClientName)
	}
	if cfg.ServerURL != "https://chef.example.com/organizations/acme" {
		t.Errorf("server URL should come from knife.rb, got %q", cfg.ServerURL)
	}
	if cfg.Key == nil {
		t.Error("expected key to be loaded")
	}
	if cfg.MaxRetries != 4 || cfg.Timeout != 10*time.Second {
		t.Errorf("transport settings not carried over: %+v", cfg)
	}
}

func TestFromConfig_MissingSettings(t *testing.T) {
	_, err := FromConfig(config.ChefConfig{
		ServerURL:   "https://chef.example.com/organizations/acme",
		KnifeConfig: filepath.Join(t.TempDir(), "absent.rb"),
	})
	if err == nil {
		t.Fatal("expected error when client name and key are missing")
	}
}
