package environment

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"chefops/cookbook-cleaner/pkg/config"
	"chefops/cookbook-cleaner/pkg/registry"
)

// createChefRepo initializes a chef-repo with one production environment.
func createChefRepo(t *testing.T, dir, constraint string) *gogit.Repository {
	t.Helper()

	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	commitEnvironment(t, repo, dir, constraint)
	return repo
}

func commitEnvironment(t *testing.T, repo *gogit.Repository, dir, constraint string) {
	t.Helper()

	writeFile(t, filepath.Join(dir, "environments", "production.json"),
		`{"name":"production","cookbook_versions":{"apache2":"`+constraint+`"}}`)

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if _, err := worktree.Add("environments/production.json"); err != nil {
		t.Fatalf("failed to add file: %v", err)
	}
	_, err = worktree.Commit("promote apache2 "+constraint, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Release Bot",
			Email: "release@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
}

func gitConfig(t *testing.T, repository string) *config.GitSourceConfig {
	t.Helper()
	return &config.GitSourceConfig{
		Repository: repository,
		Branch:     "master", // go-git init creates "master" by default
		Path:       "environments",
		Auth:       config.GitAuthConfig{Type: "none"},
		Clone: config.GitCloneConfig{
			LocalPath: filepath.Join(t.TempDir(), "checkout"),
		},
		Timeout: 10 * time.Second,
	}
}

func TestNewGitSource(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.GitSourceConfig
		wantErr bool
	}{
		{name: "nil config", cfg: nil, wantErr: true},
		{name: "empty repository", cfg: &config.GitSourceConfig{Branch: "main"}, wantErr: true},
		{name: "empty branch", cfg: &config.GitSourceConfig{Repository: "https://example.com/chef-repo.git"}, wantErr: true},
		{
			name:    "unknown auth",
			cfg:     &config.GitSourceConfig{Repository: "https://example.com/chef-repo.git", Branch: "main", Auth: config.GitAuthConfig{Type: "kerberos"}},
			wantErr: true,
		},
		{
			name: "valid",
			cfg:  &config.GitSourceConfig{Repository: "https://example.com/chef-repo.git", Branch: "main"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGitSource(tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewGitSource() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGitSource_LoadPinsFollowsPromotions(t *testing.T) {
	sourceDir := t.TempDir()
	repo := createChefRepo(t, sourceDir, "= 1.0.0")

	src, err := NewGitSource(gitConfig(t, sourceDir), nil)
	if err != nil {
		t.Fatalf("NewGitSource() error = %v", err)
	}

	pins, err := src.LoadPins(context.Background(), "production")
	if err != nil {
		t.Fatalf("LoadPins() error = %v", err)
	}
	if pins["apache2"] != "= 1.0.0" {
		t.Errorf("unexpected pins %v", pins)
	}

	first := src.Revision()
	if first == nil || first.SHA == "" {
		t.Fatal("expected revision after sync")
	}

	commitEnvironment(t, repo, sourceDir, "= 2.0.0")

	pins, err = src.LoadPins(context.Background(), "production")
	if err != nil {
		t.Fatalf("LoadPins() after promotion error = %v", err)
	}
	if pins["apache2"] != "= 2.0.0" {
		t.Errorf("expected promoted pin, got %v", pins)
	}
	if src.Revision().SHA == first.SHA {
		t.Error("expected revision to advance after pull")
	}
}

func TestGitSource_ReusesExistingCheckout(t *testing.T) {
	sourceDir := t.TempDir()
	createChefRepo(t, sourceDir, "= 1.0.0")
	cfg := gitConfig(t, sourceDir)

	first, err := NewGitSource(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Sync(context.Background()); err != nil {
		t.Fatalf("first Sync() error = %v", err)
	}

	second, err := NewGitSource(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Sync(context.Background()); err != nil {
		t.Fatalf("second Sync() on existing checkout error = %v", err)
	}
	if second.Revision().SHA != first.Revision().SHA {
		t.Error("expected both sources to read the same commit")
	}
}

func TestGitSource_Unavailable(t *testing.T) {
	cfg := gitConfig(t, filepath.Join(t.TempDir(), "missing-repo"))
	src, err := NewGitSource(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = src.LoadPins(context.Background(), "production")
	if !registry.IsUnavailable(err) {
		t.Errorf("expected unavailable error for missing repository, got %v", err)
	}
}

func TestGitAuth_RejectsOpenKeyPermissions(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(keyPath, []byte("not a key"), 0644); err != nil {
		t.Fatal(err)
	}

	a, err := newGitAuth(&config.GitAuthConfig{Type: AuthSSH, SSHKeyPath: keyPath})
	if err != nil {
		t.Fatalf("newGitAuth() error = %v", err)
	}
	if _, err := a.method(); err == nil {
		t.Error("expected error for world-readable key")
	}
}

func TestNewGitAuth(t *testing.T) {
	tests := []struct {
		name       string
		cfg        *config.GitAuthConfig
		wantKind   string
		wantMethod bool
		wantErr    bool
	}{
		{name: "default", cfg: &config.GitAuthConfig{}, wantKind: AuthNone},
		{name: "token", cfg: &config.GitAuthConfig{Type: "token", Token: "ghp_x"}, wantKind: AuthToken, wantMethod: true},
		{name: "token missing", cfg: &config.GitAuthConfig{Type: "token"}, wantErr: true},
		{name: "ssh", cfg: &config.GitAuthConfig{Type: "ssh", SSHKeyPath: "/keys/id"}, wantKind: AuthSSH},
		{name: "ssh missing key", cfg: &config.GitAuthConfig{Type: "ssh"}, wantErr: true},
		{name: "unknown", cfg: &config.GitAuthConfig{Type: "kerberos"}, wantErr: true},
		{name: "nil", cfg: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := newGitAuth(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newGitAuth() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if a.kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", a.kind, tt.wantKind)
			}
			if a.kind == AuthSSH {
				// Key loading is covered with a real file above.
				return
			}
			m, err := a.method()
			if err != nil {
				t.Fatalf("method() error = %v", err)
			}
			if (m != nil) != tt.wantMethod {
				t.Errorf("method() = %v, want non-nil %v", m, tt.wantMethod)
			}
		})
	}
}
