package environment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"chefops/cookbook-cleaner/pkg/config"
	"chefops/cookbook-cleaner/pkg/registry"
)

// Revision identifies the chef-repo commit pins were read from.
type Revision struct {
	SHA       string    `json:"sha"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Branch    string    `json:"branch"`
}

// GitSource reads environment pins from a chef-repo Git repository.
// Every LoadPins clones the repository on first use and pulls on later
// calls, so a scheduled run always sees the latest promoted versions.
type GitSource struct {
	config    *config.GitSourceConfig
	localPath string
	auth      *gitAuth
	logger    *slog.Logger

	mu       sync.Mutex
	repo     *gogit.Repository
	revision *Revision
}

var _ registry.PinLoader = (*GitSource)(nil)

// NewGitSource creates a GitSource. Nothing is fetched until the first
// LoadPins or Sync.
func NewGitSource(cfg *config.GitSourceConfig, logger *slog.Logger) (*GitSource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, fmt.Errorf("branch cannot be empty")
	}

	auth, err := newGitAuth(&cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("invalid git auth: %w", err)
	}

	localPath := cfg.Clone.LocalPath
	if localPath == "" {
		localPath = filepath.Join(os.TempDir(), config.DefaultGitLocalPathName)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &GitSource{
		config:    cfg,
		localPath: localPath,
		auth:      auth,
		logger:    logger,
	}, nil
}

// LoadPins implements registry.PinLoader.
func (s *GitSource) LoadPins(ctx context.Context, environment string) (registry.Pins, error) {
	if err := s.Sync(ctx); err != nil {
		return nil, registry.NewUnavailableError("pins", s.config.Repository, err)
	}

	doc, err := NewFileSource(filepath.Join(s.localPath, s.config.Path)).Load(environment)
	if err != nil {
		return nil, registry.NewUnavailableError("pins", s.config.Repository, err)
	}
	return doc.Pins(), nil
}

// Sync clones the repository if there is no working copy yet, otherwise
// pulls the configured branch.
func (s *GitSource) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		if err := s.clone(ctx); err != nil {
			return err
		}
	} else if err := s.pull(ctx); err != nil {
		return err
	}

	rev, err := s.head()
	if err != nil {
		return err
	}
	s.revision = rev

	s.logger.DebugContext(ctx, "chef-repo synchronized",
		"repository", s.config.Repository,
		"branch", s.config.Branch,
		"sha", rev.SHA,
	)
	return nil
}

// Revision returns the commit read by the last successful Sync, or nil.
func (s *GitSource) Revision() *Revision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// LocalPath returns the working copy location.
func (s *GitSource) LocalPath() string {
	return s.localPath
}

func (s *GitSource) clone(ctx context.Context) error {
	if s.config.Clone.CleanOnStart {
		if err := os.RemoveAll(s.localPath); err != nil {
			return fmt.Errorf("failed to clean existing working copy: %w", err)
		}
	}

	if _, err := os.Stat(filepath.Join(s.localPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(s.localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo: %w", err)
		}
		s.repo = repo
		s.logger.InfoContext(ctx, "using existing chef-repo working copy", "path", s.localPath)
		return s.pull(ctx)
	}

	if err := os.MkdirAll(s.localPath, 0755); err != nil {
		return fmt.Errorf("failed to create working copy directory: %w", err)
	}

	auth, err := s.auth.method()
	if err != nil {
		return fmt.Errorf("failed to get auth: %w", err)
	}

	cloneCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, s.localPath, false, &gogit.CloneOptions{
		URL:           s.config.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(s.config.Branch),
		SingleBranch:  true,
		Depth:         s.config.Clone.Depth,
		Auth:          auth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}

	s.repo = repo
	s.logger.InfoContext(ctx, "cloned chef-repo",
		"repository", s.config.Repository,
		"branch", s.config.Branch,
		"auth", s.auth.kind,
		"path", s.localPath,
	)
	return nil
}

func (s *GitSource) pull(ctx context.Context) error {
	worktree, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	auth, err := s.auth.method()
	if err != nil {
		return fmt.Errorf("failed to get auth: %w", err)
	}

	pullCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(s.config.Branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull: %w", err)
	}
	return nil
}

func (s *GitSource) head() (*Revision, error) {
	ref, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	commit, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	return &Revision{
		SHA:       commit.Hash.String(),
		Author:    commit.Author.Name,
		Timestamp: commit.Author.When,
		Message:   commit.Message,
		Branch:    s.config.Branch,
	}, nil
}

func (s *GitSource) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.Timeout)
}
