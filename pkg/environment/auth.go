package environment

import (
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"chefops/cookbook-cleaner/pkg/config"
)

// Git auth types accepted in environment_source.git.auth.type.
const (
	AuthNone  = "none"
	AuthToken = "token"
	AuthSSH   = "ssh"
)

// gitAuth holds validated credentials for one remote. The transport
// method is built on every clone or pull so a rotated SSH key on disk is
// picked up by the next scheduled run.
type gitAuth struct {
	kind       string
	token      string
	keyPath    string
	passphrase string
}

func newGitAuth(cfg *config.GitAuthConfig) (*gitAuth, error) {
	if cfg == nil {
		return nil, fmt.Errorf("auth config cannot be nil")
	}

	switch cfg.Type {
	case AuthNone, "":
		return &gitAuth{kind: AuthNone}, nil
	case AuthToken:
		if cfg.Token == "" {
			return nil, fmt.Errorf("token auth requires non-empty token")
		}
		return &gitAuth{kind: AuthToken, token: cfg.Token}, nil
	case AuthSSH:
		if cfg.SSHKeyPath == "" {
			return nil, fmt.Errorf("ssh auth requires ssh_key_path")
		}
		return &gitAuth{
			kind:       AuthSSH,
			keyPath:    config.ExpandHome(cfg.SSHKeyPath),
			passphrase: cfg.SSHKeyPassphrase,
		}, nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", cfg.Type)
	}
}

// method returns the go-git transport auth, nil for public remotes.
func (a *gitAuth) method() (transport.AuthMethod, error) {
	switch a.kind {
	case AuthToken:
		// Hosts accept any non-empty username alongside a token.
		return &http.BasicAuth{Username: "git", Password: a.token}, nil
	case AuthSSH:
		info, err := os.Stat(a.keyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to access SSH key file: %w", err)
		}
		if mode := info.Mode().Perm(); mode&0077 != 0 {
			return nil, fmt.Errorf("SSH key file permissions too open (%o), should be 0600", mode)
		}
		keys, err := ssh.NewPublicKeysFromFile("git", a.keyPath, a.passphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to load SSH key: %w", err)
		}
		return keys, nil
	default:
		return nil, nil
	}
}
