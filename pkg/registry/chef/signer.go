package chef

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"
	"time"
)

const (
	signVersion       = "1.3"
	signHeader        = "algorithm=sha256;version=" + signVersion
	authHeaderPrefix  = "X-Ops-Authorization-"
	authHeaderLineLen = 60
	timestampLayout   = "2006-01-02T15:04:05Z"
)

// Signer signs Chef server API requests with the client's RSA key using
// version 1.3 of the Chef authentication protocol.
type Signer struct {
	ClientName string
	Key        *rsa.PrivateKey
	APIVersion string

	// now is replaceable in tests.
	now func() time.Time
}

// NewSigner creates a Signer.
func NewSigner(clientName string, key *rsa.PrivateKey, apiVersion string) *Signer {
	return &Signer{
		ClientName: clientName,
		Key:        key,
		APIVersion: apiVersion,
		now:        time.Now,
	}
}

// LoadPrivateKey reads a PEM encoded RSA private key in PKCS#1 or PKCS#8 form.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client key %q: %w", path, err)
	}
	return ParsePrivateKey(data)
}

// ParsePrivateKey decodes a PEM encoded RSA private key.
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("client key is not PEM encoded")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("client key is %T, want RSA", parsed)
	}
	return key, nil
}

// Sign adds the X-Ops-* authentication headers to req. body must be the
// exact request body (nil for none).
func (s *Signer) Sign(req *http.Request, body []byte) error {
	timestamp := s.now().UTC().Format(timestampLayout)
	contentHash := hashBody(body)

	canonical := canonicalRequest(req.Method, req.URL.Path, contentHash, timestamp, s.ClientName, s.APIVersion)

	digest := sha256.Sum256([]byte(canonical))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.Key, crypto.SHA256, digest[:])
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}

	req.Header.Set("X-Ops-Sign", signHeader)
	req.Header.Set("X-Ops-Userid", s.ClientName)
	req.Header.Set("X-Ops-Timestamp", timestamp)
	req.Header.Set("X-Ops-Content-Hash", contentHash)
	req.Header.Set("X-Ops-Server-API-Version", s.APIVersion)

	encoded := base64.StdEncoding.EncodeToString(sig)
	for i, line := range splitLines(encoded, authHeaderLineLen) {
		req.Header.Set(fmt.Sprintf("%s%d", authHeaderPrefix, i+1), line)
	}

	return nil
}

// canonicalRequest builds the string signed under protocol version 1.3.
func canonicalRequest(method, requestPath, contentHash, timestamp, userID, apiVersion string) string {
	return strings.Join([]string{
		"Method:" + strings.ToUpper(method),
		"Path:" + canonicalPath(requestPath),
		"X-Ops-Content-Hash:" + contentHash,
		"X-Ops-Sign:version=" + signVersion,
		"X-Ops-Timestamp:" + timestamp,
		"X-Ops-UserId:" + userID,
		"X-Ops-Server-API-Version:" + apiVersion,
	}, "\n")
}

// canonicalPath collapses repeated slashes and drops a trailing slash.
func canonicalPath(p string) string {
	if p == "" {
		return "/"
	}
	cleaned := path.Clean("/" + p)
	return cleaned
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func splitLines(s string, n int) []string {
	lines := make([]string, 0, len(s)/n+1)
	for len(s) > n {
		lines = append(lines, s[:n])
		s = s[n:]
	}
	if s != "" {
		lines = append(lines, s)
	}
	return lines
}
