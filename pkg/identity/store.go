package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

const (
	privateKeyPerm = 0o600
	dirPerm        = 0o700
)

// keyStore persists Ed25519 key pairs under a directory, one file pair per
// ai_id: "<ai_id>.key" (private, OpenSSH-formatted PEM, 0600) and
// "<ai_id>.pub" (public key, PKIX PEM, world-readable).
type keyStore struct {
	dir string
}

func newKeyStore(dir string) *keyStore {
	return &keyStore{dir: dir}
}

func (s *keyStore) privatePath(aiID string) string { return filepath.Join(s.dir, aiID+".key") }
func (s *keyStore) publicPath(aiID string) string  { return filepath.Join(s.dir, aiID+".pub") }

func (s *keyStore) exists(aiID string) bool {
	_, err := os.Stat(s.privatePath(aiID))
	return err == nil
}

// generate creates a new Ed25519 key pair and persists both halves.
func (s *keyStore) generate(aiID string) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return nil, nil, fmt.Errorf("failed to create identity store directory: %w", err)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate Ed25519 key pair: %w", err)
	}

	privBlock, err := ssh.MarshalPrivateKey(priv, aiID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	if err := os.WriteFile(s.privatePath(aiID), pem.EncodeToMemory(privBlock), privateKeyPerm); err != nil {
		return nil, nil, fmt.Errorf("failed to write private key: %w", err)
	}

	pubBytes, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	pubBlock := &pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes}
	if err := os.WriteFile(s.publicPath(aiID), pem.EncodeToMemory(pubBlock), 0o644); err != nil {
		return nil, nil, fmt.Errorf("failed to write public key: %w", err)
	}

	return pub, priv, nil
}

func (s *keyStore) loadPrivate(aiID string) (ed25519.PrivateKey, error) {
	path := s.privatePath(aiID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &UnknownIdentityError{AIID: aiID}
		}
		return nil, &KeyLoadError{AIID: aiID, Path: path, Err: err}
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, &KeyLoadError{AIID: aiID, Path: path, Err: fmt.Errorf("no PEM block found")}
	}

	key, err := ssh.ParseRawPrivateKey(data)
	if err != nil {
		return nil, &KeyLoadError{AIID: aiID, Path: path, Err: err}
	}
	priv, ok := key.(*ed25519.PrivateKey)
	if !ok {
		return nil, &KeyLoadError{AIID: aiID, Path: path, Err: fmt.Errorf("key is not Ed25519")}
	}
	return *priv, nil
}

func (s *keyStore) loadPublicPEM(aiID string) (string, error) {
	path := s.publicPath(aiID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &UnknownIdentityError{AIID: aiID}
		}
		return "", &KeyLoadError{AIID: aiID, Path: path, Err: err}
	}
	return string(data), nil
}

