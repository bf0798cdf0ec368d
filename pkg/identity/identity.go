// Package identity implements per-agent Ed25519 key management and
// cryptographic attestation of assessments (spec.md §4.7).
package identity

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// Service manages Ed25519 identities persisted under a single directory.
type Service struct {
	store *keyStore
}

// NewService constructs a Service rooted at dir. The directory is created
// on first CreateIdentity call if it does not already exist.
func NewService(dir string) *Service {
	return &Service{store: newKeyStore(dir)}
}

// CreateIdentity generates an Ed25519 key pair for aiID and persists the
// private key with 0600 permissions. Refuses to overwrite existing key
// material unless overwrite is true.
func (s *Service) CreateIdentity(aiID string, overwrite bool) (ed25519.PublicKey, error) {
	if !overwrite && s.store.exists(aiID) {
		return nil, fmt.Errorf("%w: %s", ErrIdentityExists, aiID)
	}
	pub, _, err := s.store.generate(aiID)
	return pub, err
}

// ExportPublicKeyPEM returns aiID's public key as PKIX PEM text.
func (s *Service) ExportPublicKeyPEM(aiID string) (string, error) {
	return s.store.loadPublicPEM(aiID)
}

// Sign computes an Ed25519 signature over payload using aiID's private key.
func (s *Service) Sign(payload []byte, aiID string) ([]byte, error) {
	priv, err := s.store.loadPrivate(aiID)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(priv, payload), nil
}

// VerifyRaw reports whether signature is a valid Ed25519 signature over
// payload under publicKey. ed25519.Verify runs in constant time with
// respect to the signature comparison.
func (s *Service) VerifyRaw(payload, signature []byte, publicKey ed25519.PublicKey) bool {
	return VerifyRaw(payload, signature, publicKey)
}

// VerifyRaw reports whether signature is a valid Ed25519 signature over
// payload under publicKey. A free function since verification needs no
// local key material — pkg/agentmsg uses this directly to verify inbound
// envelopes against an embedded sender public key.
func VerifyRaw(payload, signature []byte, publicKey ed25519.PublicKey) bool {
	return ed25519.Verify(publicKey, payload, signature)
}

// ParsePublicKeyPEM decodes a PKIX-PEM-encoded Ed25519 public key as
// produced by ExportPublicKeyPEM.
func ParsePublicKeyPEM(pemText string) (ed25519.PublicKey, error) {
	return parsePublicKeyPEM(pemText)
}

// parsePublicKeyPEM decodes a PKIX-PEM-encoded Ed25519 public key as
// produced by ExportPublicKeyPEM.
func parsePublicKeyPEM(pemText string) (ed25519.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrKeyLoadError)
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyLoadError, err)
	}
	edPub, ok := pub.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: key is not Ed25519", ErrKeyLoadError)
	}
	return edPub, nil
}
