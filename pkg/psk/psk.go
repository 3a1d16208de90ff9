// Package psk provides pre-shared-key material for the secdgram handshake.
//
// Keys are provisioned out-of-band and must be identical on both peers.
// A Provider is consulted synchronously from inside the handshake and must
// always yield a key; key absence is not representable. Deployments that
// need rotated or per-peer keys implement their own Provider.
package psk

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Key material constraints.
const (
	// MinKeyLength is the shortest accepted key in bytes.
	MinKeyLength = 1

	// MaxKeyLength is the longest accepted key in bytes.
	MaxKeyLength = 64

	// DeriveIterations is the PBKDF2 iteration count for passphrase keys.
	DeriveIterations = 210000

	// DeriveKeyLength is the derived key size in bytes.
	DeriveKeyLength = 32
)

// Provider errors.
var (
	ErrEmptyKey   = errors.New("pre-shared key is empty")
	ErrKeyTooLong = errors.New("pre-shared key exceeds maximum length")
)

// DefaultKey returns the development pre-shared key. Both ends of a test
// deployment know this value; production deployments provision their own.
func DefaultKey() []byte {
	return []byte{0x1a, 0x2b, 0x3c, 0x4d, 0x5e, 0x6f}
}

// Provider supplies the identity and key used during the handshake.
// Implementations must not block: the handshake calls Key synchronously.
type Provider interface {
	// Identity returns the identity string presented to the peer.
	Identity() string

	// Key returns the key for the given identity hint from the peer.
	// The hint may be empty; a key must be returned regardless.
	Key(hint []byte) ([]byte, error)
}

// Static is a Provider with a fixed identity and key.
type Static struct {
	identity string
	key      []byte
}

// NewStatic creates a Provider that always returns the given identity and key.
func NewStatic(identity string, key []byte) (*Static, error) {
	if len(key) < MinKeyLength {
		return nil, ErrEmptyKey
	}
	if len(key) > MaxKeyLength {
		return nil, ErrKeyTooLong
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Static{identity: identity, key: k}, nil
}

// Identity returns the configured identity.
func (s *Static) Identity() string {
	return s.identity
}

// Key returns the configured key. The hint is ignored.
func (s *Static) Key(_ []byte) ([]byte, error) {
	return s.key, nil
}

// ParseKey decodes a hex-encoded key string such as "1a2b3c4d5e6f".
func ParseKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex key: %w", err)
	}
	if len(key) < MinKeyLength {
		return nil, ErrEmptyKey
	}
	if len(key) > MaxKeyLength {
		return nil, ErrKeyTooLong
	}
	return key, nil
}

// DeriveKey derives a key from a passphrase with PBKDF2-SHA256.
// The salt must match on both peers; the association name is a reasonable
// choice when both ends agree on it.
func DeriveKey(passphrase, salt string) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(salt), DeriveIterations, DeriveKeyLength, sha256.New)
}

// Compile-time interface satisfaction check.
var _ Provider = (*Static)(nil)
