package crypto

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"

	"github.com/btcsuite/btcutil/base58"
)

// PublicKeyLength is the size in bytes of a ledger account address.
const PublicKeyLength = 32

// PublicKey represents a 32-byte ledger account address.
type PublicKey [PublicKeyLength]byte

// ZeroPublicKey is the all-zero key. On-chain programs historically used it as
// a sentinel for "unset"; new code should prefer optional keys instead.
var ZeroPublicKey = PublicKey{}

// NewPublicKey constructs a public key from a raw 32-byte slice.
func NewPublicKey(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeyLength {
		return pk, fmt.Errorf("public key must be %d bytes long, got %d", PublicKeyLength, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// MustPublicKey constructs a public key from a base58 string and panics on
// malformed input. Intended for static program identifiers.
func MustPublicKey(s string) PublicKey {
	pk, err := DecodePublicKey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// DecodePublicKey parses the base58 text form of a public key.
func DecodePublicKey(s string) (PublicKey, error) {
	decoded := base58.Decode(s)
	if len(decoded) != PublicKeyLength {
		return PublicKey{}, fmt.Errorf("invalid base58 public key %q", s)
	}
	return NewPublicKey(decoded)
}

func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// Bytes returns a copy of the raw key material.
func (pk PublicKey) Bytes() []byte {
	return append([]byte(nil), pk[:]...)
}

// IsZero reports whether the key is the all-zero sentinel.
func (pk PublicKey) IsZero() bool {
	return pk == ZeroPublicKey
}

// Equals reports byte equality with another key.
func (pk PublicKey) Equals(other PublicKey) bool {
	return bytes.Equal(pk[:], other[:])
}

// MarshalText implements encoding.TextMarshaler using the base58 form.
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (pk *PublicKey) UnmarshalText(text []byte) error {
	decoded, err := DecodePublicKey(string(text))
	if err != nil {
		return err
	}
	*pk = decoded
	return nil
}

// --- Key Management ---

// Keypair bundles an ed25519 signing key with its public half.
type Keypair struct {
	priv ed25519.PrivateKey
}

// GenerateKeypair creates a fresh random keypair.
func GenerateKeypair() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Keypair{priv: priv}, nil
}

// KeypairFromBytes restores a keypair from a 64-byte expanded private key.
func KeypairFromBytes(b []byte) (*Keypair, error) {
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes long, got %d", ed25519.PrivateKeySize, len(b))
	}
	return &Keypair{priv: ed25519.PrivateKey(append([]byte(nil), b...))}, nil
}

// LoadKeypair reads a JSON byte-array keypair file, the format used by common
// wallet tooling.
func LoadKeypair(path string) (*Keypair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair file: %w", err)
	}
	var material []byte
	if err := json.Unmarshal(raw, &material); err != nil {
		return nil, fmt.Errorf("parse keypair file: %w", err)
	}
	return KeypairFromBytes(material)
}

// PublicKey returns the address associated with the keypair.
func (k *Keypair) PublicKey() PublicKey {
	var pk PublicKey
	copy(pk[:], k.priv.Public().(ed25519.PublicKey))
	return pk
}

// Bytes returns the expanded 64-byte private key.
func (k *Keypair) Bytes() []byte {
	return append([]byte(nil), k.priv...)
}

// Sign produces an ed25519 signature over the message.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}
