package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
)

// Program derived addresses are computed by hashing the caller supplied seeds
// together with the owning program identifier and a fixed marker, then
// searching for a bump byte that pushes the result off the ed25519 curve. An
// off-curve address has no corresponding private key, so only the owning
// program can authorise transfers from it.

const (
	// MaxSeeds bounds the number of seed components in a single derivation.
	MaxSeeds = 16
	// MaxSeedLength bounds the byte length of each individual seed.
	MaxSeedLength = 32

	pdaMarker = "ProgramDerivedAddress"
)

var (
	// ErrBumpSeedExhausted is returned when no bump byte produces an
	// off-curve address. This is cryptographically negligible for honest
	// inputs and indicates a fatal configuration error, never a retry.
	ErrBumpSeedExhausted = errors.New("crypto: bump seed exhausted while deriving program address")
	// ErrIllegalSeed is returned when a seed violates the length limits.
	ErrIllegalSeed = errors.New("crypto: illegal program address seed")
)

// CreateProgramAddress derives the address for the exact seed list, failing if
// the result lands on the ed25519 curve.
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return PublicKey{}, fmt.Errorf("%w: %d seeds exceeds maximum of %d", ErrIllegalSeed, len(seeds), MaxSeeds)
	}
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return PublicKey{}, fmt.Errorf("%w: seed of %d bytes exceeds maximum of %d", ErrIllegalSeed, len(seed), MaxSeedLength)
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var derived PublicKey
	copy(derived[:], h.Sum(nil))
	if isOnCurve(derived) {
		return PublicKey{}, errors.New("crypto: derived address lands on the ed25519 curve")
	}
	return derived, nil
}

// FindProgramAddress searches the bump space from 255 downwards for the first
// bump that yields a valid program address. The same inputs always produce the
// same address and bump.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		candidate := make([][]byte, len(seeds), len(seeds)+1)
		copy(candidate, seeds)
		candidate = append(candidate, []byte{uint8(bump)})
		derived, err := CreateProgramAddress(candidate, programID)
		if err != nil {
			if errors.Is(err, ErrIllegalSeed) {
				return PublicKey{}, 0, err
			}
			continue
		}
		return derived, uint8(bump), nil
	}
	return PublicKey{}, 0, ErrBumpSeedExhausted
}

func isOnCurve(pk PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(pk[:])
	return err == nil
}
