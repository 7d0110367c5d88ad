package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func testProgramID() PublicKey {
	var pk PublicKey
	for i := range pk {
		pk[i] = byte(i + 1)
	}
	return pk
}

func TestFindProgramAddressDeterminism(t *testing.T) {
	programID := testProgramID()
	seeds := [][]byte{[]byte("LOAN"), bytes.Repeat([]byte{0xAB}, 32)}

	first, firstBump, err := FindProgramAddress(seeds, programID)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	second, secondBump, err := FindProgramAddress(seeds, programID)
	if err != nil {
		t.Fatalf("derive again: %v", err)
	}
	if !first.Equals(second) {
		t.Fatalf("expected identical addresses, got %s and %s", first, second)
	}
	if firstBump != secondBump {
		t.Fatalf("expected identical bumps, got %d and %d", firstBump, secondBump)
	}
}

func TestFindProgramAddressDistinctSeeds(t *testing.T) {
	programID := testProgramID()

	a, _, err := FindProgramAddress([][]byte{[]byte("ESCROW")}, programID)
	if err != nil {
		t.Fatalf("derive a: %v", err)
	}
	b, _, err := FindProgramAddress([][]byte{[]byte("ESCROW_TOKEN_ACCOUNT")}, programID)
	if err != nil {
		t.Fatalf("derive b: %v", err)
	}
	if a.Equals(b) {
		t.Fatalf("distinct seed tags must not collide: %s", a)
	}
}

func TestFindProgramAddressOffCurve(t *testing.T) {
	programID := testProgramID()
	derived, bump, err := FindProgramAddress([][]byte{[]byte("VAULT")}, programID)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if isOnCurve(derived) {
		t.Fatalf("derived address must not lie on the curve: %s", derived)
	}
	candidate := [][]byte{[]byte("VAULT"), {bump}}
	recreated, err := CreateProgramAddress(candidate, programID)
	if err != nil {
		t.Fatalf("recreate with bump %d: %v", bump, err)
	}
	if !recreated.Equals(derived) {
		t.Fatalf("recreate mismatch: %s != %s", recreated, derived)
	}
}

func TestCreateProgramAddressRejectsLongSeed(t *testing.T) {
	programID := testProgramID()
	_, err := CreateProgramAddress([][]byte{bytes.Repeat([]byte{1}, MaxSeedLength+1)}, programID)
	if !errors.Is(err, ErrIllegalSeed) {
		t.Fatalf("expected ErrIllegalSeed, got %v", err)
	}
}
