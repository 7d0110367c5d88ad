package lending

import (
	"testing"

	"nftlend/crypto"
)

func TestDeriveProfileAddressDeterministic(t *testing.T) {
	programID := makeKey(0x01)
	collection := makeKey(0x11)
	token := makeKey(0x12)

	a1, bump1, err := DeriveProfileAddress(collection, token, 1, programID)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	a2, bump2, err := DeriveProfileAddress(collection, token, 1, programID)
	if err != nil {
		t.Fatalf("derive again: %v", err)
	}
	if !a1.Equals(a2) || bump1 != bump2 {
		t.Fatal("derivation must be deterministic")
	}

	a3, _, err := DeriveProfileAddress(collection, token, 2, programID)
	if err != nil {
		t.Fatalf("derive with other id: %v", err)
	}
	if a1.Equals(a3) {
		t.Fatal("distinct ids must derive distinct addresses")
	}
}

func TestLoanDerivationChain(t *testing.T) {
	programID := makeKey(0x01)
	profile := makeKey(0x11)
	lender := makeKey(0xBB)

	loan, _, err := DeriveLoanAddress(profile, lender, 1, programID)
	if err != nil {
		t.Fatalf("loan: %v", err)
	}
	escrow, _, err := DeriveLoanEscrowAddress(loan, programID)
	if err != nil {
		t.Fatalf("escrow: %v", err)
	}
	escrowToken, _, err := DeriveEscrowTokenAccount(escrow, programID)
	if err != nil {
		t.Fatalf("escrow token: %v", err)
	}

	seen := map[crypto.PublicKey]bool{loan: true}
	for _, pk := range []crypto.PublicKey{escrow, escrowToken} {
		if seen[pk] {
			t.Fatal("derivation chain must not collide")
		}
		seen[pk] = true
	}
}

func TestDeriveUserAccountAddress(t *testing.T) {
	programID := makeKey(0x01)
	a, _, err := DeriveUserAccountAddress(makeKey(0xCC), programID)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	b, _, err := DeriveUserAccountAddress(makeKey(0xCD), programID)
	if err != nil {
		t.Fatalf("derive other wallet: %v", err)
	}
	if a.Equals(b) {
		t.Fatal("distinct wallets must derive distinct addresses")
	}
}
