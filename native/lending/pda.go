package lending

import (
	"encoding/binary"

	"nftlend/crypto"
)

// Seed tags for every account kind owned by the lending program. The tags are
// part of the deployed program's address space and must not change.
const (
	SeedCollectionLendingProfile = "COLLECTION_LENDING_PROFILE"
	SeedProfileVault             = "PROFILE_VAULT"
	SeedVault                    = "VAULT"
	SeedLoan                     = "LOAN"
	SeedEscrow                   = "ESCROW"
	SeedEscrowTokenAccount       = "ESCROW_TOKEN_ACCOUNT"
	SeedUserAccount              = "USER_ACCOUNT"
)

// Numeric discriminators are always encoded as 8-byte little-endian values.
// Earlier SDK revisions disagreed on the width; the on-chain program expects
// the full u64.
func encodeID(id uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, id)
	return buf
}

// DeriveProfileAddress derives the collection lending profile account for a
// (collection mint, token mint, profile id) tuple.
func DeriveProfileAddress(collectionMint, tokenMint crypto.PublicKey, profileID uint64, programID crypto.PublicKey) (crypto.PublicKey, uint8, error) {
	seeds := [][]byte{
		[]byte(SeedCollectionLendingProfile),
		collectionMint[:],
		tokenMint[:],
		encodeID(profileID),
	}
	return crypto.FindProgramAddress(seeds, programID)
}

// DeriveProfileTokenVaultAddress derives the token vault collecting
// token-denominated fees for a profile.
func DeriveProfileTokenVaultAddress(profile, programID crypto.PublicKey) (crypto.PublicKey, uint8, error) {
	return crypto.FindProgramAddress([][]byte{[]byte(SeedProfileVault), profile[:]}, programID)
}

// DeriveProfileVaultAddress derives the vault signer for a profile.
func DeriveProfileVaultAddress(profile, programID crypto.PublicKey) (crypto.PublicKey, uint8, error) {
	return crypto.FindProgramAddress([][]byte{[]byte(SeedVault), profile[:]}, programID)
}

// DeriveLoanAddress derives the loan account for a (profile, lender, loan id)
// tuple.
func DeriveLoanAddress(profile, lender crypto.PublicKey, loanID uint64, programID crypto.PublicKey) (crypto.PublicKey, uint8, error) {
	seeds := [][]byte{
		[]byte(SeedLoan),
		profile[:],
		lender[:],
		encodeID(loanID),
	}
	return crypto.FindProgramAddress(seeds, programID)
}

// DeriveLoanEscrowAddress derives the escrow signer for a loan.
func DeriveLoanEscrowAddress(loan, programID crypto.PublicKey) (crypto.PublicKey, uint8, error) {
	return crypto.FindProgramAddress([][]byte{[]byte(SeedEscrow), loan[:]}, programID)
}

// DeriveEscrowTokenAccount derives the token account held by a loan escrow.
func DeriveEscrowTokenAccount(escrow, programID crypto.PublicKey) (crypto.PublicKey, uint8, error) {
	return crypto.FindProgramAddress([][]byte{[]byte(SeedEscrowTokenAccount), escrow[:]}, programID)
}

// DeriveUserAccountAddress derives the statistics account for a wallet.
func DeriveUserAccountAddress(wallet, programID crypto.PublicKey) (crypto.PublicKey, uint8, error) {
	return crypto.FindProgramAddress([][]byte{[]byte(SeedUserAccount), wallet[:]}, programID)
}
