package lending

import (
	"crypto/sha256"
	"encoding/binary"

	"nftlend/crypto"
	"nftlend/native/lending"
)

// Well known program and sysvar addresses referenced by the instruction
// account lists.
var (
	SystemProgramID          = crypto.MustPublicKey("11111111111111111111111111111111")
	TokenProgramID           = crypto.MustPublicKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID = crypto.MustPublicKey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	RentSysvarID             = crypto.MustPublicKey("SysvarRent111111111111111111111111111111111")
	TokenMetadataProgramID   = crypto.MustPublicKey("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
)

// AccountMeta describes one account an instruction touches.
type AccountMeta struct {
	PublicKey  crypto.PublicKey
	IsSigner   bool
	IsWritable bool
}

func meta(pk crypto.PublicKey) AccountMeta     { return AccountMeta{PublicKey: pk} }
func writable(pk crypto.PublicKey) AccountMeta { return AccountMeta{PublicKey: pk, IsWritable: true} }
func signer(pk crypto.PublicKey) AccountMeta   { return AccountMeta{PublicKey: pk, IsSigner: true} }
func writableSigner(pk crypto.PublicKey) AccountMeta {
	return AccountMeta{PublicKey: pk, IsSigner: true, IsWritable: true}
}

// Instruction is a program invocation ready to be placed in a transaction.
type Instruction struct {
	ProgramID crypto.PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// instructionData builds the wire payload: an 8-byte method discriminator,
// first 8 bytes of sha256("global:<name>"), followed by the argument bytes.
func instructionData(name string, args ...[]byte) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	data := append([]byte{}, sum[:8]...)
	for _, arg := range args {
		data = append(data, arg...)
	}
	return data
}

func u64Arg(v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return buf[:]
}

// optionU64Arg renders an optional u64: a presence tag byte followed by the
// value when set.
func optionU64Arg(v *uint64) []byte {
	if v == nil {
		return []byte{0}
	}
	buf := make([]byte, 9)
	buf[0] = 1
	binary.LittleEndian.PutUint64(buf[1:], *v)
	return buf
}

// CreateProfileAccounts carries the accounts for a profile creation
// instruction. Derived addresses come from the lending derivation helpers.
type CreateProfileAccounts struct {
	Profile    crypto.PublicKey
	Collection crypto.PublicKey
	TokenMint  crypto.PublicKey
	TokenVault crypto.PublicKey
	Vault      crypto.PublicKey
	Authority  crypto.PublicKey
	Payer      crypto.PublicKey
}

// NewCreateProfileInstruction builds the createCollectionLendingProfile
// instruction.
func NewCreateProfileInstruction(programID crypto.PublicKey, accounts CreateProfileAccounts, params lending.CreateProfileParams) Instruction {
	var name [32]byte
	copy(name[:], params.CollectionName)
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			writable(accounts.Profile),
			meta(accounts.Collection),
			meta(accounts.TokenMint),
			writable(accounts.TokenVault),
			meta(accounts.Vault),
			signer(accounts.Authority),
			writableSigner(accounts.Payer),
			meta(SystemProgramID),
			meta(TokenProgramID),
			meta(RentSysvarID),
		},
		Data: instructionData("create_collection_lending_profile",
			name[:],
			u64Arg(params.InterestRateBps),
			u64Arg(params.FeeRateBps),
			u64Arg(params.ID),
			u64Arg(params.LoanDuration),
		),
	}
}

// CloseProfileAccounts carries the accounts for closing a profile.
type CloseProfileAccounts struct {
	Profile         crypto.PublicKey
	TokenVault      crypto.PublicKey
	Vault           crypto.PublicKey
	Authority       crypto.PublicKey
	RentDestination crypto.PublicKey
}

func NewCloseProfileInstruction(programID crypto.PublicKey, accounts CloseProfileAccounts) Instruction {
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			writable(accounts.Profile),
			writable(accounts.TokenVault),
			meta(accounts.Vault),
			signer(accounts.Authority),
			writable(accounts.RentDestination),
			meta(TokenProgramID),
		},
		Data: instructionData("close_collection_lending_profile"),
	}
}

// NewSetProfileStatusInstruction builds the status update instruction. The
// status travels as a single enum tag byte.
func NewSetProfileStatusInstruction(programID, profile, authority crypto.PublicKey, status lending.Status) Instruction {
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			writable(profile),
			signer(authority),
		},
		Data: instructionData("set_collection_lending_profile_status", []byte{byte(status)}),
	}
}

// NewSetProfileParamsInstruction builds the parameter update instruction.
// Nil arguments keep the current value.
func NewSetProfileParamsInstruction(programID, profile, authority crypto.PublicKey, loanDuration, interestRateBps, feeRateBps *uint64) Instruction {
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			writable(profile),
			signer(authority),
		},
		Data: instructionData("set_collection_lending_profile_params",
			optionU64Arg(loanDuration),
			optionU64Arg(interestRateBps),
			optionU64Arg(feeRateBps),
		),
	}
}

// NewEnableLtvInstruction builds the LTV enable instruction. The floor price
// oracle rides as a trailing read-only account.
func NewEnableLtvInstruction(programID, profile, authority, floorPriceOracle crypto.PublicKey) Instruction {
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			writable(profile),
			signer(authority),
			meta(floorPriceOracle),
		},
		Data: instructionData("enable_ltv"),
	}
}

func NewDisableLtvInstruction(programID, profile, authority crypto.PublicKey) Instruction {
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			writable(profile),
			signer(authority),
		},
		Data: instructionData("disable_ltv"),
	}
}

// OfferLoanAccounts carries the accounts for placing a loan offer.
type OfferLoanAccounts struct {
	Profile            crypto.PublicKey
	Loan               crypto.PublicKey
	LoanMint           crypto.PublicKey
	Escrow             crypto.PublicKey
	EscrowTokenAccount crypto.PublicKey
	LenderTokenAccount crypto.PublicKey
	LenderAccount      crypto.PublicKey
	Lender             crypto.PublicKey
}

func NewOfferLoanInstruction(programID crypto.PublicKey, accounts OfferLoanAccounts, amount, id uint64) Instruction {
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			writable(accounts.Profile),
			writable(accounts.Loan),
			meta(accounts.LoanMint),
			writable(accounts.Escrow),
			writable(accounts.EscrowTokenAccount),
			writable(accounts.LenderTokenAccount),
			writable(accounts.LenderAccount),
			writableSigner(accounts.Lender),
			meta(SystemProgramID),
			meta(TokenProgramID),
			meta(AssociatedTokenProgramID),
			meta(RentSysvarID),
		},
		Data: instructionData("offer_loan", u64Arg(amount), u64Arg(id)),
	}
}

// RescindLoanAccounts carries the accounts for withdrawing a loan offer.
type RescindLoanAccounts struct {
	Profile            crypto.PublicKey
	Loan               crypto.PublicKey
	LoanMint           crypto.PublicKey
	Escrow             crypto.PublicKey
	EscrowTokenAccount crypto.PublicKey
	LenderTokenAccount crypto.PublicKey
	LenderAccount      crypto.PublicKey
	Lender             crypto.PublicKey
}

func NewRescindLoanInstruction(programID crypto.PublicKey, accounts RescindLoanAccounts) Instruction {
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			writable(accounts.Profile),
			writable(accounts.Loan),
			meta(accounts.LoanMint),
			meta(accounts.Escrow),
			writable(accounts.EscrowTokenAccount),
			writable(accounts.LenderTokenAccount),
			writable(accounts.LenderAccount),
			signer(accounts.Lender),
			meta(TokenProgramID),
		},
		Data: instructionData("rescind_loan"),
	}
}

// TakeLoanAccounts carries the accounts for originating a loan against
// collateral.
type TakeLoanAccounts struct {
	Profile                   crypto.PublicKey
	Loan                      crypto.PublicKey
	LoanMint                  crypto.PublicKey
	CollateralMint            crypto.PublicKey
	CollateralMetadata        crypto.PublicKey
	CollateralEdition         crypto.PublicKey
	Escrow                    crypto.PublicKey
	EscrowTokenAccount        crypto.PublicKey
	BorrowerTokenAccount      crypto.PublicKey
	BorrowerCollateralAccount crypto.PublicKey
	BorrowerAccount           crypto.PublicKey
	Borrower                  crypto.PublicKey
}

func NewTakeLoanInstruction(programID crypto.PublicKey, accounts TakeLoanAccounts) Instruction {
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			writable(accounts.Profile),
			writable(accounts.Loan),
			meta(accounts.LoanMint),
			meta(accounts.CollateralMint),
			meta(accounts.CollateralMetadata),
			meta(accounts.CollateralEdition),
			writable(accounts.Escrow),
			writable(accounts.EscrowTokenAccount),
			writable(accounts.BorrowerTokenAccount),
			writable(accounts.BorrowerCollateralAccount),
			writable(accounts.BorrowerAccount),
			writableSigner(accounts.Borrower),
			meta(TokenProgramID),
			meta(TokenMetadataProgramID),
			meta(SystemProgramID),
			meta(RentSysvarID),
		},
		Data: instructionData("take_loan"),
	}
}

// RepayLoanAccounts carries the accounts for a repayment.
type RepayLoanAccounts struct {
	Profile                   crypto.PublicKey
	Loan                      crypto.PublicKey
	Escrow                    crypto.PublicKey
	Vault                     crypto.PublicKey
	LoanMint                  crypto.PublicKey
	CollateralMint            crypto.PublicKey
	CollateralEdition         crypto.PublicKey
	TokenVault                crypto.PublicKey
	BorrowerTokenAccount      crypto.PublicKey
	BorrowerCollateralAccount crypto.PublicKey
	Lender                    crypto.PublicKey
	LenderTokenAccount        crypto.PublicKey
	BorrowerAccount           crypto.PublicKey
	Borrower                  crypto.PublicKey
}

func NewRepayLoanInstruction(programID crypto.PublicKey, accounts RepayLoanAccounts, amount uint64) Instruction {
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			writable(accounts.Profile),
			writable(accounts.Loan),
			meta(accounts.Escrow),
			writable(accounts.Vault),
			meta(accounts.LoanMint),
			meta(accounts.CollateralMint),
			meta(accounts.CollateralEdition),
			writable(accounts.TokenVault),
			writable(accounts.BorrowerTokenAccount),
			writable(accounts.BorrowerCollateralAccount),
			writable(accounts.Lender),
			writable(accounts.LenderTokenAccount),
			writable(accounts.BorrowerAccount),
			writableSigner(accounts.Borrower),
			meta(TokenProgramID),
			meta(TokenMetadataProgramID),
			meta(SystemProgramID),
		},
		Data: instructionData("repay_loan", u64Arg(amount)),
	}
}

// ForecloseLoanAccounts carries the accounts for claiming collateral on a
// defaulted loan.
type ForecloseLoanAccounts struct {
	Profile                   crypto.PublicKey
	Loan                      crypto.PublicKey
	CollateralMint            crypto.PublicKey
	Escrow                    crypto.PublicKey
	LenderCollateralAccount   crypto.PublicKey
	CollateralEdition         crypto.PublicKey
	BorrowerCollateralAccount crypto.PublicKey
	Borrower                  crypto.PublicKey
	LenderAccount             crypto.PublicKey
	Lender                    crypto.PublicKey
}

func NewForecloseLoanInstruction(programID crypto.PublicKey, accounts ForecloseLoanAccounts) Instruction {
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			writable(accounts.Profile),
			writable(accounts.Loan),
			meta(accounts.CollateralMint),
			meta(accounts.Escrow),
			writable(accounts.LenderCollateralAccount),
			meta(accounts.CollateralEdition),
			writable(accounts.BorrowerCollateralAccount),
			writable(accounts.Borrower),
			writable(accounts.LenderAccount),
			writableSigner(accounts.Lender),
			meta(TokenProgramID),
			meta(TokenMetadataProgramID),
		},
		Data: instructionData("foreclose_loan"),
	}
}

// SweepTokenFeesAccounts carries the accounts for sweeping token fees.
type SweepTokenFeesAccounts struct {
	Profile         crypto.PublicKey
	TokenMint       crypto.PublicKey
	TokenVault      crypto.PublicKey
	Vault           crypto.PublicKey
	FeesDestination crypto.PublicKey
	Authority       crypto.PublicKey
}

func NewSweepTokenFeesInstruction(programID crypto.PublicKey, accounts SweepTokenFeesAccounts) Instruction {
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			writable(accounts.Profile),
			meta(accounts.TokenMint),
			writable(accounts.TokenVault),
			meta(accounts.Vault),
			writable(accounts.FeesDestination),
			signer(accounts.Authority),
			meta(TokenProgramID),
		},
		Data: instructionData("sweep_token_fees"),
	}
}

// SweepNativeFeesAccounts carries the accounts for sweeping native fees.
type SweepNativeFeesAccounts struct {
	Profile         crypto.PublicKey
	FeesDestination crypto.PublicKey
	Vault           crypto.PublicKey
	Authority       crypto.PublicKey
}

func NewSweepNativeFeesInstruction(programID crypto.PublicKey, accounts SweepNativeFeesAccounts) Instruction {
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			writable(accounts.Profile),
			writable(accounts.FeesDestination),
			writable(accounts.Vault),
			signer(accounts.Authority),
			meta(SystemProgramID),
		},
		Data: instructionData("sweep_native_fees"),
	}
}
