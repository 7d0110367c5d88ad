package lending

import (
	"math/big"
	"strings"

	"nftlend/crypto"
)

// Status represents the lifecycle states of a collection lending profile.
type Status uint8

const (
	StatusActive Status = iota
	StatusSuspended
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusSuspended
}

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusSuspended:
		return "Suspended"
	default:
		return "Unknown"
	}
}

// LoanType distinguishes fixed-principal loans from loans drawn against the
// collection floor price.
type LoanType uint8

const (
	LoanTypeSimple LoanType = iota
	LoanTypeLoanToValue
)

func (t LoanType) Valid() bool {
	return t == LoanTypeSimple || t == LoanTypeLoanToValue
}

func (t LoanType) String() string {
	switch t {
	case LoanTypeSimple:
		return "Simple"
	case LoanTypeLoanToValue:
		return "LTV"
	default:
		return "Unknown"
	}
}

// TokenStandard captures the collateral token flavour, which governs the
// transfer accounts required downstream.
type TokenStandard uint8

const (
	TokenStandardLegacy TokenStandard = iota
	TokenStandardProgrammable
	TokenStandardProgrammableWithRuleSet
)

func (ts TokenStandard) Valid() bool {
	switch ts {
	case TokenStandardLegacy, TokenStandardProgrammable, TokenStandardProgrammableWithRuleSet:
		return true
	default:
		return false
	}
}

func (ts TokenStandard) String() string {
	switch ts {
	case TokenStandardLegacy:
		return "Legacy"
	case TokenStandardProgrammable:
		return "Programmable"
	case TokenStandardProgrammableWithRuleSet:
		return "Programmable With Rule Set"
	default:
		return "Unknown"
	}
}

// AccountVersion tags the persisted layout generation of an account. Later
// versions carry optional fields that earlier deployments omitted.
type AccountVersion uint8

const (
	// AccountVersionBase is the original layout without LTV support.
	AccountVersionBase AccountVersion = iota
	// AccountVersionLtv adds the floor price oracle reference and the
	// loan-to-value fields.
	AccountVersionLtv
)

func (v AccountVersion) Valid() bool {
	return v == AccountVersionBase || v == AccountVersionLtv
}

// LoanStage is the in-memory lifecycle position of a loan. The on-chain
// program closes settled accounts instead; the explicit stage keeps terminal
// transitions mutually exclusive and lets callers distinguish "already
// defaulted" from "never existed".
type LoanStage uint8

const (
	LoanStageOffered LoanStage = iota
	LoanStageTaken
	LoanStageRepaid
	LoanStageForeclosed
	LoanStageRescinded
)

func (s LoanStage) Terminal() bool {
	switch s {
	case LoanStageRepaid, LoanStageForeclosed, LoanStageRescinded:
		return true
	default:
		return false
	}
}

func (s LoanStage) String() string {
	switch s {
	case LoanStageOffered:
		return "Offered"
	case LoanStageTaken:
		return "Taken"
	case LoanStageRepaid:
		return "Repaid"
	case LoanStageForeclosed:
		return "Foreclosed"
	case LoanStageRescinded:
		return "Rescinded"
	default:
		return "Unknown"
	}
}

// CollectionLendingProfile is the per-(collection, token mint, id)
// configuration and aggregate ledger for loans issued against a collection.
type CollectionLendingProfile struct {
	Version         AccountVersion
	Status          Status
	VaultSignerBump uint8

	Authority      crypto.PublicKey
	Collection     crypto.PublicKey
	TokenMint      crypto.PublicKey
	TokenVault     crypto.PublicKey
	Vault          crypto.PublicKey
	CollectionName [32]byte

	// Totals are 128-bit so they cannot overflow across many loans.
	LoanAmountOriginated *big.Int
	LoanAmountRepaid     *big.Int

	FeeRateBps      uint64
	InterestRateBps uint64
	LoanDuration    uint64

	LoansOriginated  uint64
	LoansRepaid      uint64
	LoansForeclosed  uint64
	LoansRescinded   uint64
	OutstandingLoans uint64
	LoansOffered     uint64
	FeesAccumulated  uint64

	IsLtvEnabled     bool
	FloorPriceOracle *crypto.PublicKey

	ID uint64
}

// Clone returns a deep copy so callers can mutate safely.
func (p *CollectionLendingProfile) Clone() *CollectionLendingProfile {
	if p == nil {
		return nil
	}
	clone := *p
	if p.LoanAmountOriginated != nil {
		clone.LoanAmountOriginated = new(big.Int).Set(p.LoanAmountOriginated)
	}
	if p.LoanAmountRepaid != nil {
		clone.LoanAmountRepaid = new(big.Int).Set(p.LoanAmountRepaid)
	}
	if p.FloorPriceOracle != nil {
		oracle := *p.FloorPriceOracle
		clone.FloorPriceOracle = &oracle
	}
	return &clone
}

// OpenOffers derives the count of unfilled loan offers.
func (p *CollectionLendingProfile) OpenOffers() uint64 {
	filled := p.LoansOriginated + p.LoansRescinded
	if p.LoansOffered < filled {
		return 0
	}
	return p.LoansOffered - filled
}

// Name decodes the NUL-padded collection name.
func (p *CollectionLendingProfile) Name() string {
	return strings.TrimRight(string(p.CollectionName[:]), "\x00")
}

// SetName encodes the collection name into the fixed 32-byte field,
// truncating when necessary.
func (p *CollectionLendingProfile) SetName(name string) {
	p.CollectionName = [32]byte{}
	copy(p.CollectionName[:], name)
}

// Loan represents a single loan offer and, once taken, the live position.
type Loan struct {
	Version       AccountVersion
	Type          LoanType
	TokenStandard TokenStandard
	Stage         LoanStage
	EscrowBump    uint8

	Profile  crypto.PublicKey
	Lender   crypto.PublicKey
	LoanMint crypto.PublicKey

	// Borrower is nil until the loan is taken. Modelling the binding as an
	// optional key removes the historical need to defensively zero-read the
	// repayment fields while the borrower sentinel was unset.
	Borrower *crypto.PublicKey

	// CollateralMint is set while the escrow holds the collateral NFT,
	// from take until repay or foreclose.
	CollateralMint *crypto.PublicKey

	DueTimestamp    uint64
	PrincipalAmount uint64
	MaxLtvAmount    uint64
	LtvAmountBps    uint64
	RepaymentAmount uint64
	PaidAmount      uint64

	ID uint64
}

// Clone returns a deep copy of the loan.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Borrower != nil {
		borrower := *l.Borrower
		clone.Borrower = &borrower
	}
	if l.CollateralMint != nil {
		mint := *l.CollateralMint
		clone.CollateralMint = &mint
	}
	return &clone
}

// Taken reports whether a borrower is bound to the loan.
func (l *Loan) Taken() bool {
	return l.Borrower != nil
}

// RemainingBalance is the outstanding repayment amount.
func (l *Loan) RemainingBalance() uint64 {
	if !l.Taken() || l.PaidAmount >= l.RepaymentAmount {
		return 0
	}
	return l.RepaymentAmount - l.PaidAmount
}

// UserAccount is the per-wallet statistics ledger. It is created lazily on the
// first loan-related action and only ever counts upwards.
type UserAccount struct {
	Authority crypto.PublicKey

	LoansOffered    uint64
	LoansTaken      uint64
	LoansRescinded  uint64
	LoansForeclosed uint64
	LoansRepaid     uint64
}

// Clone returns a copy of the user account.
func (u *UserAccount) Clone() *UserAccount {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}
