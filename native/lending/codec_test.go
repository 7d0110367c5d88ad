package lending

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"nftlend/crypto"
)

func TestProfileCodecRoundTrip(t *testing.T) {
	oracle := makeKey(0x77)
	profile := &CollectionLendingProfile{
		Status:               StatusActive,
		VaultSignerBump:      254,
		Version:              AccountVersionLtv,
		Authority:            makeKey(0xAA),
		Collection:           makeKey(0x11),
		TokenMint:            makeKey(0x12),
		TokenVault:           makeKey(0x13),
		Vault:                makeKey(0x14),
		LoanAmountOriginated: big.NewInt(5_000_000),
		LoanAmountRepaid:     big.NewInt(1_000_000),
		FeeRateBps:           25,
		InterestRateBps:      1000,
		LoanDuration:         3600,
		LoansOriginated:      7,
		LoansRepaid:          3,
		LoansForeclosed:      1,
		LoansRescinded:       2,
		OutstandingLoans:     3,
		LoansOffered:         12,
		FeesAccumulated:      2750,
		ID:                   42,
		IsLtvEnabled:         true,
		FloorPriceOracle:     &oracle,
	}
	profile.SetName("Degen Apes")

	data, err := EncodeProfile(profile)
	require.NoError(t, err)
	require.Len(t, data, profileLtvSize)

	decoded, err := DecodeProfile(data)
	require.NoError(t, err)
	require.Equal(t, profile.Status, decoded.Status)
	require.Equal(t, profile.Authority, decoded.Authority)
	require.Equal(t, profile.Collection, decoded.Collection)
	require.Equal(t, profile.FeeRateBps, decoded.FeeRateBps)
	require.Equal(t, profile.InterestRateBps, decoded.InterestRateBps)
	require.Equal(t, profile.LoanDuration, decoded.LoanDuration)
	require.Equal(t, profile.LoansOffered, decoded.LoansOffered)
	require.Equal(t, profile.FeesAccumulated, decoded.FeesAccumulated)
	require.Equal(t, profile.ID, decoded.ID)
	require.Zero(t, profile.LoanAmountOriginated.Cmp(decoded.LoanAmountOriginated))
	require.Zero(t, profile.LoanAmountRepaid.Cmp(decoded.LoanAmountRepaid))
	require.True(t, decoded.IsLtvEnabled)
	require.NotNil(t, decoded.FloorPriceOracle)
	require.True(t, decoded.FloorPriceOracle.Equals(oracle))
}

func TestProfileCodecBaseVersionOmitsLtvFields(t *testing.T) {
	profile := &CollectionLendingProfile{
		Status:    StatusActive,
		Version:   AccountVersionBase,
		Authority: makeKey(0xAA),
	}
	data, err := EncodeProfile(profile)
	require.NoError(t, err)
	require.Len(t, data, profileBaseSize)

	decoded, err := DecodeProfile(data)
	require.NoError(t, err)
	require.False(t, decoded.IsLtvEnabled)
	require.Nil(t, decoded.FloorPriceOracle)
}

func TestLoanCodecRoundTrip(t *testing.T) {
	borrower := makeKey(0xCC)
	collateral := makeKey(0xC0)
	loan := &Loan{
		EscrowBump:      251,
		Version:         AccountVersionLtv,
		Type:            LoanTypeLoanToValue,
		TokenStandard:   TokenStandardProgrammable,
		Stage:           LoanStageTaken,
		Profile:         makeKey(0x11),
		Lender:          makeKey(0xBB),
		LoanMint:        makeKey(0x12),
		Borrower:        &borrower,
		CollateralMint:  &collateral,
		DueTimestamp:    1_700_003_600,
		PrincipalAmount: 400_000,
		RepaymentAmount: 440_000,
		PaidAmount:      100_000,
		MaxLtvAmount:    500_000,
		LtvAmountBps:    5_000,
		ID:              3,
	}

	data, err := EncodeLoan(loan)
	require.NoError(t, err)
	require.Len(t, data, loanLtvSize)

	decoded, err := DecodeLoan(data)
	require.NoError(t, err)
	require.Equal(t, loan.Stage, decoded.Stage)
	require.Equal(t, loan.Type, decoded.Type)
	require.Equal(t, loan.TokenStandard, decoded.TokenStandard)
	require.NotNil(t, decoded.Borrower)
	require.True(t, decoded.Borrower.Equals(borrower))
	require.NotNil(t, decoded.CollateralMint)
	require.True(t, decoded.CollateralMint.Equals(collateral))
	require.Equal(t, loan.DueTimestamp, decoded.DueTimestamp)
	require.Equal(t, loan.RepaymentAmount, decoded.RepaymentAmount)
	require.Equal(t, loan.PaidAmount, decoded.PaidAmount)
	require.Equal(t, loan.MaxLtvAmount, decoded.MaxLtvAmount)
	require.Equal(t, loan.LtvAmountBps, decoded.LtvAmountBps)
}

func TestLoanCodecUnboundBorrowerZeroesRepayment(t *testing.T) {
	loan := &Loan{
		Version:         AccountVersionLtv,
		Type:            LoanTypeSimple,
		TokenStandard:   TokenStandardLegacy,
		Stage:           LoanStageOffered,
		Profile:         makeKey(0x11),
		Lender:          makeKey(0xBB),
		PrincipalAmount: 1_000_000,
		ID:              1,
	}
	data, err := EncodeLoan(loan)
	require.NoError(t, err)

	// Simulate stale bytes from account reuse.
	off := 8 + 16 + 4*crypto.PublicKeyLength + 16
	for i := 0; i < 16; i++ {
		data[off+i] = 0xFF
	}

	decoded, err := DecodeLoan(data)
	require.NoError(t, err)
	require.Nil(t, decoded.Borrower)
	require.Zero(t, decoded.RepaymentAmount)
	require.Zero(t, decoded.PaidAmount)
	require.Equal(t, uint64(1_000_000), decoded.PrincipalAmount)
}

func TestLoanCodecBaseVersionDerivesStage(t *testing.T) {
	borrower := makeKey(0xCC)
	taken := &Loan{
		Version:       AccountVersionBase,
		Type:          LoanTypeSimple,
		TokenStandard: TokenStandardLegacy,
		Profile:       makeKey(0x11),
		Lender:        makeKey(0xBB),
		Borrower:      &borrower,
	}
	data, err := EncodeLoan(taken)
	require.NoError(t, err)
	require.Len(t, data, loanBaseSize)

	decoded, err := DecodeLoan(data)
	require.NoError(t, err)
	require.Equal(t, LoanStageTaken, decoded.Stage)

	taken.Borrower = nil
	data, err = EncodeLoan(taken)
	require.NoError(t, err)
	decoded, err = DecodeLoan(data)
	require.NoError(t, err)
	require.Equal(t, LoanStageOffered, decoded.Stage)
}

func TestUserAccountCodecRoundTrip(t *testing.T) {
	user := &UserAccount{
		Authority:       makeKey(0xCC),
		LoansOffered:    4,
		LoansTaken:      2,
		LoansRescinded:  1,
		LoansForeclosed: 1,
		LoansRepaid:     1,
	}
	data, err := EncodeUserAccount(user)
	require.NoError(t, err)
	require.Len(t, data, userAccountSize)

	decoded, err := DecodeUserAccount(data)
	require.NoError(t, err)
	require.Equal(t, user, decoded)
}

func TestCodecRejectsForeignDiscriminator(t *testing.T) {
	profile := &CollectionLendingProfile{Version: AccountVersionBase}
	data, err := EncodeProfile(profile)
	require.NoError(t, err)

	_, err = DecodeLoan(data)
	require.True(t, errors.Is(err, errBadDiscriminator))
	_, err = DecodeUserAccount(data)
	require.True(t, errors.Is(err, errBadDiscriminator))

	_, err = DecodeProfile(data[:7])
	require.True(t, errors.Is(err, errAccountTooSmall))

	data[10] = 0xFE
	_, err = DecodeProfile(data)
	require.True(t, errors.Is(err, errUnknownAccountTag))
}
