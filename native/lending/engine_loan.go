package lending

import (
	"fmt"
	"math/big"

	"nftlend/crypto"
)

// OfferLoanParams carries the inputs for creating a loan offer.
type OfferLoanParams struct {
	Profile crypto.PublicKey
	Lender  crypto.PublicKey

	Type          LoanType
	TokenStandard TokenStandard

	// PrincipalAmount is required for Simple loans.
	PrincipalAmount uint64
	// MaxLtvAmount and LtvAmountBps are required for LoanToValue loans.
	MaxLtvAmount uint64
	LtvAmountBps uint64

	ID uint64
}

// OfferLoan creates a loan offer under an active profile. Simple offers
// escrow the principal from the lender up front; LTV offers escrow nothing
// because the draw amount is only known at take time.
func (e *Engine) OfferLoan(params OfferLoanParams) (crypto.PublicKey, *Loan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return crypto.PublicKey{}, nil, ErrNilState
	}
	profile, err := e.state.GetProfile(params.Profile)
	if err != nil {
		return crypto.PublicKey{}, nil, err
	}
	if profile == nil {
		return crypto.PublicKey{}, nil, e.observeOffer(ErrProfileNotFound)
	}
	if profile.Status != StatusActive {
		return crypto.PublicKey{}, nil, e.observeOffer(ErrProfileSuspended)
	}
	if !params.Type.Valid() {
		return crypto.PublicKey{}, nil, e.observeOffer(fmt.Errorf("lending: invalid loan type: %d", params.Type))
	}
	if !params.TokenStandard.Valid() {
		return crypto.PublicKey{}, nil, e.observeOffer(ErrInvalidTokenStandard)
	}
	switch params.Type {
	case LoanTypeSimple:
		if params.PrincipalAmount == 0 {
			return crypto.PublicKey{}, nil, e.observeOffer(ErrInvalidAmount)
		}
	case LoanTypeLoanToValue:
		if !profile.IsLtvEnabled {
			return crypto.PublicKey{}, nil, e.observeOffer(ErrLtvNotEnabled)
		}
		if params.LtvAmountBps == 0 || params.LtvAmountBps > BasisPointsDivisor {
			return crypto.PublicKey{}, nil, e.observeOffer(ErrInvalidAmount)
		}
		if params.MaxLtvAmount == 0 {
			return crypto.PublicKey{}, nil, e.observeOffer(ErrInvalidAmount)
		}
	}

	loanAddr, _, err := DeriveLoanAddress(params.Profile, params.Lender, params.ID, e.programID)
	if err != nil {
		return crypto.PublicKey{}, nil, fmt.Errorf("derive loan: %w", err)
	}
	escrow, escrowBump, err := DeriveLoanEscrowAddress(loanAddr, e.programID)
	if err != nil {
		return crypto.PublicKey{}, nil, fmt.Errorf("derive escrow: %w", err)
	}
	escrowToken, _, err := DeriveEscrowTokenAccount(escrow, e.programID)
	if err != nil {
		return crypto.PublicKey{}, nil, fmt.Errorf("derive escrow token account: %w", err)
	}

	existing, err := e.state.GetLoan(loanAddr)
	if err != nil {
		return crypto.PublicKey{}, nil, err
	}
	if existing != nil {
		return crypto.PublicKey{}, nil, e.observeOffer(ErrLoanAlreadyExists)
	}

	if params.Type == LoanTypeSimple {
		if err := e.transfer(params.Lender, escrowToken, params.PrincipalAmount); err != nil {
			return crypto.PublicKey{}, nil, e.observeOffer(err)
		}
	}

	loan := &Loan{
		Version:         AccountVersionLtv,
		Type:            params.Type,
		TokenStandard:   params.TokenStandard,
		Stage:           LoanStageOffered,
		EscrowBump:      escrowBump,
		Profile:         params.Profile,
		Lender:          params.Lender,
		LoanMint:        profile.TokenMint,
		PrincipalAmount: params.PrincipalAmount,
		MaxLtvAmount:    params.MaxLtvAmount,
		LtvAmountBps:    params.LtvAmountBps,
		ID:              params.ID,
	}

	lenderUser, err := e.ensureUser(params.Lender)
	if err != nil {
		return crypto.PublicKey{}, nil, err
	}
	profile.LoansOffered++
	lenderUser.LoansOffered++

	if err := e.state.PutLoan(loanAddr, loan); err != nil {
		return crypto.PublicKey{}, nil, err
	}
	if err := e.state.PutProfile(params.Profile, profile); err != nil {
		return crypto.PublicKey{}, nil, err
	}
	if err := e.state.PutUserAccount(params.Lender, lenderUser); err != nil {
		return crypto.PublicKey{}, nil, err
	}
	e.emit(newLoanEvent(EventTypeLoanOffered, loanAddr, loan))
	return loanAddr, loan.Clone(), e.observe("offer_loan", nil)
}

func (e *Engine) observeOffer(err error) error { return e.observe("offer_loan", err) }

// RescindLoan withdraws an untaken offer: the escrowed principal returns to
// the lender and the loan reaches the terminal Rescinded stage.
func (e *Engine) RescindLoan(loanAddr, lender crypto.PublicKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	loan, profile, err := e.loadLoan(loanAddr)
	if err != nil {
		return e.observe("rescind_loan", err)
	}
	switch {
	case loan.Stage == LoanStageTaken:
		return e.observe("rescind_loan", ErrLoanAlreadyOriginated)
	case loan.Stage.Terminal():
		return e.observe("rescind_loan", ErrLoanClosed)
	}
	if !loan.Lender.Equals(lender) {
		return e.observe("rescind_loan", ErrUnauthorized)
	}

	if loan.Type == LoanTypeSimple {
		escrowToken, err := e.loanEscrowTokenAccount(loanAddr)
		if err != nil {
			return e.observe("rescind_loan", err)
		}
		if err := e.transfer(escrowToken, loan.Lender, loan.PrincipalAmount); err != nil {
			return e.observe("rescind_loan", err)
		}
	}

	lenderUser, err := e.ensureUser(loan.Lender)
	if err != nil {
		return err
	}
	loan.Stage = LoanStageRescinded
	profile.LoansRescinded++
	lenderUser.LoansRescinded++

	if err := e.state.PutLoan(loanAddr, loan); err != nil {
		return err
	}
	if err := e.state.PutProfile(loan.Profile, profile); err != nil {
		return err
	}
	if err := e.state.PutUserAccount(loan.Lender, lenderUser); err != nil {
		return err
	}
	e.emit(newLoanEvent(EventTypeLoanRescinded, loanAddr, loan))
	return e.observe("rescind_loan", nil)
}

// TakeLoanParams carries the inputs for originating a loan.
type TakeLoanParams struct {
	Loan           crypto.PublicKey
	Borrower       crypto.PublicKey
	CollateralMint crypto.PublicKey

	// FloorPrice is the resolved oracle reading, required for LTV loans.
	// Resolving the reading (a blocking fetch) is the caller's concern.
	FloorPrice *FloorPriceReading
}

// TakeLoan binds a borrower to an offer: collateral moves into escrow, the
// principal moves to the borrower and the repayment terms are snapshotted
// from the profile as it stands now.
func (e *Engine) TakeLoan(params TakeLoanParams) (*Loan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	loan, profile, err := e.loadLoan(params.Loan)
	if err != nil {
		return nil, e.observe("take_loan", err)
	}
	switch {
	case loan.Stage == LoanStageTaken:
		return nil, e.observe("take_loan", ErrLoanAlreadyOriginated)
	case loan.Stage.Terminal():
		return nil, e.observe("take_loan", ErrLoanClosed)
	}
	if profile.Status != StatusActive {
		return nil, e.observe("take_loan", ErrProfileSuspended)
	}
	if params.CollateralMint.IsZero() {
		return nil, e.observe("take_loan", ErrInvalidTokenStandard)
	}

	now := e.clock()
	principal := loan.PrincipalAmount
	if loan.Type == LoanTypeLoanToValue {
		if err := validateFloorPrice(profile, params.FloorPrice, now, e.oracleFreshness); err != nil {
			return nil, e.observe("take_loan", err)
		}
		draw, err := MaxLtvDraw(params.FloorPrice.Price, loan.LtvAmountBps)
		if err != nil {
			return nil, e.observe("take_loan", err)
		}
		if draw > loan.MaxLtvAmount {
			return nil, e.observe("take_loan", ErrLoanAmountExceedsMaxLtvAmount)
		}
		principal = draw
	}

	repayment, err := repaymentForPrincipal(principal, profile.InterestRateBps)
	if err != nil {
		return nil, e.observe("take_loan", err)
	}

	// Funds move before counters so an insufficient balance rejects the
	// whole transition.
	if loan.Type == LoanTypeSimple {
		escrowToken, err := e.loanEscrowTokenAccount(params.Loan)
		if err != nil {
			return nil, e.observe("take_loan", err)
		}
		if err := e.transfer(escrowToken, params.Borrower, principal); err != nil {
			return nil, e.observe("take_loan", err)
		}
	} else {
		if err := e.transfer(loan.Lender, params.Borrower, principal); err != nil {
			return nil, e.observe("take_loan", err)
		}
	}

	borrower := params.Borrower
	collateral := params.CollateralMint
	loan.Stage = LoanStageTaken
	loan.Borrower = &borrower
	loan.CollateralMint = &collateral
	loan.PrincipalAmount = principal
	loan.RepaymentAmount = repayment
	loan.PaidAmount = 0
	loan.DueTimestamp = now + profile.LoanDuration

	borrowerUser, err := e.ensureUser(params.Borrower)
	if err != nil {
		return nil, err
	}
	profile.LoansOriginated++
	profile.OutstandingLoans++
	addU128(profile.LoanAmountOriginated, principal)
	borrowerUser.LoansTaken++

	if err := e.state.PutLoan(params.Loan, loan); err != nil {
		return nil, err
	}
	if err := e.state.PutProfile(loan.Profile, profile); err != nil {
		return nil, err
	}
	if err := e.state.PutUserAccount(params.Borrower, borrowerUser); err != nil {
		return nil, err
	}
	e.emit(newLoanEvent(EventTypeLoanOriginated, params.Loan, loan))
	return loan.Clone(), e.observe("take_loan", nil)
}

// RepayLoan pays down an originated loan. The profile fee share routes to the
// vault, the remainder to the lender. Paying the full remaining balance
// settles the loan and returns the collateral.
func (e *Engine) RepayLoan(loanAddr, borrower crypto.PublicKey, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	loan, profile, err := e.loadLoan(loanAddr)
	if err != nil {
		return e.observe("repay_loan", err)
	}
	switch loan.Stage {
	case LoanStageOffered:
		return e.observe("repay_loan", ErrLoanNotOriginated)
	case LoanStageForeclosed:
		return e.observe("repay_loan", ErrLoanAlreadyDefaulted)
	case LoanStageRepaid, LoanStageRescinded:
		return e.observe("repay_loan", ErrLoanClosed)
	}
	if loan.Borrower == nil || !loan.Borrower.Equals(borrower) {
		return e.observe("repay_loan", ErrUnauthorized)
	}
	if amount == 0 || amount > loan.RemainingBalance() {
		return e.observe("repay_loan", ErrInvalidAmount)
	}

	fee, err := mulBps(amount, profile.FeeRateBps)
	if err != nil {
		return e.observe("repay_loan", err)
	}
	if err := e.transfer(borrower, profile.TokenVault, fee); err != nil {
		return e.observe("repay_loan", err)
	}
	if err := e.transfer(borrower, loan.Lender, amount-fee); err != nil {
		// Undo the fee leg so a failed transition leaves no partial
		// writes. The refund cannot fail against an in-memory store,
		// but a persistent one can error the write; surface that so
		// the caller knows the balances are inconsistent.
		if undoErr := e.transfer(profile.TokenVault, borrower, fee); undoErr != nil {
			return e.observe("repay_loan", fmt.Errorf("%w (fee refund failed: %v)", err, undoErr))
		}
		return e.observe("repay_loan", err)
	}

	loan.PaidAmount += amount
	feesAccumulated, err := checkedAdd(profile.FeesAccumulated, fee)
	if err != nil {
		return e.observe("repay_loan", err)
	}
	profile.FeesAccumulated = feesAccumulated

	settled := loan.PaidAmount >= loan.RepaymentAmount
	eventType := EventTypeLoanRepayment
	if settled {
		loan.Stage = LoanStageRepaid
		loan.CollateralMint = nil
		profile.OutstandingLoans--
		profile.LoansRepaid++
		addU128(profile.LoanAmountRepaid, loan.PrincipalAmount)
		eventType = EventTypeLoanRepaid

		borrowerUser, err := e.ensureUser(borrower)
		if err != nil {
			return err
		}
		borrowerUser.LoansRepaid++
		if err := e.state.PutUserAccount(borrower, borrowerUser); err != nil {
			return err
		}
	}

	if err := e.state.PutLoan(loanAddr, loan); err != nil {
		return err
	}
	if err := e.state.PutProfile(loan.Profile, profile); err != nil {
		return err
	}
	ev := newLoanEvent(eventType, loanAddr, loan)
	ev.Attributes["amount"] = fmt.Sprintf("%d", amount)
	ev.Attributes["fee"] = fmt.Sprintf("%d", fee)
	e.emit(ev)
	return e.observe("repay_loan", nil)
}

// ForecloseLoan claims the collateral for the lender after the due timestamp
// has elapsed with an unpaid balance.
func (e *Engine) ForecloseLoan(loanAddr, lender crypto.PublicKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	loan, profile, err := e.loadLoan(loanAddr)
	if err != nil {
		return e.observe("foreclose_loan", err)
	}
	switch {
	case loan.Stage == LoanStageOffered:
		return e.observe("foreclose_loan", ErrLoanNotOriginated)
	case loan.Stage.Terminal():
		return e.observe("foreclose_loan", ErrInvalidForeclosure)
	}
	if !loan.Lender.Equals(lender) {
		return e.observe("foreclose_loan", ErrUnauthorized)
	}
	if e.clock() <= loan.DueTimestamp {
		return e.observe("foreclose_loan", ErrInvalidForeclosure)
	}
	if loan.PaidAmount >= loan.RepaymentAmount {
		return e.observe("foreclose_loan", ErrInvalidForeclosure)
	}
	if loan.CollateralMint == nil {
		return e.observe("foreclose_loan", ErrCollateralNotInLoan)
	}

	borrower := *loan.Borrower
	seized := *loan.CollateralMint
	loan.Stage = LoanStageForeclosed
	loan.CollateralMint = nil
	profile.OutstandingLoans--
	profile.LoansForeclosed++

	borrowerUser, err := e.ensureUser(borrower)
	if err != nil {
		return err
	}
	borrowerUser.LoansForeclosed++

	if err := e.state.PutLoan(loanAddr, loan); err != nil {
		return err
	}
	if err := e.state.PutProfile(loan.Profile, profile); err != nil {
		return err
	}
	if err := e.state.PutUserAccount(borrower, borrowerUser); err != nil {
		return err
	}
	ev := newLoanEvent(EventTypeLoanForeclosed, loanAddr, loan)
	ev.Attributes["seizedCollateral"] = seized.String()
	e.emit(ev)
	return e.observe("foreclose_loan", nil)
}

func (e *Engine) loadLoan(addr crypto.PublicKey) (*Loan, *CollectionLendingProfile, error) {
	if e.state == nil {
		return nil, nil, ErrNilState
	}
	loan, err := e.state.GetLoan(addr)
	if err != nil {
		return nil, nil, err
	}
	if loan == nil {
		return nil, nil, ErrLoanNotFound
	}
	profile, err := e.state.GetProfile(loan.Profile)
	if err != nil {
		return nil, nil, err
	}
	if profile == nil {
		return nil, nil, ErrProfileNotFound
	}
	return loan, profile, nil
}

func (e *Engine) loanEscrowTokenAccount(loanAddr crypto.PublicKey) (crypto.PublicKey, error) {
	escrow, _, err := DeriveLoanEscrowAddress(loanAddr, e.programID)
	if err != nil {
		return crypto.PublicKey{}, err
	}
	escrowToken, _, err := DeriveEscrowTokenAccount(escrow, e.programID)
	if err != nil {
		return crypto.PublicKey{}, err
	}
	return escrowToken, nil
}

func addU128(total *big.Int, amount uint64) {
	if total == nil {
		return
	}
	total.Add(total, new(big.Int).SetUint64(amount))
}
