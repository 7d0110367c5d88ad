package lending

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"nftlend/crypto"
)

// State is the persistence boundary for the engine. Implementations must
// return copies the engine can mutate freely and must serialise writes; the
// engine additionally holds its own transition lock so each profile and loan
// sees at most one transition at a time, matching the single-writer execution
// model of the ledger this module mirrors.
type State interface {
	GetProfile(addr crypto.PublicKey) (*CollectionLendingProfile, error)
	PutProfile(addr crypto.PublicKey, profile *CollectionLendingProfile) error
	DeleteProfile(addr crypto.PublicKey) error

	GetLoan(addr crypto.PublicKey) (*Loan, error)
	PutLoan(addr crypto.PublicKey, loan *Loan) error
	DeleteLoan(addr crypto.PublicKey) error

	GetUserAccount(addr crypto.PublicKey) (*UserAccount, error)
	PutUserAccount(addr crypto.PublicKey, account *UserAccount) error

	GetBalance(addr crypto.PublicKey) (uint64, error)
	SetBalance(addr crypto.PublicKey, amount uint64) error
}

// Metrics receives transition observations. The interface is satisfied by
// observability/metrics.Lending.
type Metrics interface {
	ObserveTransition(kind string)
	ObserveRejection(kind string)
}

// Engine executes the lending state machines against a pluggable state store.
// All transitions validate before mutating; a failed transition leaves no
// partial writes behind.
type Engine struct {
	mu sync.RWMutex

	state           State
	programID       crypto.PublicKey
	clock           func() uint64
	oracleFreshness uint64
	metrics         Metrics

	events  []*Event
	eventCh chan *Event
}

// NewEngine constructs an engine bound to the lending program identifier used
// for account derivation.
func NewEngine(programID crypto.PublicKey) *Engine {
	return &Engine{
		programID:       programID,
		clock:           func() uint64 { return uint64(time.Now().Unix()) },
		oracleFreshness: DefaultOracleFreshnessWindow,
	}
}

// SetState wires the engine to a persistence layer.
func (e *Engine) SetState(state State) { e.state = state }

// SetClock overrides the time source, in unix seconds.
func (e *Engine) SetClock(clock func() uint64) {
	if clock != nil {
		e.clock = clock
	}
}

// SetOracleFreshness overrides the maximum accepted floor price age.
func (e *Engine) SetOracleFreshness(seconds uint64) {
	if seconds > 0 {
		e.oracleFreshness = seconds
	}
}

// SetMetrics attaches a transition observer.
func (e *Engine) SetMetrics(m Metrics) { e.metrics = m }

// ProgramID returns the configured program identifier.
func (e *Engine) ProgramID() crypto.PublicKey { return e.programID }

func (e *Engine) observe(kind string, err error) error {
	if e.metrics != nil {
		if err != nil {
			e.metrics.ObserveRejection(kind)
		} else {
			e.metrics.ObserveTransition(kind)
		}
	}
	return err
}

// CreateProfileParams carries the inputs for creating a collection lending
// profile.
type CreateProfileParams struct {
	CollectionMint crypto.PublicKey
	TokenMint      crypto.PublicKey
	Authority      crypto.PublicKey
	CollectionName string

	InterestRateBps uint64
	FeeRateBps      uint64
	LoanDuration    uint64
	ID              uint64
}

// CreateProfile derives the profile and vault accounts and initialises a new
// profile in the Active state with all counters at zero.
func (e *Engine) CreateProfile(params CreateProfileParams) (crypto.PublicKey, *CollectionLendingProfile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return crypto.PublicKey{}, nil, ErrNilState
	}
	if params.InterestRateBps > MaxRateBps || params.FeeRateBps > MaxRateBps {
		return crypto.PublicKey{}, nil, e.observe("create_profile", ErrInvalidRate)
	}
	if params.LoanDuration == 0 {
		return crypto.PublicKey{}, nil, e.observe("create_profile", ErrInvalidDuration)
	}

	addr, _, err := DeriveProfileAddress(params.CollectionMint, params.TokenMint, params.ID, e.programID)
	if err != nil {
		return crypto.PublicKey{}, nil, fmt.Errorf("derive profile: %w", err)
	}
	tokenVault, _, err := DeriveProfileTokenVaultAddress(addr, e.programID)
	if err != nil {
		return crypto.PublicKey{}, nil, fmt.Errorf("derive token vault: %w", err)
	}
	vault, vaultBump, err := DeriveProfileVaultAddress(addr, e.programID)
	if err != nil {
		return crypto.PublicKey{}, nil, fmt.Errorf("derive vault: %w", err)
	}

	existing, err := e.state.GetProfile(addr)
	if err != nil {
		return crypto.PublicKey{}, nil, err
	}
	if existing != nil {
		return crypto.PublicKey{}, nil, e.observe("create_profile", ErrProfileAlreadyExists)
	}

	profile := &CollectionLendingProfile{
		Version:              AccountVersionLtv,
		Status:               StatusActive,
		VaultSignerBump:      vaultBump,
		Authority:            params.Authority,
		Collection:           params.CollectionMint,
		TokenMint:            params.TokenMint,
		TokenVault:           tokenVault,
		Vault:                vault,
		LoanAmountOriginated: big.NewInt(0),
		LoanAmountRepaid:     big.NewInt(0),
		FeeRateBps:           params.FeeRateBps,
		InterestRateBps:      params.InterestRateBps,
		LoanDuration:         params.LoanDuration,
		ID:                   params.ID,
	}
	profile.SetName(params.CollectionName)

	if err := e.state.PutProfile(addr, profile); err != nil {
		return crypto.PublicKey{}, nil, err
	}
	e.emit(newProfileEvent(EventTypeProfileCreated, addr, profile))
	return addr, profile.Clone(), e.observe("create_profile", nil)
}

// SetProfileStatus flips a profile between Active and Suspended. Suspended
// profiles reject new offers and takes but keep settling existing loans.
func (e *Engine) SetProfileStatus(addr, authority crypto.PublicKey, status Status) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	profile, err := e.loadProfile(addr, authority)
	if err != nil {
		return e.observe("set_status", err)
	}
	if !status.Valid() {
		return e.observe("set_status", fmt.Errorf("lending: invalid status: %d", status))
	}
	profile.Status = status
	if err := e.state.PutProfile(addr, profile); err != nil {
		return err
	}
	e.emit(newProfileEvent(EventTypeProfileStatusChange, addr, profile))
	return e.observe("set_status", nil)
}

// SetProfileParams partially updates the profile parameters. Nil fields keep
// their current value. Changes only affect loans taken after the update.
func (e *Engine) SetProfileParams(addr, authority crypto.PublicKey, loanDuration, interestRateBps, feeRateBps *uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	profile, err := e.loadProfile(addr, authority)
	if err != nil {
		return e.observe("set_params", err)
	}
	if interestRateBps != nil && *interestRateBps > MaxRateBps {
		return e.observe("set_params", ErrInvalidRate)
	}
	if feeRateBps != nil && *feeRateBps > MaxRateBps {
		return e.observe("set_params", ErrInvalidRate)
	}
	if loanDuration != nil && *loanDuration == 0 {
		return e.observe("set_params", ErrInvalidDuration)
	}
	if loanDuration != nil {
		profile.LoanDuration = *loanDuration
	}
	if interestRateBps != nil {
		profile.InterestRateBps = *interestRateBps
	}
	if feeRateBps != nil {
		profile.FeeRateBps = *feeRateBps
	}
	if err := e.state.PutProfile(addr, profile); err != nil {
		return err
	}
	e.emit(newProfileEvent(EventTypeProfileParamsChange, addr, profile))
	return e.observe("set_params", nil)
}

// EnableLtv turns on loan-to-value loans against the given floor price
// oracle.
func (e *Engine) EnableLtv(addr, authority, oracle crypto.PublicKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	profile, err := e.loadProfile(addr, authority)
	if err != nil {
		return e.observe("enable_ltv", err)
	}
	if oracle.IsZero() {
		return e.observe("enable_ltv", ErrMissingOracleFloorPriceAccount)
	}
	if profile.Version < AccountVersionLtv {
		profile.Version = AccountVersionLtv
	}
	profile.IsLtvEnabled = true
	profile.FloorPriceOracle = &oracle
	if err := e.state.PutProfile(addr, profile); err != nil {
		return err
	}
	e.emit(newProfileEvent(EventTypeProfileLtvEnabled, addr, profile))
	return e.observe("enable_ltv", nil)
}

// DisableLtv turns off loan-to-value loans and clears the oracle reference.
func (e *Engine) DisableLtv(addr, authority crypto.PublicKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	profile, err := e.loadProfile(addr, authority)
	if err != nil {
		return e.observe("disable_ltv", err)
	}
	profile.IsLtvEnabled = false
	profile.FloorPriceOracle = nil
	if err := e.state.PutProfile(addr, profile); err != nil {
		return err
	}
	e.emit(newProfileEvent(EventTypeProfileLtvDisabled, addr, profile))
	return e.observe("disable_ltv", nil)
}

// CloseProfile removes a profile once nothing references it: no outstanding
// loans, no open offers and no accumulated fees.
func (e *Engine) CloseProfile(addr, authority crypto.PublicKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	profile, err := e.loadProfile(addr, authority)
	if err != nil {
		return e.observe("close_profile", err)
	}
	if profile.OutstandingLoans > 0 {
		return e.observe("close_profile", ErrProfileWithOutstandingLoans)
	}
	if profile.OpenOffers() > 0 {
		return e.observe("close_profile", ErrProfileWithLoanOffers)
	}
	if profile.FeesAccumulated > 0 {
		return e.observe("close_profile", ErrProfileWithAccumulatedFees)
	}
	if err := e.state.DeleteProfile(addr); err != nil {
		return err
	}
	e.emit(newProfileEvent(EventTypeProfileClosed, addr, profile))
	return e.observe("close_profile", nil)
}

// SweepNativeFees drains the accumulated fees from the profile vault to the
// destination. The counter reset and the transfer are a single transition.
func (e *Engine) SweepNativeFees(addr, authority, destination crypto.PublicKey) (uint64, error) {
	return e.sweepFees(addr, authority, destination, false)
}

// SweepTokenFees drains the accumulated token fees from the profile token
// vault to the destination.
func (e *Engine) SweepTokenFees(addr, authority, destination crypto.PublicKey) (uint64, error) {
	return e.sweepFees(addr, authority, destination, true)
}

func (e *Engine) sweepFees(addr, authority, destination crypto.PublicKey, token bool) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	profile, err := e.loadProfile(addr, authority)
	if err != nil {
		return 0, e.observe("sweep_fees", err)
	}
	if profile.FeesAccumulated == 0 {
		return 0, e.observe("sweep_fees", ErrProfileWithoutAccumulatedFees)
	}
	source := profile.Vault
	if token {
		source = profile.TokenVault
	}
	swept := profile.FeesAccumulated
	if err := e.transfer(source, destination, swept); err != nil {
		return 0, e.observe("sweep_fees", err)
	}
	profile.FeesAccumulated = 0
	if err := e.state.PutProfile(addr, profile); err != nil {
		return 0, err
	}
	ev := newProfileEvent(EventTypeFeesSwept, addr, profile)
	ev.Attributes["destination"] = destination.String()
	ev.Attributes["amount"] = fmt.Sprintf("%d", swept)
	e.emit(ev)
	return swept, e.observe("sweep_fees", nil)
}

// Profile returns a snapshot of the profile at the given address.
func (e *Engine) Profile(addr crypto.PublicKey) (*CollectionLendingProfile, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	profile, err := e.state.GetProfile(addr)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile.Clone(), nil
}

// Loan returns a snapshot of the loan at the given address.
func (e *Engine) Loan(addr crypto.PublicKey) (*Loan, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	loan, err := e.state.GetLoan(addr)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, ErrLoanNotFound
	}
	return loan.Clone(), nil
}

// User returns a snapshot of the user statistics account, or zeroed counters
// if the wallet has no history.
func (e *Engine) User(addr crypto.PublicKey) (*UserAccount, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	user, err := e.state.GetUserAccount(addr)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return &UserAccount{Authority: addr}, nil
	}
	return user.Clone(), nil
}

// Balance returns the tracked balance for an account.
func (e *Engine) Balance(addr crypto.PublicKey) (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state == nil {
		return 0, ErrNilState
	}
	return e.state.GetBalance(addr)
}

// Fund credits an account balance, used to seed lenders and borrowers in
// simulations and tests.
func (e *Engine) Fund(addr crypto.PublicKey, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return ErrNilState
	}
	balance, err := e.state.GetBalance(addr)
	if err != nil {
		return err
	}
	sum, err := checkedAdd(balance, amount)
	if err != nil {
		return err
	}
	return e.state.SetBalance(addr, sum)
}

func (e *Engine) loadProfile(addr, authority crypto.PublicKey) (*CollectionLendingProfile, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	profile, err := e.state.GetProfile(addr)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	if !profile.Authority.Equals(authority) {
		return nil, ErrUnauthorized
	}
	return profile, nil
}

func (e *Engine) transfer(from, to crypto.PublicKey, amount uint64) error {
	fromBalance, err := e.state.GetBalance(from)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return ErrInsufficientBalance
	}
	toBalance, err := e.state.GetBalance(to)
	if err != nil {
		return err
	}
	sum, err := checkedAdd(toBalance, amount)
	if err != nil {
		return err
	}
	if err := e.state.SetBalance(from, fromBalance-amount); err != nil {
		return err
	}
	return e.state.SetBalance(to, sum)
}

func (e *Engine) ensureUser(addr crypto.PublicKey) (*UserAccount, error) {
	user, err := e.state.GetUserAccount(addr)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = &UserAccount{Authority: addr}
	}
	return user, nil
}
