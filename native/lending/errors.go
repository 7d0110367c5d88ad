package lending

import "errors"

// Validation errors reject a transition before any state is touched.
var (
	ErrInvalidAmount                  = errors.New("lending: amount is zero, overflows or exceeds the remaining balance")
	ErrInvalidRate                    = errors.New("lending: rate exceeds the protocol ceiling")
	ErrInvalidDuration                = errors.New("lending: loan duration must be positive")
	ErrProfileSuspended               = errors.New("lending: collection lending profile is suspended")
	ErrLtvNotEnabled                  = errors.New("lending: loan to value loans are not enabled on this profile")
	ErrInvalidTokenStandard           = errors.New("lending: unsupported token standard")
	ErrMissingOracleFloorPriceAccount = errors.New("lending: missing oracle floor price account")
)

// State-conflict errors reject a transition because of the current lifecycle
// state of the loan or profile.
var (
	ErrLoanAlreadyOriginated = errors.New("lending: loan has already been originated")
	ErrLoanNotOriginated     = errors.New("lending: loan has not been originated")
	ErrLoanAlreadyDefaulted  = errors.New("lending: loan has already been defaulted")
	ErrLoanClosed            = errors.New("lending: loan has reached a terminal state")
	ErrInvalidForeclosure    = errors.New("lending: foreclosure before due date or after settlement")

	ErrProfileWithOutstandingLoans   = errors.New("lending: collection lending profile has outstanding loans")
	ErrProfileWithLoanOffers         = errors.New("lending: collection lending profile has open loan offers")
	ErrProfileWithAccumulatedFees    = errors.New("lending: collection lending profile has accumulated fees")
	ErrProfileWithoutAccumulatedFees = errors.New("lending: collection lending profile has no accumulated fees")
)

// Oracle errors always reject the triggering transition; the engine never
// substitutes a cached or default price.
var (
	ErrInvalidOracleFloorPriceAccount = errors.New("lending: invalid oracle floor price account")
	ErrStaleOracleFeed                = errors.New("lending: oracle floor price feed is stale")
	ErrLoanAmountExceedsMaxLtvAmount  = errors.New("lending: loan amount exceeds the maximum loan to value amount")
)

// Addressing and plumbing errors.
var (
	ErrProfileNotFound      = errors.New("lending: collection lending profile not found")
	ErrLoanNotFound         = errors.New("lending: loan not found")
	ErrAddressMismatch      = errors.New("lending: derived account does not match the supplied account")
	ErrUnauthorized         = errors.New("lending: signer is not the profile authority")
	ErrInsufficientBalance  = errors.New("lending: insufficient balance")
	ErrNilState             = errors.New("lending: engine state not configured")
	ErrCollateralNotInLoan  = errors.New("lending: loan does not hold collateral")
	ErrLoanAlreadyExists    = errors.New("lending: loan account already exists")
	ErrProfileAlreadyExists = errors.New("lending: collection lending profile already exists")
)
