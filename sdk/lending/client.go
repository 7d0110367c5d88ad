package lending

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"nftlend/crypto"
	"nftlend/native/lending"
)

// ErrAccountNotFound is returned when a fetch yields no account data.
var ErrAccountNotFound = errors.New("lending sdk: account not found")

// AccountFetcher retrieves raw account data by address. RPC transports,
// caches and test doubles all satisfy this.
type AccountFetcher interface {
	FetchAccount(ctx context.Context, addr crypto.PublicKey) ([]byte, error)
}

// Client decodes lending program accounts fetched from a transport and
// derives the program's addresses.
type Client struct {
	programID crypto.PublicKey
	fetcher   AccountFetcher
	logger    *slog.Logger
}

// NewClient builds a client for the given program. A nil logger discards
// debug output.
func NewClient(programID crypto.PublicKey, fetcher AccountFetcher, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{programID: programID, fetcher: fetcher, logger: logger}
}

func (c *Client) ProgramID() crypto.PublicKey { return c.programID }

// ProfileAddress derives the profile address for a collection, token mint
// and profile id.
func (c *Client) ProfileAddress(collectionMint, tokenMint crypto.PublicKey, id uint64) (crypto.PublicKey, uint8, error) {
	return lending.DeriveProfileAddress(collectionMint, tokenMint, id, c.programID)
}

// LoanAddress derives the loan address for a profile, lender and loan id.
func (c *Client) LoanAddress(profile, lender crypto.PublicKey, id uint64) (crypto.PublicKey, uint8, error) {
	return lending.DeriveLoanAddress(profile, lender, id, c.programID)
}

// UserAccountAddress derives the statistics account address for a wallet.
func (c *Client) UserAccountAddress(wallet crypto.PublicKey) (crypto.PublicKey, uint8, error) {
	return lending.DeriveUserAccountAddress(wallet, c.programID)
}

func (c *Client) fetch(ctx context.Context, kind string, addr crypto.PublicKey) ([]byte, error) {
	requestID := uuid.NewString()
	start := time.Now()
	data, err := c.fetcher.FetchAccount(ctx, addr)
	c.logger.Debug("account fetch",
		"request_id", requestID,
		"kind", kind,
		"address", addr.String(),
		"elapsed", time.Since(start),
		"err", err,
	)
	if err != nil {
		return nil, fmt.Errorf("lending sdk: fetch %s %s: %w", kind, addr, err)
	}
	if len(data) == 0 {
		return nil, ErrAccountNotFound
	}
	return data, nil
}

// Profile fetches and decodes a collection lending profile. The decoded seed
// fields must derive back to addr, guarding against a fetcher that answers
// with bytes for a different account.
func (c *Client) Profile(ctx context.Context, addr crypto.PublicKey) (*lending.CollectionLendingProfile, error) {
	data, err := c.fetch(ctx, "profile", addr)
	if err != nil {
		return nil, err
	}
	profile, err := lending.DecodeProfile(data)
	if err != nil {
		return nil, err
	}
	derived, _, err := c.ProfileAddress(profile.Collection, profile.TokenMint, profile.ID)
	if err != nil {
		return nil, err
	}
	if !derived.Equals(addr) {
		return nil, lending.ErrAddressMismatch
	}
	return profile, nil
}

// Loan fetches and decodes a loan, verifying the decoded seed fields derive
// back to addr.
func (c *Client) Loan(ctx context.Context, addr crypto.PublicKey) (*lending.Loan, error) {
	data, err := c.fetch(ctx, "loan", addr)
	if err != nil {
		return nil, err
	}
	loan, err := lending.DecodeLoan(data)
	if err != nil {
		return nil, err
	}
	derived, _, err := c.LoanAddress(loan.Profile, loan.Lender, loan.ID)
	if err != nil {
		return nil, err
	}
	if !derived.Equals(addr) {
		return nil, lending.ErrAddressMismatch
	}
	return loan, nil
}

// UserAccount fetches and decodes a user statistics account.
func (c *Client) UserAccount(ctx context.Context, addr crypto.PublicKey) (*lending.UserAccount, error) {
	data, err := c.fetch(ctx, "user", addr)
	if err != nil {
		return nil, err
	}
	return lending.DecodeUserAccount(data)
}

// LoanUpdate is one observation from a loan watch.
type LoanUpdate struct {
	Loan *lending.Loan
	Err  error
}

// WatchLoan polls a loan account and delivers a LoanUpdate whenever the
// observed stage or paid amount changes. The channel closes when ctx is
// cancelled. Slow consumers drop intermediate updates rather than stall the
// poll loop.
func (c *Client) WatchLoan(ctx context.Context, addr crypto.PublicKey, interval time.Duration) <-chan LoanUpdate {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	updates := make(chan LoanUpdate, 1)
	go func() {
		defer close(updates)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		var lastStage lending.LoanStage
		var lastPaid uint64
		seen := false
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			loan, err := c.Loan(ctx, addr)
			if err != nil {
				select {
				case updates <- LoanUpdate{Err: err}:
				default:
				}
				continue
			}
			if seen && loan.Stage == lastStage && loan.PaidAmount == lastPaid {
				continue
			}
			seen = true
			lastStage = loan.Stage
			lastPaid = loan.PaidAmount
			select {
			case updates <- LoanUpdate{Loan: loan}:
			default:
			}
			if loan.Stage.Terminal() {
				return
			}
		}
	}()
	return updates
}
