package lending

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nftlend/crypto"
	"nftlend/native/lending"
)

type mapFetcher struct {
	mu       sync.Mutex
	accounts map[crypto.PublicKey][]byte
	err      error
}

func newMapFetcher() *mapFetcher {
	return &mapFetcher{accounts: make(map[crypto.PublicKey][]byte)}
}

func (f *mapFetcher) set(addr crypto.PublicKey, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[addr] = data
}

func (f *mapFetcher) FetchAccount(_ context.Context, addr crypto.PublicKey) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.accounts[addr], nil
}

func TestClientFetchesProfile(t *testing.T) {
	fetcher := newMapFetcher()
	client := NewClient(key(0x01), fetcher, nil)

	profile := &lending.CollectionLendingProfile{
		Status:          lending.StatusActive,
		Version:         lending.AccountVersionLtv,
		Authority:       key(0xAA),
		Collection:      key(0x11),
		TokenMint:       key(0x12),
		InterestRateBps: 1000,
		ID:              1,
	}
	data, err := lending.EncodeProfile(profile)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	addr, _, err := client.ProfileAddress(profile.Collection, profile.TokenMint, profile.ID)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	fetcher.set(addr, data)

	got, err := client.Profile(context.Background(), addr)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got.InterestRateBps != 1000 || !got.Authority.Equals(profile.Authority) {
		t.Fatalf("unexpected profile: %+v", got)
	}

	if _, err := client.Profile(context.Background(), key(0x99)); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestClientRejectsWrongAccountKind(t *testing.T) {
	fetcher := newMapFetcher()
	client := NewClient(key(0x01), fetcher, nil)

	data, err := lending.EncodeUserAccount(&lending.UserAccount{Authority: key(0xCC)})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	addr := key(0x10)
	fetcher.set(addr, data)

	if _, err := client.Loan(context.Background(), addr); err == nil {
		t.Fatal("expected discriminator mismatch")
	}
}

func TestClientRejectsMisaddressedAccount(t *testing.T) {
	fetcher := newMapFetcher()
	client := NewClient(key(0x01), fetcher, nil)

	loan := &lending.Loan{
		Version:         lending.AccountVersionLtv,
		Type:            lending.LoanTypeSimple,
		TokenStandard:   lending.TokenStandardLegacy,
		Stage:           lending.LoanStageOffered,
		Profile:         key(0x10),
		Lender:          key(0xBB),
		PrincipalAmount: 1_000_000,
		ID:              1,
	}
	data, err := lending.EncodeLoan(loan)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// Valid loan bytes parked at an address the seeds do not derive to.
	addr := key(0x20)
	fetcher.set(addr, data)

	if _, err := client.Loan(context.Background(), addr); !errors.Is(err, lending.ErrAddressMismatch) {
		t.Fatalf("expected ErrAddressMismatch, got %v", err)
	}
}

func TestClientDerivationsMatchEngine(t *testing.T) {
	programID := key(0x01)
	client := NewClient(programID, newMapFetcher(), nil)

	want, wantBump, err := lending.DeriveProfileAddress(key(0x11), key(0x12), 1, programID)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	got, gotBump, err := client.ProfileAddress(key(0x11), key(0x12), 1)
	if err != nil {
		t.Fatalf("client derive: %v", err)
	}
	if !got.Equals(want) || gotBump != wantBump {
		t.Fatal("client derivation diverges from engine derivation")
	}
}

func TestWatchLoanDeliversTransitions(t *testing.T) {
	fetcher := newMapFetcher()
	client := NewClient(key(0x01), fetcher, nil)

	offered := &lending.Loan{
		Version:         lending.AccountVersionLtv,
		Type:            lending.LoanTypeSimple,
		TokenStandard:   lending.TokenStandardLegacy,
		Stage:           lending.LoanStageOffered,
		Profile:         key(0x10),
		Lender:          key(0xBB),
		PrincipalAmount: 1_000_000,
		ID:              1,
	}
	data, err := lending.EncodeLoan(offered)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	addr, _, err := client.LoanAddress(offered.Profile, offered.Lender, offered.ID)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	fetcher.set(addr, data)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	updates := client.WatchLoan(ctx, addr, 5*time.Millisecond)

	first := <-updates
	if first.Err != nil {
		t.Fatalf("first update: %v", first.Err)
	}
	if first.Loan.Stage != lending.LoanStageOffered {
		t.Fatalf("first stage = %s", first.Loan.Stage)
	}

	rescinded := offered.Clone()
	rescinded.Stage = lending.LoanStageRescinded
	data, err = lending.EncodeLoan(rescinded)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	fetcher.set(addr, data)

	for update := range updates {
		if update.Err != nil {
			continue
		}
		if update.Loan.Stage == lending.LoanStageRescinded {
			return
		}
	}
	t.Fatal("watch closed without delivering the terminal stage")
}
