package lending

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"nftlend/crypto"
)

// Account byte layouts mirror the deployed program: an 8-byte account
// discriminator followed by fixed-width little-endian fields with reserved
// padding. The base layouts match the program's IDL byte for byte; the LTV
// account version appends its optional fields after the base record and tags
// itself in the first reserved padding byte, which base accounts leave zero.

var (
	errAccountTooSmall   = errors.New("lending: account data too small")
	errBadDiscriminator  = errors.New("lending: account discriminator mismatch")
	errAmountOutOfRange  = errors.New("lending: amount does not fit the field width")
	errUnknownAccountTag = errors.New("lending: unknown account version tag")
)

// Account discriminators, first 8 bytes of sha256("account:<Name>").
var (
	ProfileDiscriminator = accountDiscriminator("CollectionLendingProfile")
	LoanDiscriminator    = accountDiscriminator("Loan")
	UserDiscriminator    = accountDiscriminator("User")
)

func accountDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var disc [8]byte
	copy(disc[:], sum[:8])
	return disc
}

const (
	profileBaseSize = 312
	profileLtvSize  = profileBaseSize + 1 + crypto.PublicKeyLength
	loanBaseSize    = 192
	loanLtvSize     = loanBaseSize + crypto.PublicKeyLength + 16
	userAccountSize = 336
)

type reader struct {
	buf []byte
	off int
}

func (r *reader) skip(n int)   { r.off += n }
func (r *reader) u8() uint8    { v := r.buf[r.off]; r.off++; return v }
func (r *reader) u64() uint64  { v := binary.LittleEndian.Uint64(r.buf[r.off:]); r.off += 8; return v }
func (r *reader) key() crypto.PublicKey {
	var pk crypto.PublicKey
	copy(pk[:], r.buf[r.off:])
	r.off += crypto.PublicKeyLength
	return pk
}

func (r *reader) u128() *big.Int {
	le := r.buf[r.off : r.off+16]
	r.off += 16
	be := make([]byte, 16)
	for i, b := range le {
		be[15-i] = b
	}
	return new(big.Int).SetBytes(be)
}

type writer struct {
	buf []byte
	off int
}

func (w *writer) skip(n int)  { w.off += n }
func (w *writer) u8(v uint8)  { w.buf[w.off] = v; w.off++ }
func (w *writer) u64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[w.off:], v)
	w.off += 8
}

func (w *writer) key(pk crypto.PublicKey) {
	copy(w.buf[w.off:], pk[:])
	w.off += crypto.PublicKeyLength
}

func (w *writer) u128(v *big.Int) error {
	if v == nil {
		w.off += 16
		return nil
	}
	if v.Sign() < 0 || v.BitLen() > 128 {
		return errAmountOutOfRange
	}
	be := v.Bytes()
	for i, b := range be {
		w.buf[w.off+len(be)-1-i] = b
	}
	w.off += 16
	return nil
}

func checkDiscriminator(data []byte, want [8]byte) error {
	if len(data) < 8 {
		return errAccountTooSmall
	}
	var got [8]byte
	copy(got[:], data[:8])
	if got != want {
		return errBadDiscriminator
	}
	return nil
}

// EncodeProfile serialises a collection lending profile into its account byte
// layout.
func EncodeProfile(p *CollectionLendingProfile) ([]byte, error) {
	size := profileBaseSize
	if p.Version >= AccountVersionLtv {
		size = profileLtvSize
	}
	w := &writer{buf: make([]byte, size)}
	copy(w.buf, ProfileDiscriminator[:])
	w.skip(8)
	w.u8(uint8(p.Status))
	w.u8(p.VaultSignerBump)
	w.u8(uint8(p.Version))
	w.skip(13)
	w.key(p.Authority)
	w.key(p.Collection)
	w.key(p.TokenMint)
	w.key(p.TokenVault)
	w.key(p.Vault)
	if err := w.u128(p.LoanAmountOriginated); err != nil {
		return nil, fmt.Errorf("loan amount originated: %w", err)
	}
	if err := w.u128(p.LoanAmountRepaid); err != nil {
		return nil, fmt.Errorf("loan amount repaid: %w", err)
	}
	w.u64(p.FeeRateBps)
	w.u64(p.InterestRateBps)
	w.u64(p.LoanDuration)
	w.skip(8)
	w.u64(p.LoansOriginated)
	w.u64(p.LoansRepaid)
	w.u64(p.LoansForeclosed)
	w.u64(p.LoansRescinded)
	w.u64(p.OutstandingLoans)
	w.u64(p.LoansOffered)
	w.u64(p.FeesAccumulated)
	w.u64(p.ID)
	if p.Version >= AccountVersionLtv {
		if p.IsLtvEnabled {
			w.u8(1)
		} else {
			w.u8(0)
		}
		if p.FloorPriceOracle != nil {
			w.key(*p.FloorPriceOracle)
		} else {
			w.key(crypto.ZeroPublicKey)
		}
	}
	return w.buf, nil
}

// DecodeProfile parses account bytes into a collection lending profile.
func DecodeProfile(data []byte) (*CollectionLendingProfile, error) {
	if err := checkDiscriminator(data, ProfileDiscriminator); err != nil {
		return nil, err
	}
	if len(data) < profileBaseSize {
		return nil, errAccountTooSmall
	}
	r := &reader{buf: data, off: 8}
	p := &CollectionLendingProfile{}
	p.Status = Status(r.u8())
	p.VaultSignerBump = r.u8()
	p.Version = AccountVersion(r.u8())
	if !p.Version.Valid() {
		return nil, errUnknownAccountTag
	}
	r.skip(13)
	p.Authority = r.key()
	p.Collection = r.key()
	p.TokenMint = r.key()
	p.TokenVault = r.key()
	p.Vault = r.key()
	p.LoanAmountOriginated = r.u128()
	p.LoanAmountRepaid = r.u128()
	p.FeeRateBps = r.u64()
	p.InterestRateBps = r.u64()
	p.LoanDuration = r.u64()
	r.skip(8)
	p.LoansOriginated = r.u64()
	p.LoansRepaid = r.u64()
	p.LoansForeclosed = r.u64()
	p.LoansRescinded = r.u64()
	p.OutstandingLoans = r.u64()
	p.LoansOffered = r.u64()
	p.FeesAccumulated = r.u64()
	p.ID = r.u64()
	if p.Version >= AccountVersionLtv {
		if len(data) < profileLtvSize {
			return nil, errAccountTooSmall
		}
		p.IsLtvEnabled = r.u8() != 0
		oracle := r.key()
		if !oracle.IsZero() {
			p.FloorPriceOracle = &oracle
		}
	}
	return p, nil
}

// EncodeLoan serialises a loan into its account byte layout. An unbound
// borrower is written as the zero key.
func EncodeLoan(l *Loan) ([]byte, error) {
	size := loanBaseSize
	if l.Version >= AccountVersionLtv {
		size = loanLtvSize
	}
	w := &writer{buf: make([]byte, size)}
	copy(w.buf, LoanDiscriminator[:])
	w.skip(8)
	w.u8(l.EscrowBump)
	w.u8(uint8(l.Version))
	w.u8(uint8(l.Type))
	w.u8(uint8(l.TokenStandard))
	w.u8(uint8(l.Stage))
	w.skip(11)
	w.key(l.Profile)
	w.key(l.Lender)
	w.key(l.LoanMint)
	if l.Borrower != nil {
		w.key(*l.Borrower)
	} else {
		w.key(crypto.ZeroPublicKey)
	}
	w.u64(l.DueTimestamp)
	w.u64(l.PrincipalAmount)
	w.u64(l.RepaymentAmount)
	w.u64(l.PaidAmount)
	w.u64(l.ID)
	if l.Version >= AccountVersionLtv {
		if l.CollateralMint != nil {
			w.key(*l.CollateralMint)
		} else {
			w.key(crypto.ZeroPublicKey)
		}
		w.u64(l.MaxLtvAmount)
		w.u64(l.LtvAmountBps)
	}
	return w.buf, nil
}

// DecodeLoan parses account bytes into a loan. While the borrower is unbound
// the repayment and paid amounts decode as zero regardless of the stored
// bytes, so stale data from account reuse cannot leak.
func DecodeLoan(data []byte) (*Loan, error) {
	if err := checkDiscriminator(data, LoanDiscriminator); err != nil {
		return nil, err
	}
	if len(data) < loanBaseSize {
		return nil, errAccountTooSmall
	}
	r := &reader{buf: data, off: 8}
	l := &Loan{}
	l.EscrowBump = r.u8()
	l.Version = AccountVersion(r.u8())
	if !l.Version.Valid() {
		return nil, errUnknownAccountTag
	}
	l.Type = LoanType(r.u8())
	l.TokenStandard = TokenStandard(r.u8())
	stage := LoanStage(r.u8())
	r.skip(11)
	l.Profile = r.key()
	l.Lender = r.key()
	l.LoanMint = r.key()
	borrower := r.key()
	if !borrower.IsZero() {
		l.Borrower = &borrower
	}
	l.DueTimestamp = r.u64()
	l.PrincipalAmount = r.u64()
	l.RepaymentAmount = r.u64()
	l.PaidAmount = r.u64()
	l.ID = r.u64()
	if l.Version >= AccountVersionLtv {
		if len(data) < loanLtvSize {
			return nil, errAccountTooSmall
		}
		mint := r.key()
		if !mint.IsZero() {
			l.CollateralMint = &mint
		}
		l.MaxLtvAmount = r.u64()
		l.LtvAmountBps = r.u64()
		l.Stage = stage
	} else {
		// Base accounts predate the stage tag; derive it from the
		// borrower binding.
		if l.Borrower != nil {
			l.Stage = LoanStageTaken
		} else {
			l.Stage = LoanStageOffered
		}
	}
	if l.Borrower == nil {
		l.RepaymentAmount = 0
		l.PaidAmount = 0
	}
	return l, nil
}

// EncodeUserAccount serialises a user statistics account.
func EncodeUserAccount(u *UserAccount) ([]byte, error) {
	w := &writer{buf: make([]byte, userAccountSize)}
	copy(w.buf, UserDiscriminator[:])
	w.skip(8)
	w.key(u.Authority)
	w.u64(u.LoansOffered)
	w.u64(u.LoansTaken)
	w.u64(u.LoansRescinded)
	w.u64(u.LoansForeclosed)
	w.u64(u.LoansRepaid)
	return w.buf, nil
}

// DecodeUserAccount parses a user statistics account.
func DecodeUserAccount(data []byte) (*UserAccount, error) {
	if err := checkDiscriminator(data, UserDiscriminator); err != nil {
		return nil, err
	}
	if len(data) < userAccountSize {
		return nil, errAccountTooSmall
	}
	r := &reader{buf: data, off: 8}
	u := &UserAccount{}
	u.Authority = r.key()
	u.LoansOffered = r.u64()
	u.LoansTaken = r.u64()
	u.LoansRescinded = r.u64()
	u.LoansForeclosed = r.u64()
	u.LoansRepaid = r.u64()
	return u, nil
}
