package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"nftlend/crypto"
	"nftlend/native/lending"
)

// Key prefixes namespace the account kinds inside one database.
var (
	prefixProfile = []byte("profile/")
	prefixLoan    = []byte("loan/")
	prefixUser    = []byte("user/")
	prefixBalance = []byte("balance/")
)

// State persists lending accounts in a Database using their on-chain byte
// layouts. It implements lending.State.
type State struct {
	db Database
}

func NewState(db Database) *State {
	return &State{db: db}
}

// Close releases the underlying database.
func (s *State) Close() error { return s.db.Close() }

func accountKey(prefix []byte, addr crypto.PublicKey) []byte {
	key := make([]byte, 0, len(prefix)+crypto.PublicKeyLength)
	key = append(key, prefix...)
	return append(key, addr[:]...)
}

func (s *State) GetProfile(addr crypto.PublicKey) (*lending.CollectionLendingProfile, error) {
	data, err := s.db.Get(accountKey(prefixProfile, addr))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	profile, err := lending.DecodeProfile(data)
	if err != nil {
		return nil, fmt.Errorf("storage: profile %s: %w", addr, err)
	}
	return profile, nil
}

func (s *State) PutProfile(addr crypto.PublicKey, profile *lending.CollectionLendingProfile) error {
	data, err := lending.EncodeProfile(profile)
	if err != nil {
		return fmt.Errorf("storage: profile %s: %w", addr, err)
	}
	return s.db.Put(accountKey(prefixProfile, addr), data)
}

func (s *State) DeleteProfile(addr crypto.PublicKey) error {
	return s.db.Delete(accountKey(prefixProfile, addr))
}

func (s *State) GetLoan(addr crypto.PublicKey) (*lending.Loan, error) {
	data, err := s.db.Get(accountKey(prefixLoan, addr))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	loan, err := lending.DecodeLoan(data)
	if err != nil {
		return nil, fmt.Errorf("storage: loan %s: %w", addr, err)
	}
	return loan, nil
}

func (s *State) PutLoan(addr crypto.PublicKey, loan *lending.Loan) error {
	data, err := lending.EncodeLoan(loan)
	if err != nil {
		return fmt.Errorf("storage: loan %s: %w", addr, err)
	}
	return s.db.Put(accountKey(prefixLoan, addr), data)
}

func (s *State) DeleteLoan(addr crypto.PublicKey) error {
	return s.db.Delete(accountKey(prefixLoan, addr))
}

func (s *State) GetUserAccount(addr crypto.PublicKey) (*lending.UserAccount, error) {
	data, err := s.db.Get(accountKey(prefixUser, addr))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user, err := lending.DecodeUserAccount(data)
	if err != nil {
		return nil, fmt.Errorf("storage: user %s: %w", addr, err)
	}
	return user, nil
}

func (s *State) PutUserAccount(addr crypto.PublicKey, user *lending.UserAccount) error {
	data, err := lending.EncodeUserAccount(user)
	if err != nil {
		return fmt.Errorf("storage: user %s: %w", addr, err)
	}
	return s.db.Put(accountKey(prefixUser, addr), data)
}

func (s *State) GetBalance(addr crypto.PublicKey) (uint64, error) {
	data, err := s.db.Get(accountKey(prefixBalance, addr))
	if errors.Is(err, ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("storage: balance %s: unexpected value length %d", addr, len(data))
	}
	return binary.LittleEndian.Uint64(data), nil
}

func (s *State) SetBalance(addr crypto.PublicKey, amount uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], amount)
	return s.db.Put(accountKey(prefixBalance, addr), buf[:])
}
