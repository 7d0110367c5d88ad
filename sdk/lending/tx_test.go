package lending

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"nftlend/crypto"
	"nftlend/native/lending"
)

func key(fill byte) crypto.PublicKey {
	var pk crypto.PublicKey
	for i := range pk {
		pk[i] = fill
	}
	return pk
}

func wantSighash(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	return sum[:8]
}

func TestCreateProfileInstruction(t *testing.T) {
	programID := key(0x01)
	ix := NewCreateProfileInstruction(programID, CreateProfileAccounts{
		Profile:    key(0x10),
		Collection: key(0x11),
		TokenMint:  key(0x12),
		TokenVault: key(0x13),
		Vault:      key(0x14),
		Authority:  key(0xAA),
		Payer:      key(0xAB),
	}, lending.CreateProfileParams{
		CollectionName:  "Degen Apes",
		InterestRateBps: 1000,
		FeeRateBps:      25,
		LoanDuration:    3600,
		ID:              7,
	})

	if !ix.ProgramID.Equals(programID) {
		t.Fatal("wrong program id")
	}
	if len(ix.Accounts) != 10 {
		t.Fatalf("accounts = %d, want 10", len(ix.Accounts))
	}
	if !ix.Accounts[0].IsWritable || ix.Accounts[0].IsSigner {
		t.Fatalf("profile meta flags wrong: %+v", ix.Accounts[0])
	}
	if !ix.Accounts[5].IsSigner || ix.Accounts[5].IsWritable {
		t.Fatalf("authority meta flags wrong: %+v", ix.Accounts[5])
	}
	if !ix.Accounts[6].IsSigner || !ix.Accounts[6].IsWritable {
		t.Fatalf("payer meta flags wrong: %+v", ix.Accounts[6])
	}

	// discriminator + name + 4 u64 args
	if len(ix.Data) != 8+32+4*8 {
		t.Fatalf("data length = %d", len(ix.Data))
	}
	if string(ix.Data[:8]) != string(wantSighash("create_collection_lending_profile")) {
		t.Fatal("wrong method discriminator")
	}
	if got := string(ix.Data[8:18]); got != "Degen Apes" {
		t.Fatalf("collection name = %q", got)
	}
	if got := binary.LittleEndian.Uint64(ix.Data[40:]); got != 1000 {
		t.Fatalf("interest rate arg = %d", got)
	}
	if got := binary.LittleEndian.Uint64(ix.Data[64:]); got != 3600 {
		t.Fatalf("loan duration arg = %d", got)
	}
}

func TestOfferLoanInstructionData(t *testing.T) {
	ix := NewOfferLoanInstruction(key(0x01), OfferLoanAccounts{
		Profile: key(0x10),
		Loan:    key(0x20),
		Lender:  key(0xBB),
	}, 1_000_000, 3)

	if string(ix.Data[:8]) != string(wantSighash("offer_loan")) {
		t.Fatal("wrong method discriminator")
	}
	if got := binary.LittleEndian.Uint64(ix.Data[8:]); got != 1_000_000 {
		t.Fatalf("amount arg = %d", got)
	}
	if got := binary.LittleEndian.Uint64(ix.Data[16:]); got != 3 {
		t.Fatalf("id arg = %d", got)
	}
	if len(ix.Accounts) != 12 {
		t.Fatalf("accounts = %d, want 12", len(ix.Accounts))
	}
	lender := ix.Accounts[7]
	if !lender.IsSigner || !lender.IsWritable || !lender.PublicKey.Equals(key(0xBB)) {
		t.Fatalf("lender meta wrong: %+v", lender)
	}
}

func TestSetProfileParamsOptionEncoding(t *testing.T) {
	rate := uint64(1500)
	ix := NewSetProfileParamsInstruction(key(0x01), key(0x10), key(0xAA), nil, &rate, nil)

	want := append([]byte{}, wantSighash("set_collection_lending_profile_params")...)
	want = append(want, 0)
	want = append(want, 1, 0xDC, 0x05, 0, 0, 0, 0, 0, 0)
	want = append(want, 0)
	if string(ix.Data) != string(want) {
		t.Fatalf("data = %x, want %x", ix.Data, want)
	}
}

func TestEnableLtvCarriesOracleAccount(t *testing.T) {
	oracle := key(0x77)
	ix := NewEnableLtvInstruction(key(0x01), key(0x10), key(0xAA), oracle)
	last := ix.Accounts[len(ix.Accounts)-1]
	if !last.PublicKey.Equals(oracle) || last.IsSigner || last.IsWritable {
		t.Fatalf("oracle meta wrong: %+v", last)
	}
}

func TestNoArgInstructionsOnlyCarryDiscriminator(t *testing.T) {
	cases := map[string][]byte{
		"close_collection_lending_profile": NewCloseProfileInstruction(key(0x01), CloseProfileAccounts{}).Data,
		"disable_ltv":                      NewDisableLtvInstruction(key(0x01), key(0x10), key(0xAA)).Data,
		"rescind_loan":                     NewRescindLoanInstruction(key(0x01), RescindLoanAccounts{}).Data,
		"take_loan":                        NewTakeLoanInstruction(key(0x01), TakeLoanAccounts{}).Data,
		"foreclose_loan":                   NewForecloseLoanInstruction(key(0x01), ForecloseLoanAccounts{}).Data,
		"sweep_token_fees":                 NewSweepTokenFeesInstruction(key(0x01), SweepTokenFeesAccounts{}).Data,
		"sweep_native_fees":                NewSweepNativeFeesInstruction(key(0x01), SweepNativeFeesAccounts{}).Data,
	}
	for name, data := range cases {
		if len(data) != 8 {
			t.Fatalf("%s: data length = %d, want 8", name, len(data))
		}
		if string(data) != string(wantSighash(name)) {
			t.Fatalf("%s: wrong discriminator", name)
		}
	}
}
