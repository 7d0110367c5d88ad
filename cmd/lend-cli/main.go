package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"nftlend/config"
	"nftlend/crypto"
	"nftlend/native/lending"
	"nftlend/observability/logging"
	"nftlend/observability/metrics"
	"nftlend/storage"
)

var configPath = defaultConfigPath()

func defaultConfigPath() string {
	if path := os.Getenv("LEND_CONFIG"); path != "" {
		return path
	}
	return "lend.toml"
}

func main() {
	args := os.Args[1:]
	args = applyGlobalFlags(args)

	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	if command == "generate-key" {
		generateKey(args[1:])
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Setup(logging.Options{Service: "lend-cli", Level: cfg.LogLevel, File: cfg.LogFile})

	engine, closeState, err := openEngine(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeState()

	switch command {
	case "create-profile":
		if len(args) < 9 {
			fmt.Println("Error: create-profile <collection> <token-mint> <name> <interest-bps> <fee-bps> <duration> <id> <key-file>")
			return
		}
		createProfile(engine, args[1:])
	case "profile":
		if len(args) < 2 {
			fmt.Println("Error: Please provide a profile address.")
			return
		}
		showProfile(engine, args[1])
	case "set-status":
		if len(args) < 4 {
			fmt.Println("Error: set-status <profile> <active|suspended> <key-file>")
			return
		}
		setStatus(engine, args[1], args[2], args[3])
	case "set-params":
		if len(args) < 6 {
			fmt.Println("Error: set-params <profile> <duration|-> <interest-bps|-> <fee-bps|-> <key-file>")
			return
		}
		setParams(engine, args[1:])
	case "enable-ltv":
		if len(args) < 4 {
			fmt.Println("Error: enable-ltv <profile> <oracle> <key-file>")
			return
		}
		enableLtv(engine, args[1], args[2], args[3])
	case "disable-ltv":
		if len(args) < 3 {
			fmt.Println("Error: disable-ltv <profile> <key-file>")
			return
		}
		disableLtv(engine, args[1], args[2])
	case "close-profile":
		if len(args) < 3 {
			fmt.Println("Error: close-profile <profile> <key-file>")
			return
		}
		closeProfile(engine, args[1], args[2])
	case "sweep-fees":
		if len(args) < 5 {
			fmt.Println("Error: sweep-fees <profile> <destination> <native|token> <key-file>")
			return
		}
		sweepFees(engine, args[1], args[2], args[3], args[4])
	case "fund":
		if len(args) < 3 {
			fmt.Println("Error: fund <address> <amount>")
			return
		}
		fund(engine, args[1], args[2])
	case "balance":
		if len(args) < 2 {
			fmt.Println("Error: Please provide an address.")
			return
		}
		showBalance(engine, args[1])
	case "offer-loan":
		if len(args) < 5 {
			fmt.Println("Error: offer-loan <profile> <amount> <id> <key-file>")
			return
		}
		offerLoan(engine, args[1], args[2], args[3], args[4])
	case "offer-ltv-loan":
		if len(args) < 6 {
			fmt.Println("Error: offer-ltv-loan <profile> <max-amount> <ltv-bps> <id> <key-file>")
			return
		}
		offerLtvLoan(engine, args[1], args[2], args[3], args[4], args[5])
	case "rescind-loan":
		if len(args) < 3 {
			fmt.Println("Error: rescind-loan <loan> <key-file>")
			return
		}
		rescindLoan(engine, args[1], args[2])
	case "take-loan":
		if len(args) < 4 {
			fmt.Println("Error: take-loan <loan> <collateral-mint> <key-file> [floor-price]")
			return
		}
		takeLoan(engine, args[1:])
	case "repay-loan":
		if len(args) < 4 {
			fmt.Println("Error: repay-loan <loan> <amount> <key-file>")
			return
		}
		repayLoan(engine, args[1], args[2], args[3])
	case "foreclose-loan":
		if len(args) < 3 {
			fmt.Println("Error: foreclose-loan <loan> <key-file>")
			return
		}
		forecloseLoan(engine, args[1], args[2])
	case "loan":
		if len(args) < 2 {
			fmt.Println("Error: Please provide a loan address.")
			return
		}
		showLoan(engine, args[1])
	case "user":
		if len(args) < 2 {
			fmt.Println("Error: Please provide a wallet address.")
			return
		}
		showUser(engine, args[1])
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func applyGlobalFlags(args []string) []string {
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
		default:
			rest = append(rest, arg)
		}
	}
	return rest
}

func openEngine(cfg *config.Config) (*lending.Engine, func(), error) {
	programID, err := cfg.Program()
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.NewLevelDB(cfg.DatabasePath())
	if err != nil {
		return nil, nil, fmt.Errorf("open state database: %w", err)
	}
	state := storage.NewState(db)
	engine := lending.NewEngine(programID)
	engine.SetState(state)
	engine.SetMetrics(metrics.Lending())
	if cfg.OracleFreshness > 0 {
		engine.SetOracleFreshness(cfg.OracleFreshness)
	}
	return engine, func() { state.Close() }, nil
}

func generateKey(args []string) {
	path := "wallet.json"
	if len(args) > 0 {
		path = args[0]
	}
	keypair, err := crypto.GenerateKeypair()
	if err != nil {
		fmt.Println("Error generating key:", err)
		return
	}
	data, err := json.Marshal(keypair.Bytes())
	if err != nil {
		fmt.Println("Error encoding key:", err)
		return
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		fmt.Println("Error writing key file:", err)
		return
	}
	fmt.Printf("New key saved to %s\n", path)
	fmt.Printf("Public key: %s\n", keypair.PublicKey())
}

func loadSignerKey(path string) (crypto.PublicKey, bool) {
	keypair, err := crypto.LoadKeypair(path)
	if err != nil {
		fmt.Println("Error loading key file:", err)
		return crypto.PublicKey{}, false
	}
	return keypair.PublicKey(), true
}

func parseKey(label, s string) (crypto.PublicKey, bool) {
	pk, err := crypto.DecodePublicKey(s)
	if err != nil {
		fmt.Printf("Error: invalid %s address: %v\n", label, err)
		return crypto.PublicKey{}, false
	}
	return pk, true
}

func parseAmount(label, s string) (uint64, bool) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		fmt.Printf("Error: invalid %s: %v\n", label, err)
		return 0, false
	}
	return v, true
}

// parseDuration accepts plain seconds or a colon separated duration string.
func parseDuration(s string) (uint64, bool) {
	seconds, err := lending.ParseDurationString(s)
	if err != nil {
		fmt.Println("Error: invalid duration:", err)
		return 0, false
	}
	return seconds, true
}

func createProfile(engine *lending.Engine, args []string) {
	collection, ok := parseKey("collection", args[0])
	if !ok {
		return
	}
	tokenMint, ok := parseKey("token mint", args[1])
	if !ok {
		return
	}
	interest, ok := parseAmount("interest rate", args[3])
	if !ok {
		return
	}
	fee, ok := parseAmount("fee rate", args[4])
	if !ok {
		return
	}
	duration, ok := parseDuration(args[5])
	if !ok {
		return
	}
	id, ok := parseAmount("id", args[6])
	if !ok {
		return
	}
	authority, ok := loadSignerKey(args[7])
	if !ok {
		return
	}

	addr, profile, err := engine.CreateProfile(lending.CreateProfileParams{
		CollectionMint:  collection,
		TokenMint:       tokenMint,
		Authority:       authority,
		CollectionName:  args[2],
		InterestRateBps: interest,
		FeeRateBps:      fee,
		LoanDuration:    duration,
		ID:              id,
	})
	if err != nil {
		fmt.Println("Error creating profile:", err)
		return
	}
	fmt.Printf("Profile created at %s\n", addr)
	fmt.Printf("  vault:       %s\n", profile.Vault)
	fmt.Printf("  token vault: %s\n", profile.TokenVault)
	fmt.Printf("  duration:    %s\n", lending.FormatDurationString(profile.LoanDuration))
}

func showProfile(engine *lending.Engine, addrStr string) {
	addr, ok := parseKey("profile", addrStr)
	if !ok {
		return
	}
	profile, err := engine.Profile(addr)
	if err != nil {
		fmt.Println("Error loading profile:", err)
		return
	}
	fmt.Printf("Profile %s\n", addr)
	fmt.Printf("  status:            %s\n", profile.Status)
	fmt.Printf("  collection:        %s\n", profile.Collection)
	fmt.Printf("  token mint:        %s\n", profile.TokenMint)
	fmt.Printf("  interest rate:     %d bps\n", profile.InterestRateBps)
	fmt.Printf("  fee rate:          %d bps\n", profile.FeeRateBps)
	fmt.Printf("  loan duration:     %s\n", lending.FormatDurationString(profile.LoanDuration))
	fmt.Printf("  open offers:       %d\n", profile.OpenOffers())
	fmt.Printf("  outstanding loans: %d\n", profile.OutstandingLoans)
	fmt.Printf("  fees accumulated:  %d\n", profile.FeesAccumulated)
	if profile.IsLtvEnabled && profile.FloorPriceOracle != nil {
		fmt.Printf("  ltv oracle:        %s\n", *profile.FloorPriceOracle)
	}
}

func setStatus(engine *lending.Engine, profileStr, statusStr, keyFile string) {
	profile, ok := parseKey("profile", profileStr)
	if !ok {
		return
	}
	authority, ok := loadSignerKey(keyFile)
	if !ok {
		return
	}
	var status lending.Status
	switch statusStr {
	case "active":
		status = lending.StatusActive
	case "suspended":
		status = lending.StatusSuspended
	default:
		fmt.Println("Error: status must be active or suspended.")
		return
	}
	if err := engine.SetProfileStatus(profile, authority, status); err != nil {
		fmt.Println("Error setting status:", err)
		return
	}
	fmt.Printf("Profile %s is now %s\n", profile, status)
}

func setParams(engine *lending.Engine, args []string) {
	profile, ok := parseKey("profile", args[0])
	if !ok {
		return
	}
	optional := func(label, s string) (*uint64, bool) {
		if s == "-" {
			return nil, true
		}
		v, ok := parseAmount(label, s)
		if !ok {
			return nil, false
		}
		return &v, true
	}
	duration, ok := optional("duration", args[1])
	if !ok {
		return
	}
	interest, ok := optional("interest rate", args[2])
	if !ok {
		return
	}
	fee, ok := optional("fee rate", args[3])
	if !ok {
		return
	}
	authority, ok := loadSignerKey(args[4])
	if !ok {
		return
	}
	if err := engine.SetProfileParams(profile, authority, duration, interest, fee); err != nil {
		fmt.Println("Error setting params:", err)
		return
	}
	fmt.Printf("Profile %s parameters updated\n", profile)
}

func enableLtv(engine *lending.Engine, profileStr, oracleStr, keyFile string) {
	profile, ok := parseKey("profile", profileStr)
	if !ok {
		return
	}
	oracle, ok := parseKey("oracle", oracleStr)
	if !ok {
		return
	}
	authority, ok := loadSignerKey(keyFile)
	if !ok {
		return
	}
	if err := engine.EnableLtv(profile, authority, oracle); err != nil {
		fmt.Println("Error enabling LTV:", err)
		return
	}
	fmt.Printf("LTV loans enabled on %s\n", profile)
}

func disableLtv(engine *lending.Engine, profileStr, keyFile string) {
	profile, ok := parseKey("profile", profileStr)
	if !ok {
		return
	}
	authority, ok := loadSignerKey(keyFile)
	if !ok {
		return
	}
	if err := engine.DisableLtv(profile, authority); err != nil {
		fmt.Println("Error disabling LTV:", err)
		return
	}
	fmt.Printf("LTV loans disabled on %s\n", profile)
}

func closeProfile(engine *lending.Engine, profileStr, keyFile string) {
	profile, ok := parseKey("profile", profileStr)
	if !ok {
		return
	}
	authority, ok := loadSignerKey(keyFile)
	if !ok {
		return
	}
	if err := engine.CloseProfile(profile, authority); err != nil {
		fmt.Println("Error closing profile:", err)
		return
	}
	fmt.Printf("Profile %s closed\n", profile)
}

func sweepFees(engine *lending.Engine, profileStr, destStr, kind, keyFile string) {
	profile, ok := parseKey("profile", profileStr)
	if !ok {
		return
	}
	destination, ok := parseKey("destination", destStr)
	if !ok {
		return
	}
	authority, ok := loadSignerKey(keyFile)
	if !ok {
		return
	}
	var swept uint64
	var err error
	switch kind {
	case "native":
		swept, err = engine.SweepNativeFees(profile, authority, destination)
	case "token":
		swept, err = engine.SweepTokenFees(profile, authority, destination)
	default:
		fmt.Println("Error: sweep kind must be native or token.")
		return
	}
	if err != nil {
		fmt.Println("Error sweeping fees:", err)
		return
	}
	fmt.Printf("Swept %d to %s\n", swept, destination)
}

func fund(engine *lending.Engine, addrStr, amountStr string) {
	addr, ok := parseKey("account", addrStr)
	if !ok {
		return
	}
	amount, ok := parseAmount("amount", amountStr)
	if !ok {
		return
	}
	if err := engine.Fund(addr, amount); err != nil {
		fmt.Println("Error funding account:", err)
		return
	}
	fmt.Printf("Funded %s with %d\n", addr, amount)
}

func showBalance(engine *lending.Engine, addrStr string) {
	addr, ok := parseKey("account", addrStr)
	if !ok {
		return
	}
	balance, err := engine.Balance(addr)
	if err != nil {
		fmt.Println("Error loading balance:", err)
		return
	}
	fmt.Printf("Balance of %s: %d\n", addr, balance)
}

func offerLoan(engine *lending.Engine, profileStr, amountStr, idStr, keyFile string) {
	profile, ok := parseKey("profile", profileStr)
	if !ok {
		return
	}
	amount, ok := parseAmount("amount", amountStr)
	if !ok {
		return
	}
	id, ok := parseAmount("id", idStr)
	if !ok {
		return
	}
	lender, ok := loadSignerKey(keyFile)
	if !ok {
		return
	}
	addr, _, err := engine.OfferLoan(lending.OfferLoanParams{
		Profile:         profile,
		Lender:          lender,
		Type:            lending.LoanTypeSimple,
		TokenStandard:   lending.TokenStandardLegacy,
		PrincipalAmount: amount,
		ID:              id,
	})
	if err != nil {
		fmt.Println("Error offering loan:", err)
		return
	}
	fmt.Printf("Loan offered at %s\n", addr)
}

func offerLtvLoan(engine *lending.Engine, profileStr, maxStr, bpsStr, idStr, keyFile string) {
	profile, ok := parseKey("profile", profileStr)
	if !ok {
		return
	}
	maxAmount, ok := parseAmount("max amount", maxStr)
	if !ok {
		return
	}
	bps, ok := parseAmount("ltv bps", bpsStr)
	if !ok {
		return
	}
	id, ok := parseAmount("id", idStr)
	if !ok {
		return
	}
	lender, ok := loadSignerKey(keyFile)
	if !ok {
		return
	}
	addr, _, err := engine.OfferLoan(lending.OfferLoanParams{
		Profile:       profile,
		Lender:        lender,
		Type:          lending.LoanTypeLoanToValue,
		TokenStandard: lending.TokenStandardLegacy,
		MaxLtvAmount:  maxAmount,
		LtvAmountBps:  bps,
		ID:            id,
	})
	if err != nil {
		fmt.Println("Error offering LTV loan:", err)
		return
	}
	fmt.Printf("LTV loan offered at %s\n", addr)
}

func rescindLoan(engine *lending.Engine, loanStr, keyFile string) {
	loan, ok := parseKey("loan", loanStr)
	if !ok {
		return
	}
	lender, ok := loadSignerKey(keyFile)
	if !ok {
		return
	}
	if err := engine.RescindLoan(loan, lender); err != nil {
		fmt.Println("Error rescinding loan:", err)
		return
	}
	fmt.Printf("Loan %s rescinded\n", loan)
}

func takeLoan(engine *lending.Engine, args []string) {
	loanAddr, ok := parseKey("loan", args[0])
	if !ok {
		return
	}
	collateral, ok := parseKey("collateral mint", args[1])
	if !ok {
		return
	}
	borrower, ok := loadSignerKey(args[2])
	if !ok {
		return
	}
	params := lending.TakeLoanParams{
		Loan:           loanAddr,
		Borrower:       borrower,
		CollateralMint: collateral,
	}
	if len(args) > 3 {
		price, ok := parseAmount("floor price", args[3])
		if !ok {
			return
		}
		stored, err := engine.Loan(loanAddr)
		if err != nil {
			fmt.Println("Error loading loan:", err)
			return
		}
		profile, err := engine.Profile(stored.Profile)
		if err != nil {
			fmt.Println("Error loading profile:", err)
			return
		}
		if profile.FloorPriceOracle == nil {
			fmt.Println("Error: profile has no floor price oracle.")
			return
		}
		params.FloorPrice = &lending.FloorPriceReading{
			Oracle:    *profile.FloorPriceOracle,
			Price:     price,
			UpdatedAt: uint64(nowUnix()),
		}
	}
	loan, err := engine.TakeLoan(params)
	if err != nil {
		fmt.Println("Error taking loan:", err)
		return
	}
	fmt.Printf("Loan taken: principal %d, repayment %d, due %d\n",
		loan.PrincipalAmount, loan.RepaymentAmount, loan.DueTimestamp)
}

func repayLoan(engine *lending.Engine, loanStr, amountStr, keyFile string) {
	loan, ok := parseKey("loan", loanStr)
	if !ok {
		return
	}
	amount, ok := parseAmount("amount", amountStr)
	if !ok {
		return
	}
	borrower, ok := loadSignerKey(keyFile)
	if !ok {
		return
	}
	if err := engine.RepayLoan(loan, borrower, amount); err != nil {
		fmt.Println("Error repaying loan:", err)
		return
	}
	stored, err := engine.Loan(loan)
	if err != nil {
		fmt.Println("Error loading loan:", err)
		return
	}
	if stored.Stage == lending.LoanStageRepaid {
		fmt.Println("Loan fully repaid.")
	} else {
		fmt.Printf("Repaid %d, remaining balance %d\n", amount, stored.RemainingBalance())
	}
}

func forecloseLoan(engine *lending.Engine, loanStr, keyFile string) {
	loan, ok := parseKey("loan", loanStr)
	if !ok {
		return
	}
	lender, ok := loadSignerKey(keyFile)
	if !ok {
		return
	}
	if err := engine.ForecloseLoan(loan, lender); err != nil {
		fmt.Println("Error foreclosing loan:", err)
		return
	}
	fmt.Printf("Loan %s foreclosed\n", loan)
}

func showLoan(engine *lending.Engine, addrStr string) {
	addr, ok := parseKey("loan", addrStr)
	if !ok {
		return
	}
	loan, err := engine.Loan(addr)
	if err != nil {
		fmt.Println("Error loading loan:", err)
		return
	}
	fmt.Printf("Loan %s\n", addr)
	fmt.Printf("  stage:     %s\n", loan.Stage)
	fmt.Printf("  type:      %s\n", loan.Type)
	fmt.Printf("  lender:    %s\n", loan.Lender)
	if loan.Borrower != nil {
		fmt.Printf("  borrower:  %s\n", *loan.Borrower)
	}
	fmt.Printf("  principal: %d\n", loan.PrincipalAmount)
	if loan.Taken() {
		fmt.Printf("  repayment: %d\n", loan.RepaymentAmount)
		fmt.Printf("  paid:      %d\n", loan.PaidAmount)
		fmt.Printf("  due:       %d\n", loan.DueTimestamp)
	}
}

func showUser(engine *lending.Engine, addrStr string) {
	addr, ok := parseKey("wallet", addrStr)
	if !ok {
		return
	}
	user, err := engine.User(addr)
	if err != nil {
		fmt.Println("Error loading user:", err)
		return
	}
	fmt.Printf("User %s\n", addr)
	fmt.Printf("  loans offered:    %d\n", user.LoansOffered)
	fmt.Printf("  loans taken:      %d\n", user.LoansTaken)
	fmt.Printf("  loans rescinded:  %d\n", user.LoansRescinded)
	fmt.Printf("  loans repaid:     %d\n", user.LoansRepaid)
	fmt.Printf("  loans foreclosed: %d\n", user.LoansForeclosed)
}

func nowUnix() int64 { return time.Now().Unix() }

func printUsage() {
	fmt.Println("Usage: lend-cli [--config <path>] <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  generate-key [file]                                            Generate a new keypair")
	fmt.Println("  create-profile <collection> <mint> <name> <bps> <bps> <dur> <id> <key>")
	fmt.Println("  profile <address>                                              Show a lending profile")
	fmt.Println("  set-status <profile> <active|suspended> <key>")
	fmt.Println("  set-params <profile> <duration|-> <interest|-> <fee|-> <key>")
	fmt.Println("  enable-ltv <profile> <oracle> <key>")
	fmt.Println("  disable-ltv <profile> <key>")
	fmt.Println("  close-profile <profile> <key>")
	fmt.Println("  sweep-fees <profile> <destination> <native|token> <key>")
	fmt.Println("  fund <address> <amount>                                        Credit a simulation balance")
	fmt.Println("  balance <address>")
	fmt.Println("  offer-loan <profile> <amount> <id> <key>")
	fmt.Println("  offer-ltv-loan <profile> <max-amount> <ltv-bps> <id> <key>")
	fmt.Println("  rescind-loan <loan> <key>")
	fmt.Println("  take-loan <loan> <collateral-mint> <key> [floor-price]")
	fmt.Println("  repay-loan <loan> <amount> <key>")
	fmt.Println("  foreclose-loan <loan> <key>")
	fmt.Println("  loan <address>                                                 Show a loan")
	fmt.Println("  user <wallet>                                                  Show wallet lending stats")
}
