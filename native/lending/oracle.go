package lending

import "nftlend/crypto"

// FloorPriceReading is a resolved floor price observation for a collection.
// Fetching the reading is the caller's concern; the engine only validates the
// resolved value. A reading is never substituted with a cached or default
// price when validation fails.
type FloorPriceReading struct {
	// Oracle is the account the reading was sourced from.
	Oracle crypto.PublicKey
	// Price is the collection floor price in native token smallest units.
	Price uint64
	// UpdatedAt is the unix timestamp of the last oracle update.
	UpdatedAt uint64
}

// DefaultOracleFreshnessWindow is the maximum accepted age of a floor price
// reading, in seconds.
const DefaultOracleFreshnessWindow = 300

// validateFloorPrice checks a reading against the profile's configured oracle
// and the freshness window at the supplied time.
func validateFloorPrice(profile *CollectionLendingProfile, reading *FloorPriceReading, now uint64, freshness uint64) error {
	if !profile.IsLtvEnabled || profile.FloorPriceOracle == nil {
		return ErrLtvNotEnabled
	}
	if reading == nil {
		return ErrMissingOracleFloorPriceAccount
	}
	if !reading.Oracle.Equals(*profile.FloorPriceOracle) || reading.Price == 0 {
		return ErrInvalidOracleFloorPriceAccount
	}
	if reading.UpdatedAt+freshness < now {
		return ErrStaleOracleFeed
	}
	return nil
}

// MaxLtvDraw computes the drawable amount for a reading and an LTV fraction in
// basis points.
func MaxLtvDraw(floorPrice, ltvAmountBps uint64) (uint64, error) {
	return mulBps(floorPrice, ltvAmountBps)
}
