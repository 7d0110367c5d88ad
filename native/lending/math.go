package lending

import "math/bits"

// BasisPointsDivisor is the divisor applied to all basis-point rates.
const BasisPointsDivisor = 10_000

// MaxRateBps is the ceiling accepted for interest and fee rates. A single
// loan period cannot charge more than 100%, which also keeps the repayment
// amount representable in 64 bits for any sane principal.
const MaxRateBps = BasisPointsDivisor

// mulBps computes amount * bps / 10_000 with intermediate 128-bit precision.
// It fails closed with ErrInvalidAmount if the result does not fit in 64 bits;
// monetary values never wrap.
func mulBps(amount, bps uint64) (uint64, error) {
	hi, lo := bits.Mul64(amount, bps)
	if hi >= BasisPointsDivisor {
		return 0, ErrInvalidAmount
	}
	quo, _ := bits.Div64(hi, lo, BasisPointsDivisor)
	return quo, nil
}

// checkedAdd adds two amounts, failing closed on overflow.
func checkedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrInvalidAmount
	}
	return sum, nil
}

// repaymentForPrincipal computes principal + principal * interestRateBps /
// 10_000, the amount due at the end of the loan period.
func repaymentForPrincipal(principal, interestRateBps uint64) (uint64, error) {
	interest, err := mulBps(principal, interestRateBps)
	if err != nil {
		return 0, err
	}
	return checkedAdd(principal, interest)
}
