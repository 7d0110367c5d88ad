package lending

import (
	"errors"
	"math"
	"testing"
)

func TestMulBps(t *testing.T) {
	cases := []struct {
		amount, bps, want uint64
	}{
		{1_000_000, 1000, 100_000},
		{1_100_000, 25, 2_750},
		{1, 1, 0},
		{math.MaxUint64, 0, 0},
		{math.MaxUint64, BasisPointsDivisor, math.MaxUint64},
	}
	for _, tc := range cases {
		got, err := mulBps(tc.amount, tc.bps)
		if err != nil {
			t.Fatalf("mulBps(%d, %d): %v", tc.amount, tc.bps, err)
		}
		if got != tc.want {
			t.Fatalf("mulBps(%d, %d) = %d, want %d", tc.amount, tc.bps, got, tc.want)
		}
	}

	if _, err := mulBps(math.MaxUint64, BasisPointsDivisor+1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount on overflow, got %v", err)
	}
}

func TestCheckedAdd(t *testing.T) {
	if sum, err := checkedAdd(1, 2); err != nil || sum != 3 {
		t.Fatalf("checkedAdd(1, 2) = %d, %v", sum, err)
	}
	if _, err := checkedAdd(math.MaxUint64, 1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount on overflow, got %v", err)
	}
}

func TestRepaymentForPrincipal(t *testing.T) {
	repayment, err := repaymentForPrincipal(1_000_000, 1000)
	if err != nil {
		t.Fatalf("repaymentForPrincipal: %v", err)
	}
	if repayment != 1_100_000 {
		t.Fatalf("repayment = %d, want 1100000", repayment)
	}

	if _, err := repaymentForPrincipal(math.MaxUint64, 1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
