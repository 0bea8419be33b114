package fees

import (
	"math/big"
	"testing"
)

// rate of 0.5 fiat minor units per whole token, 18-decimal fixed point.
var halfCentRate, _ = new(big.Int).SetString("500000000000000000", 10)

func TestAmountDue(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		baseFee  int64
		feeBps   int64
		expected int64
	}{
		{"flat plus proportional", 10000, 100, 50, 10150},
		{"zero fees", 10000, 0, 0, 10000},
		{"proportional floors", 999, 0, 50, 999 + 4},
		{"base only", 1, 100, 0, 101},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AmountDue(tt.amount, tt.baseFee, tt.feeBps)
			if got != tt.expected {
				t.Errorf("AmountDue(%d, %d, %d) = %d, expected %d",
					tt.amount, tt.baseFee, tt.feeBps, got, tt.expected)
			}
		})
	}
}

func TestRequiredTokenAmount(t *testing.T) {
	// 10000 cents + 100 base + floor(10000*50/10000) = 10150 due;
	// 10150 * 1e18 / 5e17 = 20300 base token units.
	got := RequiredTokenAmount(10000, 100, 50, halfCentRate)
	if got.Cmp(big.NewInt(20300)) != 0 {
		t.Errorf("RequiredTokenAmount = %s, expected 20300", got)
	}
}

func TestRequiredTokenAmount_Deterministic(t *testing.T) {
	a := RequiredTokenAmount(12345, 100, 50, halfCentRate)
	b := RequiredTokenAmount(12345, 100, 50, halfCentRate)
	if a.Cmp(b) != 0 {
		t.Errorf("Same inputs produced %s and %s", a, b)
	}
}

func TestRequiredTokenAmount_Monotonic(t *testing.T) {
	prev := RequiredTokenAmount(1, 100, 50, halfCentRate)
	for amount := int64(2); amount <= 2000; amount++ {
		cur := RequiredTokenAmount(amount, 100, 50, halfCentRate)
		if cur.Cmp(prev) < 0 {
			t.Fatalf("Required amount decreased from %s to %s at amount %d", prev, cur, amount)
		}
		prev = cur
	}
}

func TestRequiredTokenAmount_WholeRate(t *testing.T) {
	// 1 fiat minor unit per whole token.
	rate := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	got := RequiredTokenAmount(10000, 0, 0, rate)
	if got.Cmp(big.NewInt(10000)) != 0 {
		t.Errorf("RequiredTokenAmount = %s, expected 10000", got)
	}
}
