// Package fees implements the deterministic quote arithmetic. All math is
// integer-only so the same inputs always produce the same token amount.
package fees

import "math/big"

var wei = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// AmountDue returns the total fiat charge in minor units:
// the brcode amount plus the flat base fee plus the proportional fee,
// floor(amount*feeBps/10000).
func AmountDue(amountCents, baseFeeCents, feeBps int64) int64 {
	proportional := amountCents * feeBps / 10000
	return amountCents + baseFeeCents + proportional
}

// RequiredTokenAmount converts the total fiat due into base token units at
// the given rate. Rate is fiat minor units per whole token scaled by 1e18;
// the result is floor(due * 1e18 / rate) in 18-decimal token units.
func RequiredTokenAmount(amountCents, baseFeeCents, feeBps int64, rate *big.Int) *big.Int {
	due := big.NewInt(AmountDue(amountCents, baseFeeCents, feeBps))
	due.Mul(due, wei)
	return due.Div(due, rate)
}
