// Package rates holds the token allow-list and the fixed exchange rates the
// engine quotes against.
package rates

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eccentricexit/cipay-backend/pkg/config"
)

// Token is one accepted payment token with its rate normalized to an
// 18-decimal fixed point integer: fiat minor units per whole token, times 1e18.
type Token struct {
	Address  string
	Rate     *big.Int
	Decimals int32
	Symbol   string
}

// Table maps accepted token addresses to their quoting parameters. The table
// is immutable after construction; concurrent readers need no locking.
type Table struct {
	tokens map[string]Token
}

// NewTable normalizes the configured token list. Rates are parsed as decimal
// strings and shifted to 18 decimals, so "0.5" becomes 5e17.
func NewTable(cfgs []config.TokenConfig) (*Table, error) {
	tokens := make(map[string]Token, len(cfgs))
	for _, tc := range cfgs {
		rate, err := decimal.NewFromString(tc.Rate)
		if err != nil {
			return nil, fmt.Errorf("invalid rate %q for token %s: %w", tc.Rate, tc.Address, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("rate for token %s must be positive, got %s", tc.Address, tc.Rate)
		}
		key := strings.ToLower(tc.Address)
		if _, ok := tokens[key]; ok {
			return nil, fmt.Errorf("token %s configured twice", tc.Address)
		}
		tokens[key] = Token{
			Address:  tc.Address,
			Rate:     rate.Shift(18).BigInt(),
			Decimals: tc.Decimals,
			Symbol:   tc.Symbol,
		}
	}
	return &Table{tokens: tokens}, nil
}

// Lookup returns the token entry for addr. The second return is false when
// the token is not on the accepted list. Lookup is case-insensitive.
func (t *Table) Lookup(addr string) (Token, bool) {
	tok, ok := t.tokens[strings.ToLower(addr)]
	return tok, ok
}

// Accepted reports whether addr is on the allow-list.
func (t *Table) Accepted(addr string) bool {
	_, ok := t.Lookup(addr)
	return ok
}

// Addresses returns the accepted token addresses in configuration casing.
func (t *Table) Addresses() []string {
	out := make([]string, 0, len(t.tokens))
	for _, tok := range t.tokens {
		out = append(out, tok.Address)
	}
	return out
}
