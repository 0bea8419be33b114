package rates

import (
	"math/big"
	"testing"

	"github.com/eccentricexit/cipay-backend/pkg/config"
)

func TestNewTable_NormalizesRates(t *testing.T) {
	table, err := NewTable([]config.TokenConfig{
		{Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Rate: "0.5", Decimals: 18, Symbol: "DAI"},
	})
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	tok, ok := table.Lookup("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	if !ok {
		t.Fatal("Expected token to be accepted")
	}

	expected, _ := new(big.Int).SetString("500000000000000000", 10)
	if tok.Rate.Cmp(expected) != 0 {
		t.Errorf("Expected rate 5e17, got %s", tok.Rate)
	}
	if tok.Symbol != "DAI" || tok.Decimals != 18 {
		t.Errorf("Unexpected token metadata: %+v", tok)
	}
}

func TestTable_LookupIsCaseInsensitive(t *testing.T) {
	table, err := NewTable([]config.TokenConfig{
		{Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Rate: "1", Decimals: 18, Symbol: "DAI"},
	})
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	if !table.Accepted("0x6b175474e89094c44da98b954eedeac495271d0f") {
		t.Error("Expected lowercased address to match")
	}
	if table.Accepted("0x0000000000000000000000000000000000000001") {
		t.Error("Expected unknown address to be rejected")
	}
}

func TestNewTable_RejectsBadRates(t *testing.T) {
	cases := []config.TokenConfig{
		{Address: "0x01", Rate: "not-a-number", Symbol: "X"},
		{Address: "0x01", Rate: "0", Symbol: "X"},
		{Address: "0x01", Rate: "-1", Symbol: "X"},
	}
	for _, tc := range cases {
		if _, err := NewTable([]config.TokenConfig{tc}); err == nil {
			t.Errorf("Expected error for rate %q", tc.Rate)
		}
	}
}

func TestNewTable_RejectsDuplicates(t *testing.T) {
	_, err := NewTable([]config.TokenConfig{
		{Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Rate: "1", Symbol: "DAI"},
		{Address: "0x6b175474e89094c44da98b954eedeac495271d0f", Rate: "2", Symbol: "DAI2"},
	})
	if err == nil {
		t.Error("Expected duplicate token to be rejected")
	}
}
