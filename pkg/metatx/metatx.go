// Package metatx models the EIP-712 meta transaction a payer signs to
// authorize a gasless token transfer, and recovers the signer from it.
package metatx

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// PrimaryType is the EIP-712 struct name the relay contract verifies.
const PrimaryType = "ERC20MetaTransaction"

// Domain identifies the relay contract the authorization is bound to.
type Domain struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	ChainID           int64  `json:"chainId"`
	VerifyingContract string `json:"verifyingContract"`
}

// Message is the authorization payload. Amount, Nonce and Expiry are decimal
// strings so arbitrarily large uint256 values survive JSON.
type Message struct {
	From          string `json:"from"`
	To            string `json:"to"`
	TokenContract string `json:"tokenContract"`
	Amount        string `json:"amount"`
	Nonce         string `json:"nonce"`
	Expiry        string `json:"expiry"`
}

// MetaTx is a signed transfer authorization as received from the client.
type MetaTx struct {
	Domain    Domain  `json:"domain"`
	Message   Message `json:"message"`
	Signature string  `json:"signature"`
	// ClaimedAddr is the address the client claims signed the message. The
	// recovered signer must match it exactly.
	ClaimedAddr string `json:"claimedAddr"`
}

// AmountInt parses the authorized token amount.
func (m *MetaTx) AmountInt() (*big.Int, error) {
	return parseUint256(m.Message.Amount, "amount")
}

// NonceInt parses the authorization nonce.
func (m *MetaTx) NonceInt() (*big.Int, error) {
	return parseUint256(m.Message.Nonce, "nonce")
}

// ExpiryInt parses the authorization expiry.
func (m *MetaTx) ExpiryInt() (*big.Int, error) {
	return parseUint256(m.Message.Expiry, "expiry")
}

func parseUint256(s, field string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s %q", field, s)
	}
	return v, nil
}

// typedData assembles the canonical EIP-712 structure for hashing.
func (m *MetaTx) typedData() apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			PrimaryType: {
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "tokenContract", Type: "address"},
				{Name: "amount", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "expiry", Type: "uint256"},
			},
		},
		PrimaryType: PrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              m.Domain.Name,
			Version:           m.Domain.Version,
			ChainId:           math.NewHexOrDecimal256(m.Domain.ChainID),
			VerifyingContract: m.Domain.VerifyingContract,
		},
		Message: apitypes.TypedDataMessage{
			"from":          m.Message.From,
			"to":            m.Message.To,
			"tokenContract": m.Message.TokenContract,
			"amount":        m.Message.Amount,
			"nonce":         m.Message.Nonce,
			"expiry":        m.Message.Expiry,
		},
	}
}

// Digest returns the EIP-712 hash the payer signed.
func (m *MetaTx) Digest() ([]byte, error) {
	td := m.typedData()
	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}
	return hash, nil
}

// RecoverSigner recovers the address that produced the signature over the
// typed-data digest. Both 0/1 and 27/28 recovery ids are accepted.
func (m *MetaTx) RecoverSigner() (common.Address, error) {
	digest, err := m.Digest()
	if err != nil {
		return common.Address{}, err
	}

	sig, err := hexutil.Decode(m.Signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length %d, expected 65", len(sig))
	}

	// Normalize the recovery id to what SigToPub expects.
	if sig[64] >= 27 {
		sig = append([]byte{}, sig...)
		sig[64] -= 27
	}

	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
