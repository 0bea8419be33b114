package ethereum

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TransferEvent is one ERC20 Transfer into the custodial wallet.
type TransferEvent struct {
	Token       common.Address
	From        common.Address
	Amount      *big.Int
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
}

// MetaTxCallData mirrors the relay contract's callData tuple.
type MetaTxCallData struct {
	From      common.Address
	To        common.Address
	Signature []byte
}

// MetaTxCallParams mirrors the relay contract's callParams tuple.
type MetaTxCallParams struct {
	TokenContract common.Address
	Amount        *big.Int
	Nonce         *big.Int
	Expiry        *big.Int
}
