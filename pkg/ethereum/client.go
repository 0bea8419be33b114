// Package ethereum wraps the chain RPC client and the meta transaction relay
// contract the engine submits through.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/eccentricexit/cipay-backend/pkg/config"
)

// relayProxyABI covers the two relay contract entry points the engine uses.
const relayProxyABI = `[
	{"inputs":[{"internalType":"address","name":"user","type":"address"}],"name":"nonce","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[
		{"components":[{"internalType":"address","name":"from","type":"address"},{"internalType":"address","name":"to","type":"address"},{"internalType":"bytes","name":"signature","type":"bytes"}],"internalType":"struct MetaTxRelay.CallData","name":"callData","type":"tuple"},
		{"components":[{"internalType":"address","name":"tokenContract","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"},{"internalType":"uint256","name":"nonce","type":"uint256"},{"internalType":"uint256","name":"expiry","type":"uint256"}],"internalType":"struct MetaTxRelay.CallParams","name":"callParams","type":"tuple"}
	],"name":"executeMetaTransaction","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// transferTopic is the ERC20 Transfer(address,address,uint256) event signature.
var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// Client represents an Ethereum client
type Client struct {
	config     *config.EthereumConfig
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	address    common.Address
	logger     *zap.Logger

	proxyAddress common.Address
	proxy        *bind.BoundContract
	wallet       common.Address
}

// NewClient creates a new Ethereum client
func NewClient(cfg *config.EthereumConfig, logger *zap.Logger) (*Client, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum RPC: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.RelayerPrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(relayProxyABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse relay proxy ABI: %w", err)
	}

	address := crypto.PubkeyToAddress(privateKey.PublicKey)
	proxyAddress := common.HexToAddress(cfg.MetaTxProxy)

	logger.Info("Connected to Ethereum",
		zap.Int64("chain_id", cfg.ChainID),
		zap.String("rpc_url", cfg.RPCURL),
		zap.String("meta_tx_proxy", proxyAddress.Hex()),
		zap.String("relayer_address", address.Hex()))

	return &Client{
		config:       cfg,
		client:       client,
		privateKey:   privateKey,
		address:      address,
		proxyAddress: proxyAddress,
		proxy:        bind.NewBoundContract(proxyAddress, parsed, client, client, client),
		wallet:       common.HexToAddress(cfg.Wallet),
		logger:       logger,
	}, nil
}

// Close closes the underlying RPC connection
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Wallet returns the custodial wallet address payments must be sent to.
func (c *Client) Wallet() common.Address {
	return c.wallet
}

// BlockNumber returns the current chain head.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	head, err := c.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return head, nil
}

// FilterTransfers returns the token's Transfer events into the custodial
// wallet within [fromBlock, toBlock], both bounds inclusive.
func (c *Client) FilterTransfers(ctx context.Context, token common.Address, fromBlock, toBlock uint64) ([]TransferEvent, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{token},
		Topics: [][]common.Hash{
			{transferTopic},
			nil,
			{common.BytesToHash(c.wallet.Bytes())},
		},
	}

	logs, err := c.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to filter transfer logs: %w", err)
	}

	events := make([]TransferEvent, 0, len(logs))
	for _, lg := range logs {
		if len(lg.Topics) < 3 || lg.Removed {
			continue
		}
		// The node already filtered on the token address; do not trust it.
		if lg.Address != token {
			c.logger.Warn("Dropping log from unexpected contract",
				zap.String("address", lg.Address.Hex()),
				zap.String("expected", token.Hex()),
				zap.String("tx_hash", lg.TxHash.Hex()))
			continue
		}
		events = append(events, TransferEvent{
			Token:       lg.Address,
			From:        common.BytesToAddress(lg.Topics[1].Bytes()),
			Amount:      new(big.Int).SetBytes(lg.Data),
			BlockNumber: lg.BlockNumber,
			TxHash:      lg.TxHash,
			LogIndex:    lg.Index,
		})
	}
	return events, nil
}

// Nonce returns the relay contract's current meta transaction nonce for user.
func (c *Client) Nonce(ctx context.Context, user common.Address) (*big.Int, error) {
	var out []interface{}
	err := c.proxy.Call(&bind.CallOpts{Context: ctx}, &out, "nonce", user)
	if err != nil {
		return nil, fmt.Errorf("failed to read relay nonce: %w", err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// ExecuteMetaTransaction submits the signed transfer authorization through
// the relay contract, paying gas with the relayer key.
func (c *Client) ExecuteMetaTransaction(ctx context.Context, callData MetaTxCallData, callParams MetaTxCallParams) (*types.Transaction, error) {
	auth, err := c.getTransactor(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := c.proxy.Transact(auth, "executeMetaTransaction", callData, callParams)
	if err != nil {
		return nil, fmt.Errorf("failed to submit meta transaction: %w", err)
	}

	c.logger.Info("Meta transaction submitted",
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.String("from", callData.From.Hex()),
		zap.String("token", callParams.TokenContract.Hex()),
		zap.String("amount", callParams.Amount.String()))

	return tx, nil
}

// WaitMined blocks until tx is mined and reports whether it succeeded.
func (c *Client) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.client, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for transaction %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}
	return receipt, nil
}

func (c *Client) getTransactor(ctx context.Context) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(c.privateKey, big.NewInt(c.config.ChainID))
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	nonce, err := c.client.PendingNonceAt(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	auth.Nonce = big.NewInt(int64(nonce))
	auth.Context = ctx

	return auth, nil
}
