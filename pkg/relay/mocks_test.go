package relay

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/eccentricexit/cipay-backend/pkg/ethereum"
	"github.com/eccentricexit/cipay-backend/pkg/payment"
	"github.com/eccentricexit/cipay-backend/pkg/quote"
)

// MockChainClient is a mock implementation of ChainClient
type MockChainClient struct {
	WalletAddr                 common.Address
	NonceFunc                  func(ctx context.Context, user common.Address) (*big.Int, error)
	ExecuteMetaTransactionFunc func(ctx context.Context, callData ethereum.MetaTxCallData, callParams ethereum.MetaTxCallParams) (*types.Transaction, error)
	WaitMinedFunc              func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

func (m *MockChainClient) Wallet() common.Address {
	return m.WalletAddr
}

func (m *MockChainClient) Nonce(ctx context.Context, user common.Address) (*big.Int, error) {
	if m.NonceFunc != nil {
		return m.NonceFunc(ctx, user)
	}
	return big.NewInt(0), nil
}

func (m *MockChainClient) ExecuteMetaTransaction(ctx context.Context, callData ethereum.MetaTxCallData, callParams ethereum.MetaTxCallParams) (*types.Transaction, error) {
	if m.ExecuteMetaTransactionFunc != nil {
		return m.ExecuteMetaTransactionFunc(ctx, callData, callParams)
	}
	return types.NewTx(&types.LegacyTx{Nonce: 1}), nil
}

func (m *MockChainClient) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if m.WaitMinedFunc != nil {
		return m.WaitMinedFunc(ctx, tx)
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

// MockQuoteResolver is a mock implementation of QuoteResolver
type MockQuoteResolver struct {
	ResolveFunc func(ctx context.Context, brcode string) (*quote.Quote, error)
}

func (m *MockQuoteResolver) Resolve(ctx context.Context, brcode string) (*quote.Quote, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, brcode)
	}
	return &quote.Quote{Brcode: brcode, Amount: 10000, ReceiverTax: "012.345.678-90"}, nil
}

// MockStore is a mock implementation of payment.Store
type MockStore struct {
	CreateFunc                 func(ctx context.Context, req *payment.Request) error
	GetByBrcodeFunc            func(ctx context.Context, brcode string) (*payment.Request, error)
	GetByTxHashFunc            func(ctx context.Context, txHash string) (*payment.Request, error)
	GetByProviderPaymentIDFunc func(ctx context.Context, id string) (*payment.Request, error)
	MarkSubmittedFunc          func(ctx context.Context, brcode, txHash string) error
	TransitionFunc             func(ctx context.Context, brcode string, from, to payment.Status) (bool, error)
	MarkProcessingFunc         func(ctx context.Context, brcode, providerPaymentID, providerStatus string) error
	MarkSuccessFunc            func(ctx context.Context, brcode, providerStatus string) error
	UpdateProviderStatusFunc   func(ctx context.Context, brcode, providerStatus string) error
}

func (m *MockStore) Create(ctx context.Context, req *payment.Request) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}
	return nil
}

func (m *MockStore) GetByBrcode(ctx context.Context, brcode string) (*payment.Request, error) {
	if m.GetByBrcodeFunc != nil {
		return m.GetByBrcodeFunc(ctx, brcode)
	}
	return nil, payment.ErrNotFound
}

func (m *MockStore) GetByTxHash(ctx context.Context, txHash string) (*payment.Request, error) {
	if m.GetByTxHashFunc != nil {
		return m.GetByTxHashFunc(ctx, txHash)
	}
	return nil, payment.ErrNotFound
}

func (m *MockStore) GetByProviderPaymentID(ctx context.Context, id string) (*payment.Request, error) {
	if m.GetByProviderPaymentIDFunc != nil {
		return m.GetByProviderPaymentIDFunc(ctx, id)
	}
	return nil, payment.ErrNotFound
}

func (m *MockStore) MarkSubmitted(ctx context.Context, brcode, txHash string) error {
	if m.MarkSubmittedFunc != nil {
		return m.MarkSubmittedFunc(ctx, brcode, txHash)
	}
	return nil
}

func (m *MockStore) Transition(ctx context.Context, brcode string, from, to payment.Status) (bool, error) {
	if m.TransitionFunc != nil {
		return m.TransitionFunc(ctx, brcode, from, to)
	}
	return true, nil
}

func (m *MockStore) MarkProcessing(ctx context.Context, brcode, providerPaymentID, providerStatus string) error {
	if m.MarkProcessingFunc != nil {
		return m.MarkProcessingFunc(ctx, brcode, providerPaymentID, providerStatus)
	}
	return nil
}

func (m *MockStore) MarkSuccess(ctx context.Context, brcode, providerStatus string) error {
	if m.MarkSuccessFunc != nil {
		return m.MarkSuccessFunc(ctx, brcode, providerStatus)
	}
	return nil
}

func (m *MockStore) UpdateProviderStatus(ctx context.Context, brcode, providerStatus string) error {
	if m.UpdateProviderStatusFunc != nil {
		return m.UpdateProviderStatusFunc(ctx, brcode, providerStatus)
	}
	return nil
}
