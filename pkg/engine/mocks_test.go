package engine

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eccentricexit/cipay-backend/pkg/ethereum"
	"github.com/eccentricexit/cipay-backend/pkg/payment"
	"github.com/eccentricexit/cipay-backend/pkg/starkbank"
)

// MockChainReader is a mock implementation of ChainReader
type MockChainReader struct {
	BlockNumberFunc     func(ctx context.Context) (uint64, error)
	FilterTransfersFunc func(ctx context.Context, token common.Address, fromBlock, toBlock uint64) ([]ethereum.TransferEvent, error)
}

func (m *MockChainReader) BlockNumber(ctx context.Context) (uint64, error) {
	if m.BlockNumberFunc != nil {
		return m.BlockNumberFunc(ctx)
	}
	return 0, nil
}

func (m *MockChainReader) FilterTransfers(ctx context.Context, token common.Address, fromBlock, toBlock uint64) ([]ethereum.TransferEvent, error) {
	if m.FilterTransfersFunc != nil {
		return m.FilterTransfersFunc(ctx, token, fromBlock, toBlock)
	}
	return nil, nil
}

// MockHandler is a mock implementation of EventHandler
type MockHandler struct {
	HandleTransferFunc func(ctx context.Context, ev ethereum.TransferEvent) error
}

func (m *MockHandler) HandleTransfer(ctx context.Context, ev ethereum.TransferEvent) error {
	if m.HandleTransferFunc != nil {
		return m.HandleTransferFunc(ctx, ev)
	}
	return nil
}

// MockCheckpointStore is an in-memory implementation of payment.CheckpointStore
type MockCheckpointStore struct {
	mu     sync.Mutex
	saved  map[string]uint64
	LoadFn func(id string) error
	SaveFn func(id string, lastBlock uint64) error
}

func NewMockCheckpointStore() *MockCheckpointStore {
	return &MockCheckpointStore{saved: make(map[string]uint64)}
}

func (m *MockCheckpointStore) Checkpoint(_ context.Context, id string) (*payment.Checkpoint, error) {
	if m.LoadFn != nil {
		if err := m.LoadFn(id); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	lb, ok := m.saved[id]
	if !ok {
		return nil, nil
	}
	return &payment.Checkpoint{ID: id, LastBlock: lb}, nil
}

func (m *MockCheckpointStore) SaveCheckpoint(_ context.Context, id string, lastBlock uint64) error {
	if m.SaveFn != nil {
		if err := m.SaveFn(id, lastBlock); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.saved[id]; !ok || lastBlock > existing {
		m.saved[id] = lastBlock
	}
	return nil
}

func (m *MockCheckpointStore) Last(id string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[id]
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

// MockPayoutProvider is a mock implementation of PayoutProvider
type MockPayoutProvider struct {
	CreateBrcodePaymentFunc func(ctx context.Context, p starkbank.BrcodePayment) (*starkbank.BrcodePayment, error)
}

func (m *MockPayoutProvider) CreateBrcodePayment(ctx context.Context, p starkbank.BrcodePayment) (*starkbank.BrcodePayment, error) {
	if m.CreateBrcodePaymentFunc != nil {
		return m.CreateBrcodePaymentFunc(ctx, p)
	}
	return &p, nil
}
