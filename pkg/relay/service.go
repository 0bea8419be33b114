// Package relay accepts signed meta transactions, validates them against the
// quote and the relay contract state, and submits them on-chain.
package relay

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	apperrors "github.com/eccentricexit/cipay-backend/pkg/app/errors"
	"github.com/eccentricexit/cipay-backend/pkg/config"
	"github.com/eccentricexit/cipay-backend/pkg/ethereum"
	"github.com/eccentricexit/cipay-backend/pkg/fees"
	"github.com/eccentricexit/cipay-backend/pkg/metatx"
	"github.com/eccentricexit/cipay-backend/pkg/payment"
	"github.com/eccentricexit/cipay-backend/pkg/quote"
	"github.com/eccentricexit/cipay-backend/pkg/rates"
)

// ChainClient defines the chain interactions the relay controller needs.
type ChainClient interface {
	Wallet() common.Address
	Nonce(ctx context.Context, user common.Address) (*big.Int, error)
	ExecuteMetaTransaction(ctx context.Context, callData ethereum.MetaTxCallData, callParams ethereum.MetaTxCallParams) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// QuoteResolver resolves a brcode into a payable quote.
type QuoteResolver interface {
	Resolve(ctx context.Context, brcode string) (*quote.Quote, error)
}

// Service implements the payment request flow.
type Service struct {
	chain    ChainClient
	quotes   QuoteResolver
	store    payment.Store
	table    *rates.Table
	payments config.PaymentsConfig
	logger   *zap.Logger
}

// NewService creates the relay controller.
func NewService(
	chain ChainClient,
	quotes QuoteResolver,
	store payment.Store,
	table *rates.Table,
	payments config.PaymentsConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		chain:    chain,
		quotes:   quotes,
		store:    store,
		table:    table,
		payments: payments,
		logger:   logger,
	}
}

// RequestPayment validates the signed authorization and, if everything
// checks out, persists the request and relays the token transfer. Checks run
// cheapest first; the relay nonce and the quote are fetched concurrently
// once the static checks pass.
func (s *Service) RequestPayment(ctx context.Context, brcode string, mtx *metatx.MetaTx) (*payment.Request, error) {
	token, ok := s.table.Lookup(mtx.Message.TokenContract)
	if !ok {
		return nil, apperrors.InvalidToken(mtx.Message.TokenContract)
	}

	signer, err := mtx.RecoverSigner()
	if err != nil {
		return nil, apperrors.FailedSigValidation(err)
	}
	if !strings.EqualFold(signer.Hex(), mtx.ClaimedAddr) {
		return nil, apperrors.FailedSigValidation(
			fmt.Errorf("recovered %s, claimed %s", signer.Hex(), mtx.ClaimedAddr))
	}

	dest := common.HexToAddress(mtx.Message.To)
	if dest != s.chain.Wallet() {
		return nil, apperrors.InvalidDestination(s.chain.Wallet().Hex(), dest.Hex())
	}

	amount, err := mtx.AmountInt()
	if err != nil {
		return nil, apperrors.BadRequestError(err, "Invalid meta transaction amount.")
	}
	nonce, err := mtx.NonceInt()
	if err != nil {
		return nil, apperrors.BadRequestError(err, "Invalid meta transaction nonce.")
	}
	expiry, err := mtx.ExpiryInt()
	if err != nil {
		return nil, apperrors.BadRequestError(err, "Invalid meta transaction expiry.")
	}

	currentNonce, q, quoteErr, err := s.fetchNonceAndQuote(ctx, brcode, signer)
	if err != nil {
		return nil, err
	}

	// A stale authorization is reported before any quote problem: the client
	// must re-sign either way.
	expected := new(big.Int).Add(currentNonce, big.NewInt(1))
	if nonce.Cmp(expected) != 0 {
		return nil, apperrors.InvalidNonce(expected.String(), nonce.String())
	}
	if quoteErr != nil {
		return nil, quoteErr
	}

	required := fees.RequiredTokenAmount(q.Amount, s.payments.BaseFeeCents, s.payments.FeeBps, token.Rate)
	if amount.Cmp(required) < 0 {
		return nil, apperrors.NotEnoughFunds(amount.String(), required.String())
	}

	req := &payment.Request{
		Brcode:        brcode,
		PayerAddress:  signer.Hex(),
		Coin:          token.Address,
		Rate:          token.Rate.String(),
		ReceiverTaxID: q.ReceiverTax,
		Description:   q.Description,
		FiatAmount:    q.Amount,
		Status:        payment.StatusCreated,
	}
	if err := s.store.Create(ctx, req); err != nil {
		if errors.Is(err, payment.ErrDuplicate) {
			return nil, apperrors.DuplicatePayment(err)
		}
		return nil, apperrors.GeneralError(err)
	}

	tx, err := s.chain.ExecuteMetaTransaction(ctx,
		ethereum.MetaTxCallData{
			From:      signer,
			To:        dest,
			Signature: sigBytes(mtx.Signature),
		},
		ethereum.MetaTxCallParams{
			TokenContract: common.HexToAddress(mtx.Message.TokenContract),
			Amount:        amount,
			Nonce:         nonce,
			Expiry:        expiry,
		},
	)
	if err != nil {
		// The request stays in created with no tx hash; the client may not
		// retry the same brcode, so this needs operator attention.
		s.logger.Error("Failed to relay meta transaction",
			zap.Error(err),
			zap.String("brcode", brcode))
		return nil, apperrors.GeneralError(err)
	}

	if err := s.store.MarkSubmitted(ctx, brcode, tx.Hash().Hex()); err != nil {
		return nil, apperrors.GeneralError(err)
	}
	req.TxHash = tx.Hash().Hex()
	req.Status = payment.StatusSubmitted

	// Confirmation is observed by the block scanner; this wait only logs
	// reverts early so they are visible before the scanner's next pass.
	go s.watchRelayTx(tx, brcode)

	return req, nil
}

// fetchNonceAndQuote runs the chain read and the provider round trip
// concurrently. The quote error comes back separately so the caller can
// check the nonce first.
func (s *Service) fetchNonceAndQuote(ctx context.Context, brcode string, signer common.Address) (*big.Int, *quote.Quote, error, error) {
	type nonceResult struct {
		nonce *big.Int
		err   error
	}
	type quoteResult struct {
		q   *quote.Quote
		err error
	}

	nonceCh := make(chan nonceResult, 1)
	quoteCh := make(chan quoteResult, 1)

	go func() {
		n, err := s.chain.Nonce(ctx, signer)
		nonceCh <- nonceResult{nonce: n, err: err}
	}()
	go func() {
		q, err := s.quotes.Resolve(ctx, brcode)
		quoteCh <- quoteResult{q: q, err: err}
	}()

	nr := <-nonceCh
	qr := <-quoteCh

	if nr.err != nil {
		return nil, nil, nil, apperrors.GeneralError(nr.err)
	}
	return nr.nonce, qr.q, qr.err, nil
}

func (s *Service) watchRelayTx(tx *types.Transaction, brcode string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if _, err := s.chain.WaitMined(ctx, tx); err != nil {
		s.logger.Error("Relayed meta transaction did not confirm",
			zap.Error(err),
			zap.String("brcode", brcode),
			zap.String("tx_hash", tx.Hash().Hex()))
		return
	}
	s.logger.Info("Relayed meta transaction mined",
		zap.String("brcode", brcode),
		zap.String("tx_hash", tx.Hash().Hex()))
}

// AmountRequiredResult is the full quote for a brcode paid with a token.
type AmountRequiredResult struct {
	Quote         *quote.Quote
	TokenAmount   *big.Int
	TokenDecimals int32
	TokenSymbol   string
}

// AmountRequired quotes how many base token units cover the brcode plus fees.
func (s *Service) AmountRequired(ctx context.Context, brcode, tokenAddr string) (*AmountRequiredResult, error) {
	token, ok := s.table.Lookup(tokenAddr)
	if !ok {
		return nil, apperrors.InvalidToken(tokenAddr)
	}

	q, err := s.quotes.Resolve(ctx, brcode)
	if err != nil {
		return nil, err
	}

	return &AmountRequiredResult{
		Quote:         q,
		TokenAmount:   fees.RequiredTokenAmount(q.Amount, s.payments.BaseFeeCents, s.payments.FeeBps, token.Rate),
		TokenDecimals: token.Decimals,
		TokenSymbol:   token.Symbol,
	}, nil
}

// BrcodePayable runs the payability gates without the token math.
func (s *Service) BrcodePayable(ctx context.Context, brcode string) error {
	_, err := s.quotes.Resolve(ctx, brcode)
	return err
}

// PaymentStatus returns the stored request for a brcode, or nil when the
// brcode was never requested.
func (s *Service) PaymentStatus(ctx context.Context, brcode string) (*payment.Request, error) {
	req, err := s.store.GetByBrcode(ctx, brcode)
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.GeneralError(err)
	}
	return req, nil
}

func sigBytes(sig string) []byte {
	raw := common.FromHex(sig)
	return raw
}
