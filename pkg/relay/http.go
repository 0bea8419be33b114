package relay

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/eccentricexit/cipay-backend/pkg/app/errors"
	apphttp "github.com/eccentricexit/cipay-backend/pkg/app/http"
	"github.com/eccentricexit/cipay-backend/pkg/metatx"
	"github.com/eccentricexit/cipay-backend/pkg/payment"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service *Service
	logger  *zap.Logger
}

// RegisterRoutes registers the payment endpoints on the given chi router
func RegisterRoutes(r chi.Router, service *Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Get("/amount-required", apphttp.HandleError(h.amountRequired))
	r.Get("/brcode-payable", apphttp.HandleError(h.brcodePayable))
	r.Post("/request-payment", apphttp.HandleError(h.requestPayment))
	r.Get("/payment-status", apphttp.HandleError(h.paymentStatus))
}

// requestPaymentBody is the POST /request-payment payload: the brcode plus
// the signed EIP-712 authorization as the wallet produced it.
type requestPaymentBody struct {
	Code string              `json:"code"`
	Web3 signedAuthorization `json:"web3"`
}

type signedAuthorization struct {
	Signature   string    `json:"signature"`
	ClaimedAddr string    `json:"claimedAddr"`
	TypedData   typedData `json:"typedData"`
}

type typedData struct {
	Domain  metatx.Domain  `json:"domain"`
	Message metatx.Message `json:"message"`
}

// paymentResponse is the client view of a payment request.
type paymentResponse struct {
	Brcode            string `json:"brcode"`
	PayerAddress      string `json:"payerAddr"`
	Coin              string `json:"coin"`
	Rate              string `json:"rate"`
	TxHash            string `json:"txHash,omitempty"`
	FiatAmount        int64  `json:"amount"`
	ProviderPaymentID string `json:"starkbankPaymentId,omitempty"`
	ProviderStatus    string `json:"starkbankStatus,omitempty"`
	Status            string `json:"status"`
}

func toPaymentResponse(req *payment.Request) *paymentResponse {
	return &paymentResponse{
		Brcode:            req.Brcode,
		PayerAddress:      req.PayerAddress,
		Coin:              req.Coin,
		Rate:              req.Rate,
		TxHash:            req.TxHash,
		FiatAmount:        req.FiatAmount,
		ProviderPaymentID: req.ProviderPaymentID,
		ProviderStatus:    req.ProviderStatus,
		Status:            req.Status.String(),
	}
}

func (h *HTTP) requestPayment(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}

	var req requestPaymentBody
	if err := json.Unmarshal(body, &req); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	if req.Code == "" {
		return apperrors.BadRequestError(nil, "code is required")
	}
	if req.Web3.Signature == "" || req.Web3.ClaimedAddr == "" {
		return apperrors.BadRequestError(nil, "signed meta transaction is required")
	}

	mtx := &metatx.MetaTx{
		Domain:      req.Web3.TypedData.Domain,
		Message:     req.Web3.TypedData.Message,
		Signature:   req.Web3.Signature,
		ClaimedAddr: req.Web3.ClaimedAddr,
	}
	created, err := h.service.RequestPayment(r.Context(), req.Code, mtx)
	if err != nil {
		return err
	}

	return apphttp.WriteJSON(w, http.StatusOK, toPaymentResponse(created))
}

func (h *HTTP) amountRequired(w http.ResponseWriter, r *http.Request) error {
	brcode := r.URL.Query().Get("code")
	tokenAddr := r.URL.Query().Get("tokenAddress")
	if brcode == "" || tokenAddr == "" {
		return apperrors.BadRequestError(nil, "code and tokenAddress are required")
	}

	result, err := h.service.AmountRequired(r.Context(), brcode, tokenAddr)
	if err != nil {
		return err
	}

	return apphttp.WriteJSON(w, http.StatusOK, map[string]any{
		"brcode":              result.Quote.Brcode,
		"amount":              result.Quote.Amount,
		"tokenAmountRequired": result.TokenAmount.String(),
		"tokenDecimals":       result.TokenDecimals,
		"tokenSymbol":         result.TokenSymbol,
	})
}

func (h *HTTP) brcodePayable(w http.ResponseWriter, r *http.Request) error {
	brcode := r.URL.Query().Get("code")
	if brcode == "" {
		return apperrors.BadRequestError(nil, "code is required")
	}

	if err := h.service.BrcodePayable(r.Context(), brcode); err != nil {
		return err
	}

	return apphttp.WriteJSON(w, http.StatusOK, map[string]bool{"payable": true})
}

func (h *HTTP) paymentStatus(w http.ResponseWriter, r *http.Request) error {
	brcode := r.URL.Query().Get("id")
	if brcode == "" {
		return apperrors.BadRequestError(nil, "id is required")
	}

	req, err := h.service.PaymentStatus(r.Context(), brcode)
	if err != nil {
		return err
	}
	if req == nil {
		// A brcode that was never requested is not an error to the poller.
		return apphttp.WriteJSON(w, http.StatusOK, nil)
	}

	return apphttp.WriteJSON(w, http.StatusOK, toPaymentResponse(req))
}
