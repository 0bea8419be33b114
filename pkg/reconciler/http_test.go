package reconciler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/eccentricexit/cipay-backend/pkg/payment"
)

func newWebhookServer(store payment.Store) *httptest.Server {
	r := chi.NewRouter()
	RegisterRoutes(r, NewReconciler(store, zap.NewNop()), zap.NewNop())
	return httptest.NewServer(r)
}

func postWebhook(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/starkbank-webhook", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestWebhook_AcknowledgesUnknownPayment(t *testing.T) {
	srv := newWebhookServer(&MockStore{})
	defer srv.Close()

	resp := postWebhook(t, srv, `{"event":{"id":"evt-1","subtype":"","log":{"type":"updated","payment":{"id":"pay-unknown","status":"success"}}}}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 for an unknown payment, got %d", resp.StatusCode)
	}
}

func TestWebhook_AppliesSuccess(t *testing.T) {
	var marked bool
	store := &MockStore{
		GetByProviderPaymentIDFunc: func(ctx context.Context, id string) (*payment.Request, error) {
			return processingRequest(), nil
		},
		MarkSuccessFunc: func(ctx context.Context, brcode, providerStatus string) error {
			marked = true
			return nil
		},
	}
	srv := newWebhookServer(store)
	defer srv.Close()

	resp := postWebhook(t, srv, `{"event":{"id":"evt-2","log":{"type":"updated","payment":{"id":"pay-42","status":"success"}}}}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if !marked {
		t.Error("Expected the payout to be marked successful")
	}
}

func TestWebhook_RejectsMissingPaymentID(t *testing.T) {
	srv := newWebhookServer(&MockStore{})
	defer srv.Close()

	resp := postWebhook(t, srv, `{"event":{"id":"evt-3","log":{"type":"updated","payment":{}}}}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for a payload without a payment id, got %d", resp.StatusCode)
	}
}

func TestWebhook_RejectsMalformedJSON(t *testing.T) {
	srv := newWebhookServer(&MockStore{})
	defer srv.Close()

	resp := postWebhook(t, srv, `{not json`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed JSON, got %d", resp.StatusCode)
	}
}

func TestWebhook_StoreFailureTriggersRedelivery(t *testing.T) {
	store := &MockStore{
		GetByProviderPaymentIDFunc: func(ctx context.Context, id string) (*payment.Request, error) {
			return nil, context.DeadlineExceeded
		},
	}
	srv := newWebhookServer(store)
	defer srv.Close()

	resp := postWebhook(t, srv, `{"event":{"id":"evt-4","log":{"type":"updated","payment":{"id":"pay-42","status":"success"}}}}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected 500 on store failure, got %d", resp.StatusCode)
	}
}
