package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScanIterations counts scanner loop iterations per token
	ScanIterations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_scan_iterations_total",
			Help: "Total number of block scan iterations",
		},
		[]string{"token"},
	)

	// ScanErrors counts failed scan iterations per token
	ScanErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_scan_errors_total",
			Help: "Total number of failed block scan iterations",
		},
		[]string{"token"},
	)

	// TransferEventsSeen counts transfer events observed in scan windows
	TransferEventsSeen = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_transfer_events_total",
			Help: "Total number of transfer events observed",
		},
		[]string{"token"},
	)

	// EventsMatched counts transfer events matched to a pending payment request
	EventsMatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_events_matched_total",
			Help: "Total number of transfer events matched to a payment request",
		},
		[]string{"token"},
	)

	// PayoutsCreated counts fiat payouts created with the banking provider
	PayoutsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_payouts_created_total",
			Help: "Total number of fiat payouts created",
		},
	)

	// PaymentRequestsStuck counts confirmed requests whose payout creation failed.
	// These rows stay in confirmed and need operator attention.
	PaymentRequestsStuck = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_requests_stuck_total",
			Help: "Total number of payment requests left confirmed after a payout failure",
		},
	)

	// LastScannedBlock reports the checkpointed block per token
	LastScannedBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "payments_last_scanned_block",
			Help: "Last fully scanned block number",
		},
		[]string{"token"},
	)

	// WebhookCallbacks counts provider webhook deliveries by outcome
	WebhookCallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_webhook_callbacks_total",
			Help: "Total number of provider webhook callbacks",
		},
		[]string{"outcome"},
	)
)
