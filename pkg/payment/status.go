package payment

import "fmt"

// Status represents the lifecycle state of a payment request.
type Status string

const (
	// StatusCreated means the request was accepted and awaits token tx submission.
	StatusCreated Status = "created"
	// StatusSubmitted means the token transfer tx was submitted, awaiting confirmation.
	StatusSubmitted Status = "submitted"
	// StatusConfirmed means the transfer was observed on-chain.
	StatusConfirmed Status = "confirmed"
	// StatusProcessing means the fiat payout was created and awaits settlement.
	StatusProcessing Status = "processing"
	// StatusSuccess is terminal: the fiat payout settled.
	StatusSuccess Status = "success"
	// StatusRejected is terminal: the payment failed and warrants no refund.
	StatusRejected Status = "rejected"
	// StatusFailed is terminal: the payment failed and is pending a refund.
	StatusFailed Status = "failed"
	// StatusRefunded is terminal: the payer was refunded.
	StatusRefunded Status = "refunded"
)

// ParseStatus validates a stored status string. Unknown values are rejected
// at the persistence boundary instead of being coerced.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusCreated, StatusSubmitted, StatusConfirmed, StatusProcessing,
		StatusSuccess, StatusRejected, StatusFailed, StatusRefunded:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown payment request status %q", s)
}

// Terminal reports whether no further transitions are expected from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusRejected, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }
