// Package errors contains helper functions and types to work with errors
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Category defines error category
type Category int

const (
	// CategoryNoError is the zero value, kept for request tracking.
	CategoryNoError Category = iota
	// CategoryDataError The client sends some invalid data in the request,
	// for example, missing or incorrect content in the payload or parameters.
	// Could also represent a generic client error.
	CategoryDataError
	// CategoryUnauthorized The client is not authorized to access the requested resource
	CategoryUnauthorized
	// CategoryForbidden The client is not authenticated to access the requested resource
	CategoryForbidden
	// CategoryResourceNotFound The client is attempting to access a resource that does not exist
	CategoryResourceNotFound
	// CategoryDataConflict The client send some data that can create conflict with existing data
	CategoryDataConflict
	// CategoryDependencyFailure A dependent service is throwing errors
	CategoryDependencyFailure
	// CategoryGeneralError The service failed in an unexpected way
	CategoryGeneralError
	// CategoryRecovering The service is failing but is expected to recover
	CategoryRecovering
)

// Payment error codes. This is a closed set: every rejection the engine can
// surface to a client carries exactly one of these.
const (
	CodeBrcodeNotFound          = "brcode-not-found"
	CodeAmountTooSmallOrInvalid = "amount-too-small-or-invalid"
	CodeAmountTooLarge          = "amount-too-large"
	CodeOutOfFunds              = "out-of-funds"
	CodeInvalidPaymentStatus    = "invalid-payment-status"
	CodeAllowChangeForbidden    = "payment-is-changeable"
	CodeDuplicatePayment        = "duplicate-payment"
	CodeMultipleTransfers       = "multiple-transfers"
	CodeInvalidDestination      = "invalid-destination"
	CodeInvalidToken            = "invalid-token"
	CodeNotEnoughFunds          = "not-enough-funds"
	CodeInvalidNonce            = "invalid-nonce"
	CodeFailedSigValidation     = "failed-sig-validation"
)

// ServiceError represents service specific type that
// is used all over the services.
type ServiceError struct {
	Category Category
	Code     string
	Message  string
	Err      error
}

// Error method to comply with error interface
func (err *ServiceError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	return err.Message
}

// Unwrap returns the underlying error
func (err *ServiceError) Unwrap() error {
	return err.Err
}

// Is implements the custom condition to check an error is equal to a service error
func (err *ServiceError) Is(target error) bool {
	var other *ServiceError
	if errors.As(target, &other) {
		return err.Code == other.Code && err.Category == other.Category
	}
	return err.Message == target.Error()
}

// Is checks that provided error is a ServiceError with desired Category
func Is(err error, cat Category) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Category == cat {
		return true
	}
	return false
}

// CodeOf returns the payment error code carried by err, or "" when err is
// not a ServiceError.
func CodeOf(err error) string {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return ""
}

// IsInternalError checks that provided error is an internal system error
func IsInternalError(err error) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && (svcErr.Category < CategoryDependencyFailure) {
		return false
	}
	return true
}

// StatusCode returns the HTTP status code for the error category
func (err *ServiceError) StatusCode() int {
	switch err.Category {
	case CategoryDataError:
		return http.StatusBadRequest
	case CategoryUnauthorized:
		return http.StatusUnauthorized
	case CategoryForbidden:
		return http.StatusForbidden
	case CategoryResourceNotFound:
		return http.StatusNotFound
	case CategoryDataConflict:
		return http.StatusConflict
	case CategoryDependencyFailure:
		return http.StatusBadGateway
	case CategoryRecovering:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GeneralError returns a general service error
// this error message sent to the user is "Internal Server Error"
// the error passed is logged in the logger
func GeneralError(err error) error {
	if err == nil {
		err = errors.New("internal server error")
	}
	return &ServiceError{
		Category: CategoryGeneralError,
		Message:  "Internal Server Error",
		Err:      err,
	}
}

// BadRequestError returns an error with category DataError
// the error message provided is returned to the user
// the error object provided is logged in logger
func BadRequestError(err error, message string) error {
	if err == nil {
		err = errors.New("bad request:" + message)
	}
	return &ServiceError{
		Category: CategoryDataError,
		Message:  message,
		Err:      err,
	}
}

// BrcodeNotFound: the provider has no preview for the given brcode.
func BrcodeNotFound(brcode string) error {
	return &ServiceError{
		Category: CategoryResourceNotFound,
		Code:     CodeBrcodeNotFound,
		Message:  "Payment not found.",
		Err:      fmt.Errorf("no preview found for brcode %s", brcode),
	}
}

// AmountTooSmallOrInvalid: the brcode carries no amount or a non-positive one.
func AmountTooSmallOrInvalid(amount int64) error {
	return &ServiceError{
		Category: CategoryForbidden,
		Code:     CodeAmountTooSmallOrInvalid,
		Message:  "Payments without a specific amount or zero are not allowed.",
		Err:      fmt.Errorf("brcode amount %d is not payable", amount),
	}
}

// AmountTooLarge: the brcode amount exceeds the configured payout ceiling.
func AmountTooLarge(amount, limit int64) error {
	return &ServiceError{
		Category: CategoryForbidden,
		Code:     CodeAmountTooLarge,
		Message:  fmt.Sprintf("Only payments of up to %d BRL are allowed.", limit/100),
		Err:      fmt.Errorf("brcode amount %d exceeds limit %d", amount, limit),
	}
}

// InvalidPaymentStatus: the brcode is not active at the provider.
func InvalidPaymentStatus(status string) error {
	return &ServiceError{
		Category: CategoryForbidden,
		Code:     CodeInvalidPaymentStatus,
		Message:  "This payment is not active.",
		Err:      fmt.Errorf("brcode status is %q, expected active", status),
	}
}

// AllowChangeForbidden: changeable-amount brcodes are unsafe to pre-quote.
func AllowChangeForbidden() error {
	return &ServiceError{
		Category: CategoryForbidden,
		Code:     CodeAllowChangeForbidden,
		Message:  "Changeable payment amounts are not allowed.",
		Err:      errors.New("brcode allows amount changes"),
	}
}

// OutOfFunds: the operator's own float cannot cover the payout. This is a
// system-level condition, surfaced as temporarily unavailable.
func OutOfFunds(balance, amount int64) error {
	return &ServiceError{
		Category: CategoryRecovering,
		Code:     CodeOutOfFunds,
		Message:  "Not enough funds to process this payment.",
		Err:      fmt.Errorf("operator balance %d below brcode amount %d", balance, amount),
	}
}

// DuplicatePayment: a request for the same brcode or tx already exists.
func DuplicatePayment(err error) error {
	return &ServiceError{
		Category: CategoryDataConflict,
		Code:     CodeDuplicatePayment,
		Message:  "This payment already exists.",
		Err:      err,
	}
}

// InvalidToken: the token used to pay is not on the accepted list.
func InvalidToken(address string) error {
	return &ServiceError{
		Category: CategoryDataError,
		Code:     CodeInvalidToken,
		Message:  "The token used to pay the transaction is not accepted.",
		Err:      fmt.Errorf("token %s is not accepted", address),
	}
}

// InvalidDestination: the authorized transfer does not pay the custodial wallet.
func InvalidDestination(expected, received string) error {
	return &ServiceError{
		Category: CategoryDataError,
		Code:     CodeInvalidDestination,
		Message:  "The tokens used for this payment were sent to an unexpected address.",
		Err:      fmt.Errorf("transfer destination %s, expected wallet %s", received, expected),
	}
}

// NotEnoughFunds: the authorized token amount does not cover the quote.
func NotEnoughFunds(sent, required string) error {
	return &ServiceError{
		Category: CategoryDataError,
		Code:     CodeNotEnoughFunds,
		Message:  "The user did not send enough funds to cover the transaction.",
		Err:      fmt.Errorf("authorized amount %s below required %s", sent, required),
	}
}

// InvalidNonce: the authorization nonce is not the relay contract's successor.
func InvalidNonce(expected, received string) error {
	return &ServiceError{
		Category: CategoryDataError,
		Code:     CodeInvalidNonce,
		Message:  "The nonce provided does not match the required nonce in the meta tx relay contract.",
		Err:      fmt.Errorf("nonce %s, expected %s", received, expected),
	}
}

// FailedSigValidation: the signature does not recover to the claimed address.
func FailedSigValidation(err error) error {
	if err == nil {
		err = errors.New("recovered signer does not match claimed address")
	}
	return &ServiceError{
		Category: CategoryDataError,
		Code:     CodeFailedSigValidation,
		Message:  "Failed to validate the provided signature.",
		Err:      err,
	}
}

// MultipleTransfers: the settlement transaction does not look like a single
// plain transfer to the custodial wallet.
func MultipleTransfers(txHash string) error {
	return &ServiceError{
		Category: CategoryDataError,
		Code:     CodeMultipleTransfers,
		Message:  "The token transaction used for this payment does not look right.",
		Err:      fmt.Errorf("transaction %s emitted more than one relevant transfer", txHash),
	}
}
