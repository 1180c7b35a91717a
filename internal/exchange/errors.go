package exchange

import "fmt"

// ExchangeError is the base error type every adapter error implements.
// Any unexpected implementation error that doesn't fit one of the named
// kinds below must still be wrapped in ExchangeError so callers only ever
// need to distinguish five kinds.
type ExchangeError struct {
	Message   string
	ErrorCode string
	Kind      ErrorKind
}

func (e *ExchangeError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.ErrorCode)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ErrorKind is the adapter error taxonomy callers must distinguish.
type ErrorKind string

const (
	ErrorKindRateLimit          ErrorKind = "RATE_LIMIT"
	ErrorKindInsufficientBalance ErrorKind = "INSUFFICIENT_BALANCE"
	ErrorKindInvalidOrder       ErrorKind = "INVALID_ORDER"
	ErrorKindOrderNotFound      ErrorKind = "ORDER_NOT_FOUND"
	ErrorKindGeneric            ErrorKind = "EXCHANGE_ERROR"
)

// NewRateLimitError constructs a RateLimit-kind error.
func NewRateLimitError(message string) *ExchangeError {
	return &ExchangeError{Message: message, Kind: ErrorKindRateLimit}
}

// NewInsufficientBalanceError constructs an InsufficientBalance-kind error.
func NewInsufficientBalanceError(message string) *ExchangeError {
	return &ExchangeError{Message: message, Kind: ErrorKindInsufficientBalance}
}

// NewInvalidOrderError constructs an InvalidOrder-kind error.
func NewInvalidOrderError(message string) *ExchangeError {
	return &ExchangeError{Message: message, Kind: ErrorKindInvalidOrder}
}

// NewOrderNotFoundError constructs an OrderNotFound-kind error.
func NewOrderNotFoundError(message string) *ExchangeError {
	return &ExchangeError{Message: message, Kind: ErrorKindOrderNotFound}
}

// NewExchangeError constructs a generic ExchangeError, the catch-all every
// unrecognized adapter failure must be wrapped in.
func NewExchangeError(message, code string) *ExchangeError {
	return &ExchangeError{Message: message, ErrorCode: code, Kind: ErrorKindGeneric}
}

// IsRetriable reports whether err should be retried by the placement
// handler: rate limits always retry; generic exchange errors retry unless
// classified otherwise by the caller; insufficient balance, invalid
// order, and not-found never retry.
func IsRetriable(err error) bool {
	ee, ok := err.(*ExchangeError)
	if !ok {
		return false
	}
	switch ee.Kind {
	case ErrorKindRateLimit, ErrorKindGeneric:
		return true
	default:
		return false
	}
}
