package interfaces

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/models"
	"github.com/ZanzyTHEbar/fireflyiii-go/domain/timerange"
)

// ErrorType represents different types of client errors
type ErrorType string

const (
	ErrorTypeNetwork  ErrorType = "network"
	ErrorTypeTimeout  ErrorType = "timeout"
	ErrorTypeAuth     ErrorType = "auth"
	ErrorTypeInvalid  ErrorType = "invalid"
	ErrorTypeServer   ErrorType = "server"
	ErrorTypeNotFound ErrorType = "not_found"
)

// ClientError represents an error from a client
type ClientError struct {
	Type    ErrorType
	Status  int
	Message string
	Err     error
}

func (e *ClientError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// NewClientError creates a new client error
func NewClientError(errorType ErrorType, message string, err error) error {
	return &ClientError{
		Type:    errorType,
		Message: message,
		Err:     err,
	}
}

// ErrorTypeOf returns the ErrorType of the first ClientError in err's chain.
func ErrorTypeOf(err error) (ErrorType, bool) {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Type, true
	}
	return "", false
}

// AccountQuery narrows an accounts fetch
type AccountQuery struct {
	Types []string
	IDs   []string
	// TransactionLimit attaches up to this many in-range transactions per account, 0 disables
	TransactionLimit int
}

// CategoryQuery narrows a categories fetch; empty Currency uses the server default
type CategoryQuery struct {
	IDs      []string
	Currency string
}

// CurrencyQuery narrows a currencies fetch
type CurrencyQuery struct {
	IDs         []string
	EnabledOnly bool
}

// TransactionQuery selects transactions by id, by account or range-wide
type TransactionQuery struct {
	IDs       []string
	AccountID string
	Limit     int
}

// FireflyAPI is the read-side of the remote server used by the coordinator.
// Fetch methods return filtered views; only authentication failures and
// cancellation are returned as errors.
type FireflyAPI interface {
	CheckConnection(ctx context.Context) error
	About(ctx context.Context) (*models.Aggregate, error)
	Preferences(ctx context.Context) (*models.Aggregate, error)
	FiscalYearStart(ctx context.Context) (string, error)
	Accounts(ctx context.Context, q AccountQuery) (*models.Aggregate, error)
	Categories(ctx context.Context, q CategoryQuery) (*models.Aggregate, error)
	Budgets(ctx context.Context, currency string) (*models.Aggregate, error)
	Bills(ctx context.Context) (*models.Aggregate, error)
	PiggyBanks(ctx context.Context) (*models.Aggregate, error)
	Currencies(ctx context.Context, q CurrencyQuery) (*models.Aggregate, error)
	Transactions(ctx context.Context, q TransactionQuery) (*models.Aggregate, error)
}

// ClientFactory builds a fresh client, scoped to one poll cycle, bound to rng.
// A nil rng yields an unbound client.
type ClientFactory func(rng *timerange.Range) FireflyAPI
