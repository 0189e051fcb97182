package ledger

import (
	"errors"
	"fmt"

	"fiado-ledger/internal/domain/customer"
	"fiado-ledger/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

var ErrPurchaseNotFound = errors.New("purchase not found")

// ExceedsPendingError carries the maximum payable amount so callers can show
// it next to the rejected input.
type ExceedsPendingError struct {
	Max decimal.Decimal
}

func (e *ExceedsPendingError) Error() string {
	return fmt.Sprintf("payment amount cannot exceed the pending balance of %s", e.Max.StringFixed(2))
}

func (e *ExceedsPendingError) Unwrap() error {
	return apperrors.ErrInvalidPaymentAmount
}

type Totals struct {
	Gross   decimal.Decimal
	Paid    decimal.Decimal
	Pending decimal.Decimal
}

type PaymentResult struct {
	Settled       bool
	AmountApplied decimal.Decimal
}

type LiquidationResult struct {
	ItemCount int
}

type RemovalResult struct {
	AutoSettled bool
}

// ComputeTotals derives a customer's gross, paid and pending amounts. It is a
/// pure function over the record: the pending balance is never stored, only
// recomputed. Malformed purchase entries are skipped, not rejected.
func ComputeTotals(cust *customer.Customer) Totals {
	if cust == nil {
		return Totals{Gross: decimal.Zero, Paid: decimal.Zero, Pending: decimal.Zero}
	}

	gross := cust.GrossTotal()
	paid := cust.PaidTotal
	if paid.IsNegative() {
		paid = decimal.Zero
	}
	return Totals{
		Gross:   gross,
		Paid:    paid,
		Pending: gross.Sub(paid),
	}
}
