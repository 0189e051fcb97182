package customer

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"fiado-ledger/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MinPrice is the smallest purchase value the ledger accepts.
var MinPrice = decimal.RequireFromString("0.01")

func init() {
	// Amounts travel as JSON numbers in backups and events.
	decimal.MarshalJSONWithoutQuotes = true
}

var (
	// Accepts "12", "12,50" and "12.5": an integer part plus at most two
	// decimals behind a comma or dot separator.
	pricePattern = regexp.MustCompile(`^\d+([.,]\d{1,2})?$`)
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
)

type Customer struct {
	CustomerID   int64
	Name         string
	Notes        string
	PaidTotal    decimal.Decimal
	Purchases    []Purchase
	Payments     []PartialPayment
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

type Purchase struct {
	PurchaseID  string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Paid        decimal.Decimal `json:"pago"`
	PurchasedAt time.Time       `json:"purchasedAt"`
}

type PartialPayment struct {
	Amount decimal.Decimal `json:"amount"`
	PaidAt time.Time       `json:"paidAt"`
}

func NewCustomer(name string) *Customer {
	now := time.Now()
	return &Customer{
		Name:         strings.TrimSpace(name),
		PaidTotal:    decimal.Zero,
		Purchases:    []Purchase{},
		Payments:     []PartialPayment{},
		RegisteredAt: now,
		UpdatedAt:    now,
	}
}

// NewPurchase mints a line item with a fresh identifier. Purchases used to be
// identified by their creation timestamp, which collides under programmatic
// imports; every purchase now carries its own id.
func NewPurchase(name string, price decimal.Decimal) Purchase {
	return Purchase{
		PurchaseID:  uuid.NewString(),
		Name:        strings.TrimSpace(name),
		Price:       price,
		Paid:        decimal.Zero,
		PurchasedAt: time.Now(),
	}
}

// GrossTotal sums all purchase prices. Entries with a non-positive price are
// skipped rather than rejected; imported or legacy data may contain them.
func (c *Customer) GrossTotal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range c.Purchases {
		if p.Price.IsPositive() {
			total = total.Add(p.Price)
		}
	}
	return total
}

// PendingBalance is always recomputed, never stored.
func (c *Customer) PendingBalance() decimal.Decimal {
	return c.GrossTotal().Sub(c.PaidTotal)
}

func (c *Customer) HasDebt() bool {
	return len(c.Purchases) > 0
}

// ShouldCollapse reports whether the account must be reset to the settled
// state: the pending balance reached zero or below while there was still
// anything on the tab or any payment recorded.
func (c *Customer) ShouldCollapse() bool {
	if len(c.Purchases) == 0 && !c.PaidTotal.IsPositive() {
		return false
	}
	return !c.PendingBalance().IsPositive()
}

// Collapse resets the account to the settled state. A settled customer always
// has an empty purchase list and zero paid total, so "has debt" can be tested
// as len(Purchases) > 0 everywhere.
func (c *Customer) Collapse() {
	c.Purchases = []Purchase{}
	c.PaidTotal = decimal.Zero
	c.Payments = []PartialPayment{}
	c.UpdatedAt = time.Now()
}

func (c *Customer) AddPurchase(p Purchase) {
	c.Purchases = append(c.Purchases, p)
	c.UpdatedAt = time.Now()
}

// RemovePurchase drops exactly one purchase by id and reports whether it was
// present.
func (c *Customer) RemovePurchase(purchaseID string) bool {
	for i, p := range c.Purchases {
		if p.PurchaseID == purchaseID {
			c.Purchases = append(c.Purchases[:i], c.Purchases[i+1:]...)
			c.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

func (c *Customer) RecordPayment(amount decimal.Decimal, at time.Time) {
	c.PaidTotal = c.PaidTotal.Add(amount)
	c.Payments = append(c.Payments, PartialPayment{Amount: amount, PaidAt: at})
	c.UpdatedAt = at
}

// StripTags removes HTML tags and trims surrounding whitespace from
// user-supplied text.
func StripTags(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}

// ParsePrice validates and parses a user-typed price. Only the shapes the
// original form accepted pass: digits with an optional comma-or-dot fraction
// of at most two places, worth at least 0.01.
func ParsePrice(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if !pricePattern.MatchString(text) {
		return decimal.Zero, apperrors.NewValidationError("price", "invalid format (use: 12 or 12,50)")
	}

	price, err := decimal.NewFromString(strings.Replace(text, ",", ".", 1))
	if err != nil {
		return decimal.Zero, apperrors.NewValidationError("price", "invalid format (use: 12 or 12,50)")
	}
	if price.LessThan(MinPrice) {
		return decimal.Zero, apperrors.NewValidationError("price", "minimum value is 0.01")
	}
	return price, nil
}

// ParseAmount parses a user-typed payment amount, accepting comma or dot as
// the decimal separator. Non-numeric and non-positive values are rejected.
func ParseAmount(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	amount, err := decimal.NewFromString(strings.Replace(text, ",", ".", 1))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: enter a valid amount", apperrors.ErrInvalidPaymentAmount)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive", apperrors.ErrInvalidPaymentAmount)
	}
	return amount, nil
}
