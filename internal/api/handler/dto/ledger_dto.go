package dto

import (
	"fmt"
	"strings"

	"fiado-ledger/internal/domain/ledger"

	"github.com/shopspring/decimal"
)

// AddPurchaseRequest carries the price as typed text so the server applies
// the same format rules the original entry form did ("12", "12,50", "12.5").
type AddPurchaseRequest struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

func (r *AddPurchaseRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if strings.TrimSpace(r.Price) == "" {
		return fmt.Errorf("price cannot be empty")
	}
	return nil
}

type RegisterPaymentRequest struct {
	Amount string `json:"amount"`
}

func (r *RegisterPaymentRequest) Validate() error {
	if strings.TrimSpace(r.Amount) == "" {
		return fmt.Errorf("amount cannot be empty")
	}
	return nil
}

type TotalsResponse struct {
	Gross   decimal.Decimal `json:"gross"`
	Paid    decimal.Decimal `json:"paid"`
	Pending decimal.Decimal `json:"pending"`
}

func NewTotalsResponse(t ledger.Totals) TotalsResponse {
	return TotalsResponse{Gross: t.Gross, Paid: t.Paid, Pending: t.Pending}
}

type PaymentResponse struct {
	Settled       bool            `json:"settled"`
	AmountApplied decimal.Decimal `json:"amountApplied"`
}

func NewPaymentResponse(result ledger.PaymentResult) PaymentResponse {
	return PaymentResponse{Settled: result.Settled, AmountApplied: result.AmountApplied}
}

type LiquidationResponse struct {
	ItemCount int `json:"itemCount"`
}

type RemovalResponse struct {
	AutoSettled bool `json:"autoSettled"`
}
