package dto

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fiado-ledger/internal/domain/customer"

	"github.com/shopspring/decimal"
)

type CreateCustomerRequest struct {
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

func (r *CreateCustomerRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	return nil
}

type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

type PurchaseResponse struct {
	PurchaseID  string          `json:"purchaseId"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Paid        decimal.Decimal `json:"paid"`
	PurchasedAt time.Time       `json:"purchasedAt"`
}

func NewPurchaseResponse(p *customer.Purchase) PurchaseResponse {
	if p == nil {
		return PurchaseResponse{}
	}
	return PurchaseResponse{
		PurchaseID:  p.PurchaseID,
		Name:        p.Name,
		Price:       p.Price,
		Paid:        p.Paid,
		PurchasedAt: p.PurchasedAt,
	}
}

type PaymentEntryResponse struct {
	Amount decimal.Decimal `json:"amount"`
	PaidAt time.Time       `json:"paidAt"`
}

type CustomerResponse struct {
	CustomerID     string                 `json:"customerId"`
	Name           string                 `json:"name"`
	Notes          string                 `json:"notes,omitempty"`
	PaidTotal      decimal.Decimal        `json:"paidTotal"`
	PendingBalance decimal.Decimal        `json:"pendingBalance"`
	Purchases      []PurchaseResponse     `json:"purchases"`
	Payments       []PaymentEntryResponse `json:"payments"`
	RegisteredAt   time.Time              `json:"registeredAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

func NewCustomerResponse(cust *customer.Customer) CustomerResponse {
	if cust == nil {
		return CustomerResponse{}
	}

	purchases := make([]PurchaseResponse, len(cust.Purchases))
	for i := range cust.Purchases {
		purchases[i] = NewPurchaseResponse(&cust.Purchases[i])
	}
	payments := make([]PaymentEntryResponse, len(cust.Payments))
	for i, pay := range cust.Payments {
		payments[i] = PaymentEntryResponse{Amount: pay.Amount, PaidAt: pay.PaidAt}
	}

	return CustomerResponse{
		CustomerID:     strconv.FormatInt(cust.CustomerID, 10),
		Name:           cust.Name,
		Notes:          cust.Notes,
		PaidTotal:      cust.PaidTotal,
		PendingBalance: cust.PendingBalance(),
		Purchases:      purchases,
		Payments:       payments,
		RegisteredAt:   cust.RegisteredAt,
		UpdatedAt:      cust.UpdatedAt,
	}
}
