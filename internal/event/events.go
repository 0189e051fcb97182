package event

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settlement reasons carried on DebtSettledEvent.
const (
	SettlementReasonPayment     = "payment"
	SettlementReasonLiquidation = "liquidation"
	SettlementReasonRemoval     = "removal"
)

type CustomerEventPayload struct {
	CustomerID   int64     `json:"customerId"`
	Name         string    `json:"name"`
	RegisteredAt time.Time `json:"registeredAt"`
}

type CustomerCreatedEvent struct {
	Timestamp time.Time            `json:"timestamp"`
	Payload   CustomerEventPayload `json:"payload"`
}

type CustomerDeletedEvent struct {
	Timestamp time.Time            `json:"timestamp"`
	Payload   CustomerEventPayload `json:"payload"`
}

type PurchaseAddedEvent struct {
	CustomerID  int64           `json:"customerId"`
	PurchaseID  string          `json:"purchaseId"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	PurchasedAt time.Time       `json:"purchasedAt"`
	Timestamp   time.Time       `json:"timestamp"`
}

type PurchaseRemovedEvent struct {
	CustomerID  int64     `json:"customerId"`
	PurchaseID  string    `json:"purchaseId"`
	AutoSettled bool      `json:"autoSettled"`
	Timestamp   time.Time `json:"timestamp"`
}

type PaymentRecordedEvent struct {
	CustomerID int64           `json:"customerId"`
	Amount     decimal.Decimal `json:"amount"`
	Settled    bool            `json:"settled"`
	Timestamp  time.Time       `json:"timestamp"`
}

type DebtSettledEvent struct {
	CustomerID   int64     `json:"customerId"`
	Reason       string    `json:"reason"`
	ItemsCleared int       `json:"itemsCleared"`
	Timestamp    time.Time `json:"timestamp"`
}
