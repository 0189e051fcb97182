package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"fiado-ledger/internal/domain/customer"
	"fiado-ledger/internal/event"
	"fiado-ledger/internal/infrastructure/monitoring"
	"fiado-ledger/internal/pkg/apperrors"
)

type LedgerService interface {
	AddPurchase(ctx context.Context, customerID int64, name, priceText string) (*customer.Purchase, error)

	GetTotals(ctx context.Context, customerID int64) (Totals, error)

	RegisterPayment(ctx context.Context, customerID int64, amountText string) (PaymentResult, error)

	LiquidateDebt(ctx context.Context, customerID int64) (LiquidationResult, error)

	RemovePurchase(ctx context.Context, customerID int64, purchaseID string) (RemovalResult, error)
}

var _ LedgerService = (*ledgerServiceImpl)(nil)

type ledgerServiceImpl struct {
	repo   customer.CustomerRepository
	pub    event.EventPublisher
	logger *slog.Logger
}

func NewLedgerService(repo customer.CustomerRepository, eventPublisher event.EventPublisher, logger *slog.Logger) LedgerService {
	if repo == nil {
		panic("customer repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewLedgerService, using default stderr handler")
	}
	if eventPublisher == nil {
		eventPublisher = event.NopEventPublisher{}
	}
	return &ledgerServiceImpl{
		repo:   repo,
		pub:    eventPublisher,
		logger: logger.With(slog.String("component", "ledgerService")),
	}
}

// applyUpdate runs a mutation against a single customer record atomically:
// the row is locked for the duration of the transaction, mutated in memory and
// written back. The mutation function expresses intent only; it never touches
// storage itself.
func (s *ledgerServiceImpl) applyUpdate(ctx context.Context, customerID int64, mutate func(cust *customer.Customer) error) (err error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}

	defer func() {
		if p := recover(); p != nil {
			s.logger.ErrorContext(ctx, "Panic occurred during ledger update", "customerID", customerID, "error", p)
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	cust, err := s.repo.FindByIDForUpdate(ctx, tx, customerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) || errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Customer not found for ledger update", "customerID", customerID)
			return customer.ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to lock customer record", "customerID", customerID, "error", err)
		return fmt.Errorf("%w: could not load customer %d for update: %v", apperrors.ErrInternalServer, customerID, err)
	}

	if err = mutate(cust); err != nil {
		return err
	}

	if err = s.repo.SaveInTx(ctx, tx, cust); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save customer record", "customerID", customerID, "error", err)
		return fmt.Errorf("%w: could not save customer %d: %v", apperrors.ErrInternalServer, customerID, err)
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "customerID", customerID, "error", err)
		return fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *ledgerServiceImpl) AddPurchase(ctx context.Context, customerID int64, name, priceText string) (*customer.Purchase, error) {
	s.logger.InfoContext(ctx, "Adding purchase", "customerID", customerID)

	name = customer.StripTags(name)
	if name == "" {
		s.logger.WarnContext(ctx, "Validation failed: product name is empty")
		return nil, apperrors.NewValidationError("name", "product name cannot be empty")
	}

	price, err := customer.ParsePrice(priceText)
	if err != nil {
		s.logger.WarnContext(ctx, "Validation failed: bad price", "price", priceText, slog.Any("error", err))
		return nil, err
	}

	var created customer.Purchase
	err = s.applyUpdate(ctx, customerID, func(cust *customer.Customer) error {
		created = customer.NewPurchase(name, price)
		cust.AddPurchase(created)
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.RecordPurchaseAdded()
	s.publishPurchaseAdded(ctx, customerID, created)

	s.logger.InfoContext(ctx, "Purchase added successfully", "customerID", customerID, "purchaseID", created.PurchaseID)
	return &created, nil
}

func (s *ledgerServiceImpl) GetTotals(ctx context.Context, customerID int64) (Totals, error) {
	s.logger.InfoContext(ctx, "Computing totals", "customerID", customerID)

	cust, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) || errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Customer not found", "customerID", customerID)
			return Totals{}, customer.ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get customer for totals", "customerID", customerID, "error", err)
		return Totals{}, fmt.Errorf("%w: failed to get customer %d: %v", apperrors.ErrInternalServer, customerID, err)
	}

	return ComputeTotals(cust), nil
}

func (s *ledgerServiceImpl) RegisterPayment(ctx context.Context, customerID int64, amountText string) (result PaymentResult, err error) {
	s.logger.InfoContext(ctx, "Registering payment", "customerID", customerID)

	defer func() {
		status := "success"
		switch {
		case errors.Is(err, apperrors.ErrInvalidPaymentAmount):
			status = "failure_amount"
		case errors.Is(err, apperrors.ErrNoOutstandingDebt):
			status = "failure_no_debt"
		case err != nil:
			status = "failure_internal"
		}
		monitoring.RecordPayment(status)
	}()

	amount, err := customer.ParseAmount(amountText)
	if err != nil {
		s.logger.WarnContext(ctx, "Validation failed: bad payment amount", "amount", amountText, slog.Any("error", err))
		return PaymentResult{}, err
	}

	var itemsCleared int
	err = s.applyUpdate(ctx, customerID, func(cust *customer.Customer) error {
		if !cust.HasDebt() {
			return apperrors.ErrNoOutstandingDebt
		}
		pending := cust.PendingBalance()
		if !pending.IsPositive() {
			return apperrors.ErrNoOutstandingDebt
		}
		if amount.GreaterThan(pending) {
			return fmt.Errorf("register payment: %w", &ExceedsPendingError{Max: pending})
		}

		cust.RecordPayment(amount, time.Now())

		// Paying the balance down to zero is the same settlement as a manual
		// liquidation: the whole account collapses.
		if cust.ShouldCollapse() {
			itemsCleared = len(cust.Purchases)
			cust.Collapse()
			result.Settled = true
		}
		result.AmountApplied = amount
		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}

	s.publishPaymentRecorded(ctx, customerID, result)
	if result.Settled {
		monitoring.RecordSettlement(event.SettlementReasonPayment)
		s.publishDebtSettled(ctx, customerID, event.SettlementReasonPayment, itemsCleared)
	}

	s.logger.InfoContext(ctx, "Payment registered successfully", "customerID", customerID, "settled", result.Settled)
	return result, nil
}

func (s *ledgerServiceImpl) LiquidateDebt(ctx context.Context, customerID int64) (LiquidationResult, error) {
	s.logger.InfoContext(ctx, "Liquidating debt", "customerID", customerID)

	var result LiquidationResult
	err := s.applyUpdate(ctx, customerID, func(cust *customer.Customer) error {
		if !cust.HasDebt() {
			return fmt.Errorf("%w: nothing to liquidate", apperrors.ErrNoOutstandingDebt)
		}
		result.ItemCount = len(cust.Purchases)
		cust.Collapse()
		return nil
	})
	if err != nil {
		return LiquidationResult{}, err
	}

	monitoring.RecordSettlement(event.SettlementReasonLiquidation)
	s.publishDebtSettled(ctx, customerID, event.SettlementReasonLiquidation, result.ItemCount)

	s.logger.InfoContext(ctx, "Debt liquidated successfully", "customerID", customerID, "itemCount", result.ItemCount)
	return result, nil
}

func (s *ledgerServiceImpl) RemovePurchase(ctx context.Context, customerID int64, purchaseID string) (RemovalResult, error) {
	s.logger.InfoContext(ctx, "Removing purchase", "customerID", customerID, "purchaseID", purchaseID)

	var result RemovalResult
	var itemsCleared int
	err := s.applyUpdate(ctx, customerID, func(cust *customer.Customer) error {
		if !cust.RemovePurchase(purchaseID) {
			return fmt.Errorf("%w: %w", apperrors.ErrNotFound, ErrPurchaseNotFound)
		}

		// Removing an item can flip the balance to zero or below while
		// payments are still on record; that settles the account as a side
		// effect of the removal.
		if cust.ShouldCollapse() {
			itemsCleared = len(cust.Purchases)
			cust.Collapse()
			result.AutoSettled = true
		}
		return nil
	})
	if err != nil {
		return RemovalResult{}, err
	}

	s.publishPurchaseRemoved(ctx, customerID, purchaseID, result.AutoSettled)
	if result.AutoSettled {
		monitoring.RecordSettlement(event.SettlementReasonRemoval)
		s.publishDebtSettled(ctx, customerID, event.SettlementReasonRemoval, itemsCleared)
	}

	s.logger.InfoContext(ctx, "Purchase removed successfully", "customerID", customerID, "autoSettled", result.AutoSettled)
	return result, nil
}

func (s *ledgerServiceImpl) publishPurchaseAdded(ctx context.Context, customerID int64, p customer.Purchase) {
	evt := event.PurchaseAddedEvent{
		CustomerID:  customerID,
		PurchaseID:  p.PurchaseID,
		Name:        p.Name,
		Price:       p.Price,
		PurchasedAt: p.PurchasedAt,
		Timestamp:   time.Now(),
	}
	if err := s.pub.PublishPurchaseAdded(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish purchase added event", slog.Any("error", err))
	}
}

func (s *ledgerServiceImpl) publishPurchaseRemoved(ctx context.Context, customerID int64, purchaseID string, autoSettled bool) {
	evt := event.PurchaseRemovedEvent{
		CustomerID:  customerID,
		PurchaseID:  purchaseID,
		AutoSettled: autoSettled,
		Timestamp:   time.Now(),
	}
	if err := s.pub.PublishPurchaseRemoved(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish purchase removed event", slog.Any("error", err))
	}
}

func (s *ledgerServiceImpl) publishPaymentRecorded(ctx context.Context, customerID int64, result PaymentResult) {
	evt := event.PaymentRecordedEvent{
		CustomerID: customerID,
		Amount:     result.AmountApplied,
		Settled:    result.Settled,
		Timestamp:  time.Now(),
	}
	if err := s.pub.PublishPaymentRecorded(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish payment recorded event", slog.Any("error", err))
	}
}

func (s *ledgerServiceImpl) publishDebtSettled(ctx context.Context, customerID int64, reason string, itemsCleared int) {
	evt := event.DebtSettledEvent{
		CustomerID:   customerID,
		Reason:       reason,
		ItemsCleared: itemsCleared,
		Timestamp:    time.Now(),
	}
	if err := s.pub.PublishDebtSettled(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish debt settled event", slog.Any("error", err))
	}
}
