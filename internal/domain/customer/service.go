package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"fiado-ledger/internal/event"
	"fiado-ledger/internal/pkg/apperrors"
)

const customerNotFound = "Customer not found by repository"

type CustomerService interface {
	CreateCustomer(ctx context.Context, name, notes string) (*Customer, error)
	GetCustomer(ctx context.Context, customerID int64) (*Customer, error)
	ListCustomers(ctx context.Context) ([]*Customer, error)
	SearchCustomers(ctx context.Context, term string) ([]*Customer, error)
	UpdateNotes(ctx context.Context, customerID int64, notes string) error
	DeleteCustomer(ctx context.Context, customerID int64) error
	CountCustomers(ctx context.Context) (int64, error)
}

var _ CustomerService = (*customerService)(nil)

type customerService struct {
	repo   CustomerRepository
	pub    event.EventPublisher
	logger *slog.Logger
}

func NewCustomerService(repo CustomerRepository, eventPublisher event.EventPublisher, logger *slog.Logger) CustomerService {
	if repo == nil {
		panic("customer repository cannot be nil")
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerService, using default stderr handler")
	}

	if eventPublisher == nil {
		eventPublisher = event.NopEventPublisher{}
	}

	return &customerService{
		repo:   repo,
		pub:    eventPublisher,
		logger: logger.With(slog.String("component", "customerService")),
	}
}

func newCustomerEventPayload(cust *Customer) event.CustomerEventPayload {
	if cust == nil {
		return event.CustomerEventPayload{}
	}
	return event.CustomerEventPayload{
		CustomerID:   cust.CustomerID,
		Name:         cust.Name,
		RegisteredAt: cust.RegisteredAt,
	}
}

func (s *customerService) CreateCustomer(ctx context.Context, name, notes string) (*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to create new customer")

	name = strings.TrimSpace(name)
	if name == "" {
		s.logger.WarnContext(ctx, "Validation failed: name is empty")
		return nil, apperrors.NewValidationError("name", "customer name cannot be empty")
	}

	existing, err := s.repo.FindByName(ctx, name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.ErrorContext(ctx, "Repository error checking for duplicate name", slog.Any("error", err))
		return nil, fmt.Errorf("failed to check for duplicate customer name: %w", err)
	}
	if existing != nil {
		s.logger.WarnContext(ctx, "Business rule failed: duplicate customer name", slog.String("name", name))
		return nil, fmt.Errorf("%w: %w", apperrors.ErrAlreadyExists, ErrDuplicateName)
	}

	cust := NewCustomer(name)
	cust.Notes = strings.TrimSpace(notes)

	s.logger.InfoContext(ctx, "Calling repository Save")
	if err := s.repo.Save(ctx, cust); err != nil {
		if errors.Is(err, ErrDuplicateName) || errors.Is(err, apperrors.ErrAlreadyExists) {
			s.logger.WarnContext(ctx, "Duplicate name conflict detected during save", slog.String("name", name))
			return nil, fmt.Errorf("%w: %w", apperrors.ErrAlreadyExists, ErrDuplicateName)
		}
		s.logger.ErrorContext(ctx, "Repository failed to save new customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new customer: %w", err)
	}

	createdEvent := event.CustomerCreatedEvent{
		Timestamp: time.Now(),
		Payload:   newCustomerEventPayload(cust),
	}
	if pubErr := s.pub.PublishCustomerCreated(ctx, createdEvent); pubErr != nil {
		s.logger.ErrorContext(ctx, "Customer created, but FAILED to publish creation event", slog.Any("error", pubErr))
	}

	s.logger.InfoContext(ctx, "Successfully created new customer", slog.Int64("customerID", cust.CustomerID))
	return cust, nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID int64) (*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to get customer by ID", slog.Int64("customerID", customerID))

	cust, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, customerNotFound)
			return nil, ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository error finding customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get customer %d: %w", customerID, err)
	}

	return cust, nil
}

func (s *customerService) ListCustomers(ctx context.Context) ([]*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to list all customers")

	customers, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing customers", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully retrieved customers", slog.Int("count", len(customers)))
	return customers, nil
}

func (s *customerService) SearchCustomers(ctx context.Context, term string) ([]*Customer, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.ListCustomers(ctx)
	}

	s.logger.InfoContext(ctx, "Attempting to search customers", slog.String("term", term))

	customers, err := s.repo.Search(ctx, term)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error searching customers", slog.Any("error", err))
		return nil, fmt.Errorf("failed to search customers: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully searched customers", slog.Int("count", len(customers)))
	return customers, nil
}

func (s *customerService) UpdateNotes(ctx context.Context, customerID int64, notes string) error {
	s.logger.InfoContext(ctx, "Attempting to update customer notes", slog.Int64("customerID", customerID))

	cust, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, customerNotFound)
			return ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository error finding customer for notes update", slog.Any("error", err))
		return fmt.Errorf("cannot find customer %d to update notes: %w", customerID, err)
	}

	notes = strings.TrimSpace(notes)
	if cust.Notes == notes {
		s.logger.InfoContext(ctx, "No notes change needed, skipping save")
		return nil
	}
	cust.Notes = notes
	cust.UpdatedAt = time.Now()

	if err := s.repo.Save(ctx, cust); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.ErrorContext(ctx, "Customer disappeared before save completed")
			return ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository failed to save updated notes", slog.Any("error", err))
		return fmt.Errorf("failed to save notes for customer %d: %w", customerID, err)
	}

	s.logger.InfoContext(ctx, "Successfully updated customer notes")
	return nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, customerID int64) error {
	s.logger.InfoContext(ctx, "Attempting to delete customer", slog.Int64("customerID", customerID))

	cust, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, customerNotFound)
			return ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository error finding customer for deletion", slog.Any("error", err))
		return fmt.Errorf("cannot find customer %d to delete: %w", customerID, err)
	}

	if err := s.repo.Delete(ctx, customerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, customerNotFound)
			return ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository error deleting customer", slog.Any("error", err))
		return fmt.Errorf("failed to delete customer %d: %w", customerID, err)
	}

	deletedEvent := event.CustomerDeletedEvent{
		Timestamp: time.Now(),
		Payload:   newCustomerEventPayload(cust),
	}
	if pubErr := s.pub.PublishCustomerDeleted(ctx, deletedEvent); pubErr != nil {
		s.logger.ErrorContext(ctx, "Customer deleted, but FAILED to publish deletion event", slog.Any("error", pubErr))
	}

	s.logger.InfoContext(ctx, "Successfully deleted customer")
	return nil
}

func (s *customerService) CountCustomers(ctx context.Context) (int64, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error counting customers", slog.Any("error", err))
		return 0, fmt.Errorf("failed to count customers: %w", err)
	}
	return count, nil
}
