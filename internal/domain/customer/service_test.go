package customer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"fiado-ledger/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

func TestCreateCustomer(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewCustomerService(mockRepo, nil, logger)

	ctx := context.Background()

	mockRepo.On("FindByName", ctx, "Ana").Return(nil, ErrNotFound)
	mockRepo.On("Save", ctx, mock.Anything).Return(nil)

	cust, err := service.CreateCustomer(ctx, "  Ana  ", " owes since May ")

	assert.NoError(t, err)
	assert.Equal(t, "Ana", cust.Name)
	assert.Equal(t, "owes since May", cust.Notes)
	assert.Empty(t, cust.Purchases)
	assert.True(t, cust.PaidTotal.IsZero())
	mockRepo.AssertExpectations(t)
}

func TestCreateCustomerEmptyName(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewCustomerService(mockRepo, nil, logger)

	_, err := service.CreateCustomer(context.Background(), "   ", "")

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCreateCustomerDuplicateName(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewCustomerService(mockRepo, nil, logger)

	ctx := context.Background()
	mockRepo.On("FindByName", ctx, "Ana").Return(&Customer{CustomerID: 7, Name: "Ana"}, nil)

	_, err := service.CreateCustomer(ctx, "Ana", "")

	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.ErrorIs(t, err, ErrDuplicateName)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestGetCustomerNotFound(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewCustomerService(mockRepo, nil, logger)

	ctx := context.Background()
	mockRepo.On("FindByID", ctx, int64(42)).Return(nil, ErrNotFound)

	_, err := service.GetCustomer(ctx, 42)

	assert.ErrorIs(t, err, ErrNotFound)
	mockRepo.AssertExpectations(t)
}

func TestUpdateNotes(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewCustomerService(mockRepo, nil, logger)

	ctx := context.Background()
	cust := NewCustomer("Ana")
	cust.CustomerID = 1

	mockRepo.On("FindByID", ctx, int64(1)).Return(cust, nil)
	mockRepo.On("Save", ctx, cust).Return(nil)

	err := service.UpdateNotes(ctx, 1, "pays on fridays")

	assert.NoError(t, err)
	assert.Equal(t, "pays on fridays", cust.Notes)
	mockRepo.AssertExpectations(t)
}

func TestUpdateNotesUnchangedSkipsSave(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewCustomerService(mockRepo, nil, logger)

	ctx := context.Background()
	cust := NewCustomer("Ana")
	cust.CustomerID = 1
	cust.Notes = "same"

	mockRepo.On("FindByID", ctx, int64(1)).Return(cust, nil)

	err := service.UpdateNotes(ctx, 1, " same ")

	assert.NoError(t, err)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDeleteCustomer(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewCustomerService(mockRepo, nil, logger)

	ctx := context.Background()
	cust := NewCustomer("Ana")
	cust.CustomerID = 3

	mockRepo.On("FindByID", ctx, int64(3)).Return(cust, nil)
	mockRepo.On("Delete", ctx, int64(3)).Return(nil)

	err := service.DeleteCustomer(ctx, 3)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestSearchCustomersEmptyTermListsAll(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewCustomerService(mockRepo, nil, logger)

	ctx := context.Background()
	all := []*Customer{NewCustomer("Ana"), NewCustomer("Bruno")}
	mockRepo.On("FindAll", ctx).Return(all, nil)

	result, err := service.SearchCustomers(ctx, "  ")

	assert.NoError(t, err)
	assert.Equal(t, all, result)
	mockRepo.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestListCustomersRepositoryError(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewCustomerService(mockRepo, nil, logger)

	ctx := context.Background()
	mockRepo.On("FindAll", ctx).Return(nil, errors.New("connection reset"))

	_, err := service.ListCustomers(ctx)

	assert.Error(t, err)
}
