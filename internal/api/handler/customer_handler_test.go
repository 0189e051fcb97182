package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"fiado-ledger/internal/api/handler/dto"
	"fiado-ledger/internal/domain/customer"
	"fiado-ledger/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockCustomerService struct {
	mock.Mock
}

func (m *MockCustomerService) CreateCustomer(ctx context.Context, name, notes string) (*customer.Customer, error) {
	args := m.Called(ctx, name, notes)
	if c, ok := args.Get(0).(*customer.Customer); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) GetCustomer(ctx context.Context, customerID int64) (*customer.Customer, error) {
	args := m.Called(ctx, customerID)
	if c, ok := args.Get(0).(*customer.Customer); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) ListCustomers(ctx context.Context) ([]*customer.Customer, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]*customer.Customer); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) SearchCustomers(ctx context.Context, term string) ([]*customer.Customer, error) {
	args := m.Called(ctx, term)
	if list, ok := args.Get(0).([]*customer.Customer); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) UpdateNotes(ctx context.Context, customerID int64, notes string) error {
	args := m.Called(ctx, customerID, notes)
	return args.Error(0)
}

func (m *MockCustomerService) DeleteCustomer(ctx context.Context, customerID int64) error {
	args := m.Called(ctx, customerID)
	return args.Error(0)
}

func (m *MockCustomerService) CountCustomers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestCustomerHandlerCreateCustomer(t *testing.T) {
	mockService := new(MockCustomerService)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	handler := NewCustomerHandler(mockService, logger)

	t.Run("successfully creates customer", func(t *testing.T) {
		created := customer.NewCustomer("Ana Souza")
		created.Notes = "pays on Fridays"
		created.CustomerID = 1
		mockService.On("CreateCustomer", mock.Anything, "Ana Souza", "pays on Fridays").Return(created, nil)

		body, _ := json.Marshal(dto.CreateCustomerRequest{Name: "Ana Souza", Notes: "pays on Fridays"})
		req := httptest.NewRequest(http.MethodPost, "/customers", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.CreateCustomer(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp dto.CustomerResponse
		err := json.NewDecoder(rec.Body).Decode(&resp)
		assert.NoError(t, err)
		assert.Equal(t, "1", resp.CustomerID)
		assert.Equal(t, "Ana Souza", resp.Name)
		mockService.AssertExpectations(t)
	})

	t.Run("returns conflict for duplicate name", func(t *testing.T) {
		mockService.On("CreateCustomer", mock.Anything, "Ana", "").
			Return(nil, fmt.Errorf("%w: %w", apperrors.ErrAlreadyExists, customer.ErrDuplicateName))

		body, _ := json.Marshal(dto.CreateCustomerRequest{Name: "Ana"})
		req := httptest.NewRequest(http.MethodPost, "/customers", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.CreateCustomer(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		body, _ := json.Marshal(dto.CreateCustomerRequest{Name: "   "})
		req := httptest.NewRequest(http.MethodPost, "/customers", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.CreateCustomer(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects unknown fields in payload", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/customers", bytes.NewReader([]byte(`{"name":"Ana","bogus":true}`)))
		rec := httptest.NewRecorder()

		handler.CreateCustomer(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCustomerHandlerListCustomers(t *testing.T) {
	mockService := new(MockCustomerService)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	handler := NewCustomerHandler(mockService, logger)

	t.Run("lists all customers without search term", func(t *testing.T) {
		ana := customer.NewCustomer("Ana")
		ana.CustomerID = 1
		bruno := customer.NewCustomer("Bruno")
		bruno.CustomerID = 2
		mockService.On("SearchCustomers", mock.Anything, "").Return([]*customer.Customer{ana, bruno}, nil)

		req := httptest.NewRequest(http.MethodGet, "/customers", nil)
		rec := httptest.NewRecorder()

		handler.ListCustomers(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp []dto.CustomerResponse
		err := json.NewDecoder(rec.Body).Decode(&resp)
		assert.NoError(t, err)
		assert.Len(t, resp, 2)
		mockService.AssertExpectations(t)
	})

	t.Run("filters customers by search term", func(t *testing.T) {
		ana := customer.NewCustomer("Ana")
		ana.CustomerID = 1
		mockService.On("SearchCustomers", mock.Anything, "ana").Return([]*customer.Customer{ana}, nil)

		req := httptest.NewRequest(http.MethodGet, "/customers?q=ana", nil)
		rec := httptest.NewRecorder()

		handler.ListCustomers(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp []dto.CustomerResponse
		err := json.NewDecoder(rec.Body).Decode(&resp)
		assert.NoError(t, err)
		assert.Len(t, resp, 1)
		assert.Equal(t, "Ana", resp[0].Name)
		mockService.AssertExpectations(t)
	})
}

func TestCustomerHandlerGetCustomer(t *testing.T) {
	mockService := new(MockCustomerService)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	handler := NewCustomerHandler(mockService, logger)

	t.Run("returns customer details", func(t *testing.T) {
		ana := customer.NewCustomer("Ana")
		ana.CustomerID = 1
		mockService.On("GetCustomer", mock.Anything, int64(1)).Return(ana, nil)

		req := newLedgerRequest(http.MethodGet, "/customers/1", nil, map[string]string{"customerID": "1"})
		rec := httptest.NewRecorder()

		handler.GetCustomer(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.CustomerResponse
		err := json.NewDecoder(rec.Body).Decode(&resp)
		assert.NoError(t, err)
		assert.Equal(t, "Ana", resp.Name)
		mockService.AssertExpectations(t)
	})

	t.Run("returns not found for unknown customer", func(t *testing.T) {
		mockService.On("GetCustomer", mock.Anything, int64(42)).Return(nil, customer.ErrNotFound)

		req := newLedgerRequest(http.MethodGet, "/customers/42", nil, map[string]string{"customerID": "42"})
		rec := httptest.NewRecorder()

		handler.GetCustomer(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var resp dto.ErrorResponse
		err := json.NewDecoder(rec.Body).Decode(&resp)
		assert.NoError(t, err)
		assert.Equal(t, "Resource not found.", resp.Error.Message)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects non-numeric customer ID", func(t *testing.T) {
		req := newLedgerRequest(http.MethodGet, "/customers/abc", nil, map[string]string{"customerID": "abc"})
		rec := httptest.NewRecorder()

		handler.GetCustomer(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCustomerHandlerUpdateNotes(t *testing.T) {
	mockService := new(MockCustomerService)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	handler := NewCustomerHandler(mockService, logger)

	t.Run("updates notes", func(t *testing.T) {
		mockService.On("UpdateNotes", mock.Anything, int64(1), "new notes").Return(nil)

		body, _ := json.Marshal(dto.UpdateNotesRequest{Notes: "new notes"})
		req := newLedgerRequest(http.MethodPut, "/customers/1/notes", body, map[string]string{"customerID": "1"})
		rec := httptest.NewRecorder()

		handler.UpdateNotes(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		mockService.AssertExpectations(t)
	})
}

func TestCustomerHandlerDeleteCustomer(t *testing.T) {
	mockService := new(MockCustomerService)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	handler := NewCustomerHandler(mockService, logger)

	t.Run("deletes customer", func(t *testing.T) {
		mockService.On("DeleteCustomer", mock.Anything, int64(1)).Return(nil)

		req := newLedgerRequest(http.MethodDelete, "/customers/1", nil, map[string]string{"customerID": "1"})
		rec := httptest.NewRecorder()

		handler.DeleteCustomer(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("returns not found for unknown customer", func(t *testing.T) {
		mockService.On("DeleteCustomer", mock.Anything, int64(9)).Return(customer.ErrNotFound)

		req := newLedgerRequest(http.MethodDelete, "/customers/9", nil, map[string]string{"customerID": "9"})
		rec := httptest.NewRecorder()

		handler.DeleteCustomer(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		mockService.AssertExpectations(t)
	})
}
