package ledger

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"fiado-ledger/internal/domain/customer"
	"fiado-ledger/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

type TxMock struct {
	pgx.Tx
}

type MockCustomerRepository struct {
	mock.Mock
}

func (_m *MockCustomerRepository) Save(ctx context.Context, cust *customer.Customer) error {
	ret := _m.Called(ctx, cust)
	return ret.Error(0)
}

func (_m *MockCustomerRepository) FindByID(ctx context.Context, customerID int64) (*customer.Customer, error) {
	ret := _m.Called(ctx, customerID)

	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) FindByName(ctx context.Context, name string) (*customer.Customer, error) {
	ret := _m.Called(ctx, name)

	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) FindAll(ctx context.Context) ([]*customer.Customer, error) {
	ret := _m.Called(ctx)

	var r0 []*customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) Search(ctx context.Context, term string) ([]*customer.Customer, error) {
	ret := _m.Called(ctx, term)

	var r0 []*customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) Delete(ctx context.Context, customerID int64) error {
	ret := _m.Called(ctx, customerID)
	return ret.Error(0)
}

func (_m *MockCustomerRepository) Count(ctx context.Context) (int64, error) {
	ret := _m.Called(ctx)
	return ret.Get(0).(int64), ret.Error(1)
}

func (_m *MockCustomerRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	ret := _m.Called(ctx)

	var r0 pgx.Tx
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(pgx.Tx)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, customerID int64) (*customer.Customer, error) {
	ret := _m.Called(ctx, tx, customerID)

	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) SaveInTx(ctx context.Context, tx pgx.Tx, cust *customer.Customer) error {
	ret := _m.Called(ctx, tx, cust)
	return ret.Error(0)
}

func (_m *MockCustomerRepository) CreateInTx(ctx context.Context, tx pgx.Tx, cust *customer.Customer) error {
	ret := _m.Called(ctx, tx, cust)
	return ret.Error(0)
}

func (_m *MockCustomerRepository) DeleteAllInTx(ctx context.Context, tx pgx.Tx) error {
	ret := _m.Called(ctx, tx)
	return ret.Error(0)
}

func (_m *MockCustomerRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	ret := _m.Called(ctx, tx)
	return ret.Error(0)
}

func (_m *MockCustomerRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	ret := _m.Called(ctx, tx)
	return ret.Error(0)
}

func expectUpdate(mockRepo *MockCustomerRepository, ctx context.Context, tx pgx.Tx, cust *customer.Customer) {
	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("FindByIDForUpdate", ctx, tx, cust.CustomerID).Return(cust, nil)
	mockRepo.On("SaveInTx", ctx, tx, cust).Return(nil)
	mockRepo.On("CommitTx", ctx, tx).Return(nil)
}

func newDebtor(id int64, prices ...string) *customer.Customer {
	cust := customer.NewCustomer("Ana")
	cust.CustomerID = id
	for _, p := range prices {
		cust.AddPurchase(customer.NewPurchase("item", decimal.RequireFromString(p)))
	}
	return cust
}

func TestAddPurchase(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	service := NewLedgerService(mockRepo, nil, logger)

	ctx := context.Background()
	tx := &TxMock{}
	cust := newDebtor(1)
	expectUpdate(mockRepo, ctx, tx, cust)

	created, err := service.AddPurchase(ctx, 1, "<b>Rice</b>", "12,50")

	assert.NoError(t, err)
	assert.Equal(t, "Rice", created.Name)
	assert.True(t, created.Price.Equal(decimal.RequireFromString("12.5")))
	assert.NotEmpty(t, created.PurchaseID)
	assert.Len(t, cust.Purchases, 1)
	mockRepo.AssertExpectations(t)
}

func TestAddPurchaseInvalidPrice(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	service := NewLedgerService(mockRepo, nil, logger)

	_, err := service.AddPurchase(context.Background(), 1, "Rice", "12,555")

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	mockRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestAddPurchaseEmptyName(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	service := NewLedgerService(mockRepo, nil, logger)

	_, err := service.AddPurchase(context.Background(), 1, "<i></i>", "10")

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	mockRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestGetTotals(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	service := NewLedgerService(mockRepo, nil, logger)

	ctx := context.Background()
	cust := newDebtor(1, "30.01")
	cust.RecordPayment(decimal.RequireFromString("10"), time.Now())
	mockRepo.On("FindByID", ctx, int64(1)).Return(cust, nil)

	totals, err := service.GetTotals(ctx, 1)

	assert.NoError(t, err)
	assert.True(t, totals.Gross.Equal(decimal.RequireFromString("30.01")))
	assert.True(t, totals.Paid.Equal(decimal.RequireFromString("10")))
	assert.True(t, totals.Pending.Equal(decimal.RequireFromString("20.01")))
}

func TestRegisterPaymentPartial(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	service := NewLedgerService(mockRepo, nil, logger)

	ctx := context.Background()
	tx := &TxMock{}
	cust := newDebtor(1, "30.01")
	expectUpdate(mockRepo, ctx, tx, cust)

	result, err := service.RegisterPayment(ctx, 1, "30")

	assert.NoError(t, err)
	assert.False(t, result.Settled)
	assert.True(t, cust.PendingBalance().Equal(decimal.RequireFromString("0.01")))
	assert.Len(t, cust.Payments, 1)
	mockRepo.AssertExpectations(t)
}

func TestRegisterPaymentSettlesAccount(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	service := NewLedgerService(mockRepo, nil, logger)

	ctx := context.Background()
	tx := &TxMock{}
	cust := newDebtor(1, "30")
	expectUpdate(mockRepo, ctx, tx, cust)

	result, err := service.RegisterPayment(ctx, 1, "30")

	assert.NoError(t, err)
	assert.True(t, result.Settled)
	assert.Empty(t, cust.Purchases)
	assert.Empty(t, cust.Payments)
	assert.True(t, cust.PaidTotal.IsZero())
	mockRepo.AssertExpectations(t)
}

func TestRegisterPaymentExceedsPending(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	service := NewLedgerService(mockRepo, nil, logger)

	ctx := context.Background()
	tx := &TxMock{}
	cust := newDebtor(1, "30.01")
	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("FindByIDForUpdate", ctx, tx, int64(1)).Return(cust, nil)
	mockRepo.On("RollbackTx", ctx, tx).Return(nil)

	_, err := service.RegisterPayment(ctx, 1, "31")

	assert.ErrorIs(t, err, apperrors.ErrInvalidPaymentAmount)

	var exceedsErr *ExceedsPendingError
	assert.ErrorAs(t, err, &exceedsErr)
	assert.True(t, exceedsErr.Max.Equal(decimal.RequireFromString("30.01")))
	assert.Len(t, cust.Payments, 0)
	mockRepo.AssertNotCalled(t, "SaveInTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterPaymentNoDebt(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	service := NewLedgerService(mockRepo, nil, logger)

	ctx := context.Background()
	tx := &TxMock{}
	cust := newDebtor(1)
	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("FindByIDForUpdate", ctx, tx, int64(1)).Return(cust, nil)
	mockRepo.On("RollbackTx", ctx, tx).Return(nil)

	_, err := service.RegisterPayment(ctx, 1, "10")

	assert.ErrorIs(t, err, apperrors.ErrNoOutstandingDebt)
}

func TestRegisterPaymentInvalidAmount(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	service := NewLedgerService(mockRepo, nil, logger)

	_, err := service.RegisterPayment(context.Background(), 1, "abc")

	assert.ErrorIs(t, err, apperrors.ErrInvalidPaymentAmount)
	mockRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestRegisterPaymentCustomerNotFound(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	service := NewLedgerService(mockRepo, nil, logger)

	ctx := context.Background()
	tx := &TxMock{}
	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("FindByIDForUpdate", ctx, tx, int64(9)).Return(nil, customer.ErrNotFound)
	mockRepo.On("RollbackTx", ctx, tx).Return(nil)

	_, err := service.RegisterPayment(ctx, 9, "10")

	assert.ErrorIs(t, err, customer.ErrNotFound)
}

func TestLiquidateDebt(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	service := NewLedgerService(mockRepo, nil, logger)

	ctx := context.Background()
	tx := &TxMock{}
	cust := newDebtor(1, "10", "20", "5")
	cust.RecordPayment(decimal.RequireFromString("15"), time.Now())
	expectUpdate(mockRepo, ctx, tx, cust)

	result, err := service.LiquidateDebt(ctx, 1)

	assert.NoError(t, err)
	assert.Equal(t, 3, result.ItemCount)
	assert.Empty(t, cust.Purchases)
	assert.Empty(t, cust.Payments)
	assert.True(t, cust.PaidTotal.IsZero())
	mockRepo.AssertExpectations(t)
}

func TestLiquidateDebtNothingOwed(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	service := NewLedgerService(mockRepo, nil, logger)

	ctx := context.Background()
	tx := &TxMock{}
	cust := newDebtor(1)
	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("FindByIDForUpdate", ctx, tx, int64(1)).Return(cust, nil)
	mockRepo.On("RollbackTx", ctx, tx).Return(nil)

	_, err := service.LiquidateDebt(ctx, 1)

	assert.ErrorIs(t, err, apperrors.ErrNoOutstandingDebt)
}

func TestRemovePurchase(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	service := NewLedgerService(mockRepo, nil, logger)

	ctx := context.Background()
	tx := &TxMock{}
	cust := newDebtor(1, "10", "20")
	target := cust.Purchases[0].PurchaseID
	expectUpdate(mockRepo, ctx, tx, cust)

	result, err := service.RemovePurchase(ctx, 1, target)

	assert.NoError(t, err)
	assert.False(t, result.AutoSettled)
	assert.Len(t, cust.Purchases, 1)
	mockRepo.AssertExpectations(t)
}

func TestRemovePurchaseAutoSettles(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	service := NewLedgerService(mockRepo, nil, logger)

	ctx := context.Background()
	tx := &TxMock{}
	cust := newDebtor(1, "50", "5")
	cust.RecordPayment(decimal.RequireFromString("45"), time.Now())
	target := cust.Purchases[0].PurchaseID
	expectUpdate(mockRepo, ctx, tx, cust)

	result, err := service.RemovePurchase(ctx, 1, target)

	assert.NoError(t, err)
	assert.True(t, result.AutoSettled)
	assert.Empty(t, cust.Purchases)
	assert.Empty(t, cust.Payments)
	assert.True(t, cust.PaidTotal.IsZero())
	mockRepo.AssertExpectations(t)
}

func TestRemovePurchaseNotFound(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	service := NewLedgerService(mockRepo, nil, logger)

	ctx := context.Background()
	tx := &TxMock{}
	cust := newDebtor(1, "10")
	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("FindByIDForUpdate", ctx, tx, int64(1)).Return(cust, nil)
	mockRepo.On("RollbackTx", ctx, tx).Return(nil)

	_, err := service.RemovePurchase(ctx, 1, "missing")

	assert.ErrorIs(t, err, ErrPurchaseNotFound)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Len(t, cust.Purchases, 1)
}
