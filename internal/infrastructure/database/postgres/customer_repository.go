package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"fiado-ledger/internal/domain/customer"
	"fiado-ledger/internal/infrastructure/monitoring"
	"fiado-ledger/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

// Purchases and payments live as JSONB documents on the customer row. The
// whole record is one shopkeeper's tab for one person; it is always read and
// written as a unit, which is exactly the collapse semantics the domain needs.
const customerColumns = `id, name, notes, paid_total::text, purchases, payments, registered_at, updated_at`

type CustomerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ customer.CustomerRepository = (*CustomerRepository)(nil)

func NewCustomerRepository(db DBPool, logger *slog.Logger) *CustomerRepository {
	if db == nil {
		panic("DBPool cannot be nil for CustomerRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerRepository, using default stderr handler")
	}
	return &CustomerRepository{
		db:     db,
		logger: logger.With("component", "CustomerRepository"),
	}
}

func track(queryName string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery(queryName, status, time.Since(start))
}

func (r *CustomerRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	r.logger.InfoContext(ctx, "Beginning transaction")
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *CustomerRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	r.logger.InfoContext(ctx, "Committing transaction")
	err := tx.Commit(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("%w: failed to commit transaction: %w", apperrors.ErrDatabase, err)
	}
	r.logger.InfoContext(ctx, "Transaction committed successfully")
	return nil
}

func (r *CustomerRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	r.logger.InfoContext(ctx, "Rolling back transaction")
	err := tx.Rollback(ctx)

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", slog.Any("error", err))
		return fmt.Errorf("%w: failed to rollback transaction: %w", apperrors.ErrDatabase, err)
	}
	if err == nil {
		r.logger.InfoContext(ctx, "Transaction rolled back successfully")
	} else {
		r.logger.InfoContext(ctx, "Transaction rollback attempted on closed transaction")
	}
	return nil
}

func (r *CustomerRepository) Save(ctx context.Context, cust *customer.Customer) error {
	if cust == nil {
		return fmt.Errorf("%w: customer cannot be nil", apperrors.ErrInvalidArgument)
	}

	if cust.CustomerID == 0 {
		return r.createCustomer(ctx, r.db, cust)
	}
	return r.updateCustomer(ctx, r.db, cust)
}

// queryRunner is the subset shared by DBPool and pgx.Tx, so insert/update
// logic serves both the pool and in-transaction paths.
type queryRunner interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *CustomerRepository) createCustomer(ctx context.Context, run queryRunner, cust *customer.Customer) (err error) {
	start := time.Now()
	defer func() { track("customer_insert", start, err) }()

	r.logger.InfoContext(ctx, "Attempting to insert new customer", slog.String("name", cust.Name))

	purchases, payments, err := marshalLedgerColumns(cust)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO customers (name, notes, paid_total, purchases, payments, registered_at, updated_at)
        VALUES ($1, $2, $3::numeric, $4::jsonb, $5::jsonb, NOW(), NOW())
        RETURNING id, registered_at, updated_at`

	err = run.QueryRow(ctx, query,
		cust.Name,
		cust.Notes,
		cust.PaidTotal.String(),
		purchases,
		payments,
	).Scan(
		&cust.CustomerID,
		&cust.RegisteredAt,
		&cust.UpdatedAt,
	)

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			r.logger.WarnContext(ctx, "Failed to insert customer due to unique name violation", slog.String("name", cust.Name))
			return fmt.Errorf("%w: %w", translatedErr, customer.ErrDuplicateName)
		}
		r.logger.ErrorContext(ctx, "Failed to insert customer", slog.Any("error", err))
		return fmt.Errorf("%w: failed to insert customer: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Customer inserted successfully", slog.Int64("customerID", cust.CustomerID))
	return nil
}

func (r *CustomerRepository) updateCustomer(ctx context.Context, run queryRunner, cust *customer.Customer) (err error) {
	start := time.Now()
	defer func() { track("customer_update", start, err) }()

	r.logger.InfoContext(ctx, "Attempting to update customer", slog.Int64("customerID", cust.CustomerID))

	purchases, payments, err := marshalLedgerColumns(cust)
	if err != nil {
		return err
	}

	query := `
        UPDATE customers
        SET name = $1,
            notes = $2,
            paid_total = $3::numeric,
            purchases = $4::jsonb,
            payments = $5::jsonb,
            updated_at = NOW()
        WHERE id = $6`

	cmdTag, err := run.Exec(ctx, query,
		cust.Name,
		cust.Notes,
		cust.PaidTotal.String(),
		purchases,
		payments,
		cust.CustomerID,
	)

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			r.logger.WarnContext(ctx, "Failed to update customer due to unique name violation", slog.Any("error", err))
			return fmt.Errorf("%w: %w", translatedErr, customer.ErrDuplicateName)
		}
		r.logger.ErrorContext(ctx, "Failed to update customer", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update customer: %w", apperrors.ErrDatabase, err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update affected zero rows, customer likely not found")
		return customer.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Customer updated successfully")
	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, customerID int64) (cust *customer.Customer, err error) {
	start := time.Now()
	defer func() { track("customer_find_by_id", start, err) }()

	r.logger.InfoContext(ctx, "Attempting to find customer by ID", slog.Int64("customerID", customerID))

	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	cust, err = r.scanCustomer(r.db.QueryRow(ctx, query, customerID))
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			r.logger.WarnContext(ctx, "Customer not found")
			return nil, customer.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query/scan customer by ID", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get customer by ID: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Customer found successfully")
	return cust, nil
}

func (r *CustomerRepository) FindByName(ctx context.Context, name string) (cust *customer.Customer, err error) {
	start := time.Now()
	defer func() { track("customer_find_by_name", start, err) }()

	r.logger.InfoContext(ctx, "Attempting to find customer by name")

	query := `SELECT ` + customerColumns + ` FROM customers WHERE lower(name) = lower(trim($1))`

	cust, err = r.scanCustomer(r.db.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, customer.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query/scan customer by name", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get customer by name: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Customer found successfully by name", slog.Int64("customerID", cust.CustomerID))
	return cust, nil
}

func (r *CustomerRepository) FindAll(ctx context.Context) (customers []*customer.Customer, err error) {
	start := time.Now()
	defer func() { track("customer_find_all", start, err) }()

	r.logger.InfoContext(ctx, "Attempting to find all customers")

	query := `SELECT ` + customerColumns + ` FROM customers ORDER BY lower(name) ASC`

	customers, err = r.queryCustomers(ctx, query)
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "Finished finding customers", slog.Int("count", len(customers)))
	return customers, nil
}

func (r *CustomerRepository) Search(ctx context.Context, term string) (customers []*customer.Customer, err error) {
	start := time.Now()
	defer func() { track("customer_search", start, err) }()

	r.logger.InfoContext(ctx, "Attempting to search customers")

	query := `SELECT ` + customerColumns + ` FROM customers
        WHERE name ILIKE '%' || $1 || '%'
        ORDER BY lower(name) ASC`

	customers, err = r.queryCustomers(ctx, query, term)
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "Finished searching customers", slog.Int("count", len(customers)))
	return customers, nil
}

func (r *CustomerRepository) Delete(ctx context.Context, customerID int64) (err error) {
	start := time.Now()
	defer func() { track("customer_delete", start, err) }()

	r.logger.InfoContext(ctx, "Attempting to delete customer", slog.Int64("customerID", customerID))

	query := `DELETE FROM customers WHERE id = $1`

	cmdTag, err := r.db.Exec(ctx, query, customerID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to execute delete customer", slog.Any("error", err))
		return fmt.Errorf("%w: failed to delete customer: %w", apperrors.ErrDatabase, err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Delete affected zero rows, customer likely not found")
		return customer.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Customer deleted successfully")
	return nil
}

func (r *CustomerRepository) Count(ctx context.Context) (count int64, err error) {
	start := time.Now()
	defer func() { track("customer_count", start, err) }()

	query := `SELECT COUNT(*) FROM customers`

	if err = r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		r.logger.ErrorContext(ctx, "Failed to count customers", slog.Any("error", err))
		return 0, fmt.Errorf("%w: failed to count customers: %w", apperrors.ErrDatabase, err)
	}
	return count, nil
}

func (r *CustomerRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, customerID int64) (cust *customer.Customer, err error) {
	start := time.Now()
	defer func() { track("customer_find_for_update", start, err) }()

	r.logger.InfoContext(ctx, "Attempting to lock customer row for update", slog.Int64("customerID", customerID))

	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 FOR UPDATE`

	cust, err = r.scanCustomer(tx.QueryRow(ctx, query, customerID))
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			r.logger.WarnContext(ctx, "Customer not found for update lock")
			return nil, customer.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to lock customer row", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to lock customer row: %w", apperrors.ErrDatabase, err)
	}

	return cust, nil
}

func (r *CustomerRepository) SaveInTx(ctx context.Context, tx pgx.Tx, cust *customer.Customer) error {
	if cust == nil {
		return fmt.Errorf("%w: customer cannot be nil", apperrors.ErrInvalidArgument)
	}
	if cust.CustomerID == 0 {
		return r.createCustomer(ctx, tx, cust)
	}
	return r.updateCustomer(ctx, tx, cust)
}

func (r *CustomerRepository) CreateInTx(ctx context.Context, tx pgx.Tx, cust *customer.Customer) error {
	if cust == nil {
		return fmt.Errorf("%w: customer cannot be nil", apperrors.ErrInvalidArgument)
	}
	return r.createCustomer(ctx, tx, cust)
}

func (r *CustomerRepository) DeleteAllInTx(ctx context.Context, tx pgx.Tx) (err error) {
	start := time.Now()
	defer func() { track("customer_delete_all", start, err) }()

	r.logger.WarnContext(ctx, "Deleting ALL customer records")

	if _, err = tx.Exec(ctx, `DELETE FROM customers`); err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete all customers", slog.Any("error", err))
		return fmt.Errorf("%w: failed to delete all customers: %w", apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *CustomerRepository) queryCustomers(ctx context.Context, query string, args ...any) ([]*customer.Customer, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query customers", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query customers: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	customers := make([]*customer.Customer, 0)
	for rows.Next() {
		cust, err := r.scanCustomer(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan customer row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed to scan customer row: %w", apperrors.ErrDatabase, err)
		}
		customers = append(customers, cust)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating customer rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating customer rows: %w", apperrors.ErrDatabase, err)
	}
	return customers, nil
}

func (r *CustomerRepository) scanCustomer(row pgx.Row) (*customer.Customer, error) {
	var cust customer.Customer
	var paidTotal string
	var purchases, payments []byte

	err := row.Scan(
		&cust.CustomerID,
		&cust.Name,
		&cust.Notes,
		&paidTotal,
		&purchases,
		&payments,
		&cust.RegisteredAt,
		&cust.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, err
	}

	if cust.PaidTotal, err = decimal.NewFromString(paidTotal); err != nil {
		return nil, fmt.Errorf("invalid paid_total %q: %w", paidTotal, err)
	}
	if err = json.Unmarshal(purchases, &cust.Purchases); err != nil {
		return nil, fmt.Errorf("invalid purchases document: %w", err)
	}
	if err = json.Unmarshal(payments, &cust.Payments); err != nil {
		return nil, fmt.Errorf("invalid payments document: %w", err)
	}
	return &cust, nil
}

func marshalLedgerColumns(cust *customer.Customer) (purchases, payments string, err error) {
	if cust.Purchases == nil {
		cust.Purchases = []customer.Purchase{}
	}
	if cust.Payments == nil {
		cust.Payments = []customer.PartialPayment{}
	}

	purchasesDoc, err := json.Marshal(cust.Purchases)
	if err != nil {
		return "", "", fmt.Errorf("%w: failed to serialize purchases: %w", apperrors.ErrInternalServer, err)
	}
	paymentsDoc, err := json.Marshal(cust.Payments)
	if err != nil {
		return "", "", fmt.Errorf("%w: failed to serialize payments: %w", apperrors.ErrInternalServer, err)
	}
	return string(purchasesDoc), string(paymentsDoc), nil
}

func translateDBError(err error, contextLogger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			contextLogger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, pgErr.ConstraintName)
		}
	}
	return err
}
