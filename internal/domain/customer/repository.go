package customer

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound = errors.New("customer not found")

	ErrDuplicateName = errors.New("a customer with this name already exists")
)

// CustomerRepository is the record store boundary. The *InTx methods exist so
// services can run read-modify-write cycles atomically: begin, lock the row
// with FindByIDForUpdate, mutate in memory, SaveInTx, commit.
type CustomerRepository interface {
	Save(ctx context.Context, cust *Customer) error

	FindByID(ctx context.Context, customerID int64) (*Customer, error)

	// FindByName matches the trimmed name case-insensitively.
	FindByName(ctx context.Context, name string) (*Customer, error)

	FindAll(ctx context.Context) ([]*Customer, error)

	Search(ctx context.Context, term string) ([]*Customer, error)

	Delete(ctx context.Context, customerID int64) error

	Count(ctx context.Context) (int64, error)

	BeginTx(ctx context.Context) (pgx.Tx, error)

	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, customerID int64) (*Customer, error)

	SaveInTx(ctx context.Context, tx pgx.Tx, cust *Customer) error

	CreateInTx(ctx context.Context, tx pgx.Tx, cust *Customer) error

	DeleteAllInTx(ctx context.Context, tx pgx.Tx) error

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error
}
