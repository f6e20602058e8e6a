package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned by every Find* when no row matches.
	ErrNotFound = gorm.ErrRecordNotFound
	// ErrStockConflict means a conditional batch update matched no row:
	// another writer changed the batch since it was read.
	ErrStockConflict = errors.New("batch stock changed concurrently")
	// ErrDuplicate is a unique constraint violation.
	ErrDuplicate = gorm.ErrDuplicatedKey
)

// Store groups the repositories that take part in stock mutations so they can
// share one database transaction.
type Store interface {
	Products() ProductRepository
	Batches() BatchRepository
	Orders() OrderRepository
	Customers() CustomerRepository
	Movements() MovementRepository

	// Transaction runs fn with a Store bound to a single transaction. Any
	// error returned by fn rolls back every write made through tx.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Products() ProductRepository { return NewProductRepo(s.db) }
func (s *gormStore) Batches() BatchRepository { return NewBatchRepo(s.db) }
func (s *gormStore) Orders() OrderRepository { return NewOrderRepo(s.db) }
func (s *gormStore) Customers() CustomerRepository { return NewCustomerRepo(s.db) }
func (s *gormStore) Movements() MovementRepository { return NewMovementRepo(s.db) }

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// IsNotFound reports whether err means "no such row".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
