package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Base is embedded by domain repositories. It carries the gorm handle, which
// may be a transaction, and the helpers shared by every query.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the handle bound to ctx. A nil ctx returns the raw handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Bind returns a copy running on tx so several repositories can share one
// transaction. A nil tx keeps the current handle.
func (b Base) Bind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// First runs q into a new T and maps a miss to notFound.
func First[T any](q *gorm.DB, notFound error) (*T, error) {
	var row T
	if err := q.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, err
	}
	return &row, nil
}

// Affected returns how many rows a conditional write touched.
func Affected(result *gorm.DB) (int64, error) {
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
