package services

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrDuplicateKey is returned by Create when a primary key, hash or other
	// unique column collides with an existing row.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrNotFound is returned by mutating operations whose target row is absent.
	ErrNotFound = errors.New("record not found")
)

func translateError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return err
}

// first runs q and loads a single row into a new T. A missing row is (nil, nil).
func first[T any](q *gorm.DB) (*T, error) {
	var out T
	err := q.First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
