package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrDuplicate is returned when a write violates a unique index.
var ErrDuplicate = errors.New("record already exists")

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// Page is an offset/limit window over an ordered result set.
type Page struct {
	Offset int
	Limit  int
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	if p.Limit > 0 {
		db = db.Limit(p.Limit)
	}
	if p.Offset > 0 {
		db = db.Offset(p.Offset)
	}
	return db
}
