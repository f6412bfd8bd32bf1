package repo

import (
	"errors"

	"gorm.io/gorm"
)

// ErrStaleStatus is returned when an order changed status between read and write.
var ErrStaleStatus = errors.New("order status changed concurrently")

type GormRepo struct {
	DB *gorm.DB
}
