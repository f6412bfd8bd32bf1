package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name string `gorm:"size:100;not null"         json:"name"`
	Slug string `gorm:"size:100;uniqueIndex"      json:"slug"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"       json:"id"`
	CategoryID  uint            `gorm:"index;not null"                 json:"category_id"`
	Category    *Category       `gorm:"constraint:OnDelete:CASCADE"    json:"category,omitempty"`
	Name        string          `gorm:"size:200;not null"              json:"name"`
	Slug        string          `gorm:"size:200;uniqueIndex"           json:"slug"`
	Description string          `gorm:"not null"                       json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null"    json:"price"`
	Stock       uint            `gorm:"not null;default:0"             json:"stock"`
	Available   bool            `gorm:"not null;default:true"          json:"available"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

const PaymentMethodPix = "pix"

type Order struct {
	ID            uint        `gorm:"primaryKey;autoIncrement"               json:"id"`
	UserID        uint        `gorm:"index;not null"                         json:"user_id"`
	Name          string      `gorm:"size:100;not null"                      json:"name"`
	Email         string      `gorm:"not null"                               json:"email"`
	Address       string      `gorm:"size:250;not null"                      json:"address"`
	PostalCode    string      `gorm:"size:20;not null"                       json:"postal_code"`
	City          string      `gorm:"size:100;not null"                      json:"city"`
	Status        OrderStatus `gorm:"size:50;not null;default:pending"       json:"status"`
	PaymentMethod string      `gorm:"size:50;not null;default:pix"           json:"payment_method"`
	Items         []OrderItem `gorm:"constraint:OnDelete:CASCADE"            json:"items,omitempty"`
	CreatedAt     time.Time   `gorm:"index"                                  json:"created_at"`
}

// Total is the sum of the line costs. Items must be loaded.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].Cost())
	}
	return total
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"      json:"id"`
	OrderID   uint            `gorm:"index;not null"                json:"order_id"`
	ProductID uint            `gorm:"index;not null"                json:"product_id"`
	Product   *Product        `json:"product,omitempty"`
	Price     decimal.Decimal `gorm:"type:numeric(10,2);not null"   json:"price"`
	Quantity  uint            `gorm:"not null;default:1"            json:"quantity"`
}

func (i *OrderItem) Cost() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
