package payment

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

var (
	ErrNotConfigured = errors.New("payment: merchant key not configured")
	// ErrInvalidAmount guards against emitting an open-amount code for an order.
	ErrInvalidAmount = errors.New("payment: amount must be positive")
)

type Merchant struct {
	Key  string
	Name string
	City string
}

// Code is what a customer needs to pay one order.
type Code struct {
	OrderID      uint   `json:"order_id"`
	Payload      string `json:"payload"`
	QRCodeBase64 string `json:"qr_code_base64"`
	Beneficiary  string `json:"beneficiary"`
	Amount       string `json:"amount"`
}

type Generator struct {
	merchant Merchant
	qrSize   int
}

// NewGenerator returns ErrNotConfigured when no merchant key is set; callers
// treat that as payment being unavailable.
func NewGenerator(m Merchant) (*Generator, error) {
	if m.Key == "" {
		return nil, ErrNotConfigured
	}
	m.Name = ASCII(m.Name, maxMerchantNameLength)
	m.City = ASCII(m.City, maxMerchantCityLength)
	if m.Name == "" || m.City == "" {
		return nil, fmt.Errorf("payment: beneficiary name and city must contain ascii characters")
	}
	return &Generator{merchant: m, qrSize: 256}, nil
}

func (g *Generator) Generate(orderID uint, amount decimal.Decimal) (*Code, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidAmount, amount.StringFixed(2))
	}

	payload, err := BRCode{
		Key:    g.merchant.Key,
		Name:   g.merchant.Name,
		City:   g.merchant.City,
		Amount: amount,
		TxID:   TxIDForOrder(orderID),
	}.Encode()
	if err != nil {
		return nil, fmt.Errorf("payment: encode payload: %w", err)
	}

	png, err := qrcode.Encode(payload, qrcode.Medium, g.qrSize)
	if err != nil {
		return nil, fmt.Errorf("payment: render qr code: %w", err)
	}

	return &Code{
		OrderID:      orderID,
		Payload:      payload,
		QRCodeBase64: base64.StdEncoding.EncodeToString(png),
		Beneficiary:  g.merchant.Name,
		Amount:       "R$ " + amount.StringFixed(2),
	}, nil
}
