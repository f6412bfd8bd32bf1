package payment

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	idPayloadFormat       = "00"
	idMerchantAccount     = "26"
	idMerchantGUI         = "00"
	idMerchantKey         = "01"
	idMerchantCategory    = "52"
	idCurrency            = "53"
	idAmount              = "54"
	idCountry             = "58"
	idMerchantName        = "59"
	idMerchantCity        = "60"
	idAdditionalData      = "62"
	idAdditionalDataTxID  = "05"
	idCRC                 = "63"
	pixGUI                = "br.gov.bcb.pix"
	currencyBRL           = "986"
	maxMerchantNameLength = 25
	maxMerchantCityLength = 15
	maxTxIDLength         = 25
)

// BRCode holds the fields of a static Pix copy-and-paste payload.
type BRCode struct {
	Key    string
	Name   string
	City   string
	Amount decimal.Decimal
	TxID   string
}

func field(id, value string) (string, error) {
	if len(value) > 99 {
		return "", fmt.Errorf("field %s: value longer than 99 bytes", id)
	}
	return fmt.Sprintf("%s%02d%s", id, len(value), value), nil
}

// Encode renders the EMV merchant-presented payload with its CRC suffix.
func (c BRCode) Encode() (string, error) {
	if c.Key == "" {
		return "", fmt.Errorf("brcode: empty key")
	}
	if c.Amount.IsNegative() {
		return "", fmt.Errorf("brcode: negative amount %s", c.Amount)
	}

	account, err := join(
		[2]string{idMerchantGUI, pixGUI},
		[2]string{idMerchantKey, c.Key},
	)
	if err != nil {
		return "", err
	}

	txid := c.TxID
	if txid == "" {
		txid = "***"
	}
	additional, err := field(idAdditionalDataTxID, txid)
	if err != nil {
		return "", err
	}

	parts := [][2]string{
		{idPayloadFormat, "01"},
		{idMerchantAccount, account},
		{idMerchantCategory, "0000"},
		{idCurrency, currencyBRL},
	}
	if c.Amount.IsPositive() {
		parts = append(parts, [2]string{idAmount, c.Amount.StringFixed(2)})
	}
	parts = append(parts,
		[2]string{idCountry, "BR"},
		[2]string{idMerchantName, ASCII(c.Name, maxMerchantNameLength)},
		[2]string{idMerchantCity, ASCII(c.City, maxMerchantCityLength)},
		[2]string{idAdditionalData, additional},
	)

	body, err := join(parts...)
	if err != nil {
		return "", err
	}

	body += idCRC + "04"
	return body + fmt.Sprintf("%04X", crc16([]byte(body))), nil
}

func join(fields ...[2]string) (string, error) {
	var b strings.Builder
	for _, f := range fields {
		s, err := field(f[0], f[1])
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// TxIDForOrder builds the transaction label carried in the payload.
func TxIDForOrder(orderID uint) string {
	txid := fmt.Sprintf("PEDIDO%d", orderID)
	if len(txid) > maxTxIDLength {
		txid = txid[:maxTxIDLength]
	}
	return txid
}
