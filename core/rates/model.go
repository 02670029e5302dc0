package rates

import "github.com/shopspring/decimal"

// Table is one day of quotes as published by the bank.
type Table struct {
	Date            string  `json:"date"`
	Bank            string  `json:"bank"`
	BaseCurrency    int     `json:"baseCurrency"`
	BaseCurrencyLit string  `json:"baseCurrencyLit"`
	Rates           []Entry `json:"exchangeRate"`
}

// Entry is a single currency quote. The commercial rates are not published
// for every currency on every date.
type Entry struct {
	BaseCurrency   string              `json:"baseCurrency"`
	Currency       string              `json:"currency"`
	SaleRateNB     decimal.Decimal     `json:"saleRateNB"`
	PurchaseRateNB decimal.Decimal     `json:"purchaseRateNB"`
	SaleRate       decimal.NullDecimal `json:"saleRate"`
	PurchaseRate   decimal.NullDecimal `json:"purchaseRate"`
}
