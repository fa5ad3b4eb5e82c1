// Package transaction polls the transaction feed, keeps the filtered snapshot
// and fans updates out to subscribers
package transaction

import (
	"slices"

	"github.com/shopspring/decimal"
)

func init() {
	// amounts are served as JSON numbers, matching the feed
	decimal.MarshalJSONWithoutQuotes = true
}

// EventTransactionsUpdated is the only event published by the monitor
const EventTransactionsUpdated = "TRANSACTIONS_UPDATED"

// Record is a single transaction as returned by the feed
type Record struct {
	ID           int                 `json:"id"`
	Amount       decimal.NullDecimal `json:"amount"`
	Category     []string            `json:"category"`
	Date         string              `json:"date,omitempty"`
	MerchantName string              `json:"merchant_name,omitempty"`
}

// Equal reports whether r and o carry the same values.
// Amounts compare numerically and a nil category equals an empty one.
func (r Record) Equal(o Record) bool {
	if r.ID != o.ID || r.Date != o.Date || r.MerchantName != o.MerchantName {
		return false
	}
	if r.Amount.Valid != o.Amount.Valid {
		return false
	}
	if r.Amount.Valid && !r.Amount.Decimal.Equal(o.Amount.Decimal) {
		return false
	}
	return slices.Equal(r.Category, o.Category)
}

// Records is an ordered sequence of transactions
type Records []Record

// Equal reports whether both sequences hold equal records in the same order
func (rs Records) Equal(o Records) bool {
	return slices.EqualFunc(rs, o, Record.Equal)
}

// Update is the payload carried by EventTransactionsUpdated
type Update struct {
	TransactionsUpdated Records `json:"transactionsUpdated"`
}
