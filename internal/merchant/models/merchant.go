package models

// Merchant is a merchant name and whether it is tied to Bezos
type Merchant struct {
	ID             int64  `json:"id"`
	Name           string `json:"merchant"`
	IsBezosRelated bool   `json:"isBezosRelated"`
}
