package models

import "github.com/shopspring/decimal"

// Tour is a read-only catalog entry
type Tour struct {
	ID          int              `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Price       decimal.Decimal  `json:"price"`                 // single-person rate
	GroupPrice  *decimal.Decimal `json:"group_price,omitempty"` // per-person rate for groups
	MinPeople   int              `json:"min_people,omitempty"`  // informational only
	MaxPeople   int              `json:"max_people,omitempty"`  // informational only
}
