package models

import "github.com/shopspring/decimal"

// NullAmount is a fixed-point money/quantity column that may be NULL.
type NullAmount = decimal.NullDecimal
