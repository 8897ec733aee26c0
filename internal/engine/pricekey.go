package engine

import "github.com/shopspring/decimal"

// The book is keyed on fixed-point integers rather than decimals so that
// level lookups and best-price ordering are exact. The grid resolution is
// 10^-5: prices quantize by multiplying out the five decimal places and
// truncating toward zero.
const priceScale = 5

// PriceToKey quantizes a price onto the book's integer grid.
func PriceToKey(price decimal.Decimal) int64 {
	return price.Shift(priceScale).IntPart()
}

// KeyToPrice recovers the decimal price a key was filed under.
func KeyToPrice(key int64) decimal.Decimal {
	return decimal.New(key, -priceScale)
}
