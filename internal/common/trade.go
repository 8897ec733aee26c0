package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade records the match between a buy and a sell order. The price is
// always the resting order's price.
type Trade struct {
	ID          string
	BuyOrderID  string
	SellOrderID string
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	Timestamp   int64
}

// NewTrade emits a trade between a taker and the maker it matched against.
// The caller passes the ids oriented by the taker's side.
func NewTrade(buyOrderID, sellOrderID string, price, quantity decimal.Decimal) Trade {
	return Trade{
		ID:          uuid.New().String(),
		BuyOrderID:  buyOrderID,
		SellOrderID: sellOrderID,
		Price:       price,
		Quantity:    quantity,
		Timestamp:   time.Now().Unix(),
	}
}

func (t Trade) String() string {
	return fmt.Sprintf(
		`ID:          %s
BuyOrderID:  %s
SellOrderID: %s
Price:       %s
Quantity:    %s
Timestamp:   %d`,
		t.ID,
		t.BuyOrderID,
		t.SellOrderID,
		t.Price,
		t.Quantity,
		t.Timestamp,
	)
}
