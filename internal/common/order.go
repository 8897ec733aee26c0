package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

type OrderType int

const (
	// Limit orders are an order to buy or sell at a specified price or
	// better. Limit orders may rest on the order book until filled.
	LimitOrder OrderType = iota
	// Market orders are instructions to buy or sell immediately. The
	// execution price is whatever the book offers, best levels first.
	MarketOrder
)

func (t OrderType) String() string {
	if t == LimitOrder {
		return "limit"
	}
	return "market"
}

type Order struct {
	ID        string          // Order tracked uuid
	UserID    string          // Who owns this order
	Side      Side            // Order side
	Type      OrderType       // Limit or market
	Price     decimal.Decimal // Limiting price; not used when matching market orders
	Quantity  decimal.Decimal // Total volume requested
	Remaining decimal.Decimal // Unfilled volume
	Timestamp int64           // Unix seconds at order creation
}

// NewOrder assigns a fresh uuid, initializes the remaining volume to the
// full quantity and stamps the creation time.
func NewOrder(userID string, side Side, orderType OrderType, price, quantity decimal.Decimal) Order {
	return Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		Side:      side,
		Type:      orderType,
		Price:     price,
		Quantity:  quantity,
		Remaining: quantity,
		Timestamp: time.Now().Unix(),
	}
}

func (o Order) String() string {
	return fmt.Sprintf(
		`ID:        %s
UserID:    %s
Side:      %v
Type:      %v
Price:     %s
Quantity:  %s (Remaining: %s)
Timestamp: %d`,
		o.ID,
		o.UserID,
		o.Side,
		o.Type,
		o.Price,
		o.Quantity,
		o.Remaining,
		o.Timestamp,
	)
}
