package engine

import (
	"github.com/shopspring/decimal"

	"skoll/internal/common"
)

// ResponseStatus discriminates the OrderResponse union.
type ResponseStatus int

const (
	// StatusPlaced means the order rested on the book without matching.
	StatusPlaced ResponseStatus = iota
	// StatusPartiallyFilled means the order matched and the residual rested.
	StatusPartiallyFilled
	// StatusFilled means the order matched in full.
	StatusFilled
	// StatusCancelled is reserved for a future cancel command.
	StatusCancelled
	// StatusError means the order was rejected; see Message.
	StatusError
)

func (s ResponseStatus) String() string {
	switch s {
	case StatusPlaced:
		return "placed"
	case StatusPartiallyFilled:
		return "partially_filled"
	case StatusFilled:
		return "filled"
	case StatusCancelled:
		return "cancelled"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// OrderResponse reports the outcome of adding one order. Only the fields
// relevant to the Status are populated.
type OrderResponse struct {
	Status            ResponseStatus
	OrderID           string
	FilledQuantity    decimal.Decimal
	RemainingQuantity decimal.Decimal
	Trades            []common.Trade
	Message           string
}

// BookLevel is one aggregated price level of a snapshot.
type BookLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// OrderbookSnapshot is a point-in-time aggregation of resting volume.
// Bids are ordered highest price first, asks lowest price first.
type OrderbookSnapshot struct {
	Bids []BookLevel
	Asks []BookLevel
}

// Command is a message on the engine's inbound queue. Each variant carries
// its own one-shot reply channel.
type Command interface {
	isCommand()
}

// AddOrderCommand submits one order for matching.
type AddOrderCommand struct {
	Order common.Order
	Reply chan OrderResponse
}

// SnapshotCommand requests an aggregated view of the book.
type SnapshotCommand struct {
	Reply chan OrderbookSnapshot
}

func (AddOrderCommand) isCommand() {}
func (SnapshotCommand) isCommand() {}
