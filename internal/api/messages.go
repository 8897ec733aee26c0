package api

import (
	"errors"

	"github.com/shopspring/decimal"

	"skoll/internal/common"
	"skoll/internal/engine"
)

var (
	ErrInvalidSide      = errors.New("side must be buy or sell")
	ErrInvalidOrderType = errors.New("type must be limit or market")
)

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

type onRampRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type onRampResponse struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

type orderRequest struct {
	Side     string          `json:"side" binding:"required"`
	Type     string          `json:"type" binding:"required"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Order builds the engine-facing order from the wire request.
func (r orderRequest) Order(userID string) (common.Order, error) {
	var side common.Side
	switch r.Side {
	case "buy":
		side = common.Buy
	case "sell":
		side = common.Sell
	default:
		return common.Order{}, ErrInvalidSide
	}

	var orderType common.OrderType
	switch r.Type {
	case "limit":
		orderType = common.LimitOrder
	case "market":
		orderType = common.MarketOrder
	default:
		return common.Order{}, ErrInvalidOrderType
	}

	return common.NewOrder(userID, side, orderType, r.Price, r.Quantity), nil
}

type tradeBody struct {
	ID          string          `json:"id"`
	BuyOrderID  string          `json:"buy_order_id"`
	SellOrderID string          `json:"sell_order_id"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Timestamp   int64           `json:"timestamp"`
}

type orderBody struct {
	Status            string          `json:"status"`
	OrderID           string          `json:"order_id"`
	FilledQuantity    decimal.Decimal `json:"filled_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	Trades            []tradeBody     `json:"trades,omitempty"`
	Message           string          `json:"message,omitempty"`
}

func newOrderBody(response engine.OrderResponse) orderBody {
	body := orderBody{
		Status:            response.Status.String(),
		OrderID:           response.OrderID,
		FilledQuantity:    response.FilledQuantity,
		RemainingQuantity: response.RemainingQuantity,
		Message:           response.Message,
	}
	for _, trade := range response.Trades {
		body.Trades = append(body.Trades, tradeBody{
			ID:          trade.ID,
			BuyOrderID:  trade.BuyOrderID,
			SellOrderID: trade.SellOrderID,
			Price:       trade.Price,
			Quantity:    trade.Quantity,
			Timestamp:   trade.Timestamp,
		})
	}
	return body
}

type levelBody struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

type snapshotBody struct {
	Bids []levelBody `json:"bids"`
	Asks []levelBody `json:"asks"`
}

func newSnapshotBody(snapshot engine.OrderbookSnapshot) snapshotBody {
	body := snapshotBody{Bids: []levelBody{}, Asks: []levelBody{}}
	for _, level := range snapshot.Bids {
		body.Bids = append(body.Bids, levelBody{Price: level.Price, Quantity: level.Quantity})
	}
	for _, level := range snapshot.Asks {
		body.Asks = append(body.Asks, levelBody{Price: level.Price, Quantity: level.Quantity})
	}
	return body
}
