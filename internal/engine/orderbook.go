package engine

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"skoll/internal/common"
)

var (
	ErrInsufficientLiquidity = errors.New("Insufficient liquidity for market order")
	ErrNoMatchingOrders      = errors.New("No matching orders available")
	ErrMissingLimitPrice     = errors.New("limit order must have price")
)

// PriceLevel holds the resting orders at one price key, sorted by time added
// as they will be push-back'd.
type PriceLevel struct {
	key    int64
	orders []*common.Order
}

// totalRemaining sums the unfilled volume resting at this level.
func (level *PriceLevel) totalRemaining() decimal.Decimal {
	total := decimal.Zero
	for _, order := range level.orders {
		total = total.Add(order.Remaining)
	}
	return total
}

type PriceLevels = btree.BTreeG[*PriceLevel]

type OrderBook struct {
	// Price levels to orders sat on the price level. Each side's tree is
	// ordered best-price-first, so MinMut always yields top of book.
	bids *PriceLevels
	asks *PriceLevels

	// All resting orders indexed by id.
	orders map[string]*common.Order

	// Some book keeping
	nBuyOrders   uint64          // Track the number of bids in the book.
	nSellOrders  uint64          // Track the number of asks in the book.
	buyQuantity  decimal.Decimal // Track the bid-side liquidity of the book.
	sellQuantity decimal.Decimal // Track the ask-side liquidity of the book.
}

func NewOrderBook() *OrderBook {
	// Sorted greatest first.
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.key > b.key
	})
	// Sorted least first.
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.key < b.key
	})
	return &OrderBook{
		bids:         bids,
		asks:         asks,
		orders:       make(map[string]*common.Order),
		buyQuantity:  decimal.Zero,
		sellQuantity: decimal.Zero,
	}
}

// AddOrder runs one order through the book to completion: matching, then
// resting any limit residual. The returned response carries the trades the
// order produced.
func (book *OrderBook) AddOrder(order common.Order) OrderResponse {
	switch order.Type {
	case common.MarketOrder:
		return book.addMarket(order)
	case common.LimitOrder:
		return book.addLimit(order)
	}
	return OrderResponse{Status: StatusError, OrderID: order.ID, Message: "unknown order type"}
}

// addMarket sweeps the opposite side until the order is filled. The sweep
// only starts if the book can cover the full quantity, so a rejected market
// order never consumes liquidity.
func (book *OrderBook) addMarket(order common.Order) OrderResponse {
	var available decimal.Decimal
	var depth int
	switch order.Side {
	case common.Buy:
		available = book.sellQuantity
		depth = book.asks.Len()
	case common.Sell:
		available = book.buyQuantity
		depth = book.bids.Len()
	}

	if depth == 0 || !order.Remaining.IsPositive() {
		return OrderResponse{Status: StatusError, OrderID: order.ID, Message: ErrNoMatchingOrders.Error()}
	}
	if available.LessThan(order.Remaining) {
		return OrderResponse{Status: StatusError, OrderID: order.ID, Message: ErrInsufficientLiquidity.Error()}
	}

	trades := book.match(&order)
	if order.Remaining.IsPositive() {
		// The liquidity counters said the sweep would complete. If it did
		// not, the book is inconsistent and must not keep running.
		panic("orderbook: market sweep exhausted a side the liquidity counters covered")
	}

	return OrderResponse{
		Status:         StatusFilled,
		OrderID:        order.ID,
		FilledQuantity: order.Quantity,
		Trades:         trades,
	}
}

// addLimit matches as far as the limit price allows and rests the residual.
func (book *OrderBook) addLimit(order common.Order) OrderResponse {
	if !order.Price.IsPositive() {
		return OrderResponse{Status: StatusError, OrderID: order.ID, Message: ErrMissingLimitPrice.Error()}
	}

	trades := book.match(&order)

	if order.Remaining.IsPositive() {
		book.addToBook(order)
		if len(trades) == 0 {
			return OrderResponse{Status: StatusPlaced, OrderID: order.ID}
		}
		return OrderResponse{
			Status:            StatusPartiallyFilled,
			OrderID:           order.ID,
			FilledQuantity:    order.Quantity.Sub(order.Remaining),
			RemainingQuantity: order.Remaining,
			Trades:            trades,
		}
	}

	return OrderResponse{
		Status:         StatusFilled,
		OrderID:        order.ID,
		FilledQuantity: order.Quantity,
		Trades:         trades,
	}
}

// match consumes liquidity from the opposite side in price-time priority.
// The taker sweeps across price levels as far as its depth and, for limit
// orders, its price allow. Makers trade at their own resting price.
func (book *OrderBook) match(taker *common.Order) []common.Trade {
	var trades []common.Trade

	var levels *PriceLevels
	switch taker.Side {
	case common.Buy:
		levels = book.asks
	case common.Sell:
		levels = book.bids
	}

	limitKey := PriceToKey(taker.Price)

	for taker.Remaining.IsPositive() {
		// Min here accounts for bids and asks being in inverse order, based
		// on their comparison method: the first level is always top of book.
		level, ok := levels.MinMut()
		if !ok {
			break
		}
		if taker.Type == common.LimitOrder && !crosses(taker.Side, limitKey, level.key) {
			break
		}

		// Queues are FIFO: match against the head. A partially filled maker
		// keeps its spot; an exhausted one is lifted off the book.
		for len(level.orders) > 0 && taker.Remaining.IsPositive() {
			maker := level.orders[0]

			matchQty := decimal.Min(taker.Remaining, maker.Remaining)
			taker.Remaining = taker.Remaining.Sub(matchQty)
			maker.Remaining = maker.Remaining.Sub(matchQty)

			if taker.Side == common.Buy {
				trades = append(trades, common.NewTrade(taker.ID, maker.ID, maker.Price, matchQty))
			} else {
				trades = append(trades, common.NewTrade(maker.ID, taker.ID, maker.Price, matchQty))
			}
			book.consumeLiquidity(maker.Side, matchQty)

			if maker.Remaining.IsPositive() {
				// min() above means the taker is spent; the maker keeps its
				// time priority at the head of the queue.
				continue
			}
			level.orders = level.orders[1:]
			delete(book.orders, maker.ID)
			book.liftOrder(maker.Side)
		}

		// A price key only stays in the tree while orders rest under it.
		if len(level.orders) == 0 {
			levels.Delete(level)
		}
	}

	return trades
}

// addToBook rests a limit order at the tail of its price level, creating the
// level if absent, and indexes the order by id.
func (book *OrderBook) addToBook(order common.Order) {
	if order.Type != common.LimitOrder || !order.Remaining.IsPositive() {
		panic("orderbook: only limit orders with volume left may rest on the book")
	}

	var levels *PriceLevels
	switch order.Side {
	case common.Buy:
		levels = book.bids
	case common.Sell:
		levels = book.asks
	}

	key := PriceToKey(order.Price)
	resting := order

	// Levels comparator only accounts for the price key, so we create a
	// dummy level for the search.
	level, ok := levels.GetMut(&PriceLevel{key: key})
	if ok {
		level.orders = append(level.orders, &resting)
	} else {
		levels.Set(&PriceLevel{
			key:    key,
			orders: []*common.Order{&resting},
		})
	}

	book.orders[resting.ID] = &resting
	switch order.Side {
	case common.Buy:
		book.nBuyOrders++
		book.buyQuantity = book.buyQuantity.Add(resting.Remaining)
	case common.Sell:
		book.nSellOrders++
		book.sellQuantity = book.sellQuantity.Add(resting.Remaining)
	}
}

// Snapshot aggregates resting volume per price level, best price first on
// both sides.
func (book *OrderBook) Snapshot() OrderbookSnapshot {
	snapshot := OrderbookSnapshot{
		Bids: make([]BookLevel, 0, book.bids.Len()),
		Asks: make([]BookLevel, 0, book.asks.Len()),
	}
	book.bids.Scan(func(level *PriceLevel) bool {
		snapshot.Bids = append(snapshot.Bids, BookLevel{
			Price:    KeyToPrice(level.key),
			Quantity: level.totalRemaining(),
		})
		return true
	})
	book.asks.Scan(func(level *PriceLevel) bool {
		snapshot.Asks = append(snapshot.Asks, BookLevel{
			Price:    KeyToPrice(level.key),
			Quantity: level.totalRemaining(),
		})
		return true
	})
	return snapshot
}

// crosses reports whether a limit taker is willing to trade at a level.
func crosses(side common.Side, limitKey, levelKey int64) bool {
	if side == common.Buy {
		return levelKey <= limitKey
	}
	return levelKey >= limitKey
}

func (book *OrderBook) consumeLiquidity(makerSide common.Side, quantity decimal.Decimal) {
	switch makerSide {
	case common.Buy:
		book.buyQuantity = book.buyQuantity.Sub(quantity)
	case common.Sell:
		book.sellQuantity = book.sellQuantity.Sub(quantity)
	}
}

func (book *OrderBook) liftOrder(makerSide common.Side) {
	switch makerSide {
	case common.Buy:
		book.nBuyOrders--
	case common.Sell:
		book.nSellOrders--
	}
}
