package engine

import (
	"context"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"skoll/internal/common"
)

// This is the main matching engine. One goroutine owns the order book and
// consumes commands off a bounded queue, so the book never needs a lock:
// producers are linearized at the queue and every command runs to completion
// before the next is picked up.

const CommandChanSize = 100

type Engine struct {
	book     *OrderBook
	commands chan Command
}

func New() *Engine {
	return &Engine{
		book:     NewOrderBook(),
		commands: make(chan Command, CommandChanSize),
	}
}

// Run is the consumer loop. It exits when the command queue is closed (no
// producers remain) or the tomb starts dying.
func (e *Engine) Run(t *tomb.Tomb) error {
	log.Info().Msg("engine starting")
	for {
		select {
		case <-t.Dying():
			return nil
		case cmd, ok := <-e.commands:
			if !ok {
				log.Info().Msg("engine command queue closed")
				return nil
			}
			e.handle(cmd)
		}
	}
}

// Close stops the engine once all producers are done submitting. Submitting
// after Close is a programming error.
func (e *Engine) Close() {
	close(e.commands)
}

func (e *Engine) handle(cmd Command) {
	switch c := cmd.(type) {
	case AddOrderCommand:
		response := e.book.AddOrder(c.Order)
		log.Debug().
			Str("orderId", c.Order.ID).
			Stringer("status", response.Status).
			Int("trades", len(response.Trades)).
			Uint64("restingBids", e.book.nBuyOrders).
			Uint64("restingAsks", e.book.nSellOrders).
			Msg("order processed")
		// A producer that gave up on its reply just loses it.
		select {
		case c.Reply <- response:
		default:
		}
	case SnapshotCommand:
		select {
		case c.Reply <- e.book.Snapshot():
		default:
		}
	}
}

// AddOrder is the producer-side convenience: it enqueues the order, blocking
// while the queue is full, and waits for the engine's reply. The context
// bounds both waits.
func (e *Engine) AddOrder(ctx context.Context, order common.Order) (OrderResponse, error) {
	if err := ctx.Err(); err != nil {
		return OrderResponse{}, err
	}
	reply := make(chan OrderResponse, 1)
	select {
	case e.commands <- AddOrderCommand{Order: order, Reply: reply}:
	case <-ctx.Done():
		return OrderResponse{}, ctx.Err()
	}
	select {
	case response := <-reply:
		return response, nil
	case <-ctx.Done():
		return OrderResponse{}, ctx.Err()
	}
}

// Snapshot requests an aggregated view of the book through the command
// queue, so it observes a consistent point in time.
func (e *Engine) Snapshot(ctx context.Context) (OrderbookSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return OrderbookSnapshot{}, err
	}
	reply := make(chan OrderbookSnapshot, 1)
	select {
	case e.commands <- SnapshotCommand{Reply: reply}:
	case <-ctx.Done():
		return OrderbookSnapshot{}, ctx.Err()
	}
	select {
	case snapshot := <-reply:
		return snapshot, nil
	case <-ctx.Done():
		return OrderbookSnapshot{}, ctx.Err()
	}
}
