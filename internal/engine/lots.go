package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"FinSim/internal/domain/models"
)

// lotQueue is the FIFO queue of open lots, kept as an arena addressed by a
// head index. Pops advance the head instead of reslicing, so consumption and
// partial splits stay O(1) amortized over a run.
type lotQueue struct {
	lots []models.Lot
	head int
}

const lotCompactThreshold = 1024

func (q *lotQueue) push(l models.Lot) {
	q.lots = append(q.lots, l)
}

func (q *lotQueue) empty() bool {
	return q.head >= len(q.lots)
}

func (q *lotQueue) front() *models.Lot {
	return &q.lots[q.head]
}

func (q *lotQueue) pop() {
	q.head++
	if q.head >= lotCompactThreshold && q.head*2 >= len(q.lots) {
		q.lots = append(q.lots[:0], q.lots[q.head:]...)
		q.head = 0
	}
}

// totalQuantity sums the open lots. The engine asserts this against
// quantity_held at every bar boundary.
func (q *lotQueue) totalQuantity() decimal.Decimal {
	total := decimal.Zero
	for i := q.head; i < len(q.lots); i++ {
		total = total.Add(q.lots[i].Quantity)
	}
	return total
}

// consume pops sellQty from the front of the queue at exitPrice, splitting
// the last touched lot when it is only partially consumed. It emits one
// MatchedTrade per distinct entry lot; each trade carries the proportional
// share of both legs' commissions. A split lot keeps the unconsumed share of
// its entry commission so later matches never double-count it.
func (q *lotQueue) consume(sellQty, exitPrice, sellCommission decimal.Decimal, exitTime time.Time) []models.MatchedTrade {
	matched := make([]models.MatchedTrade, 0, 1)
	remaining := sellQty

	for remaining.IsPositive() && !q.empty() {
		lot := q.front()

		consumed := remaining
		wholeLot := lot.Quantity.LessThanOrEqual(remaining)
		if wholeLot {
			consumed = lot.Quantity
		}

		var entryFee decimal.Decimal
		if wholeLot {
			entryFee = lot.Commission
		} else {
			entryFee = lot.Commission.Mul(consumed).Div(lot.Quantity)
		}
		exitFee := sellCommission.Mul(consumed).Div(sellQty)

		gross := exitPrice.Sub(lot.Price).Mul(consumed)
		fees := entryFee.Add(exitFee)
		matched = append(matched, models.MatchedTrade{
			EntryPrice:  lot.Price,
			ExitPrice:   exitPrice,
			Quantity:    consumed,
			EntryTime:   lot.Time,
			ExitTime:    exitTime,
			GrossPnL:    gross,
			Commissions: fees,
			RealizedPnL: gross.Sub(fees),
		})

		if wholeLot {
			q.pop()
		} else {
			lot.Quantity = lot.Quantity.Sub(consumed)
			lot.Commission = lot.Commission.Sub(entryFee)
		}
		remaining = remaining.Sub(consumed)
	}

	return matched
}
