package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"FinSim/internal/domain/models"
)

func lot(qty, price, commission float64, at time.Time) models.Lot {
	return models.Lot{
		Quantity:   decimal.NewFromFloat(qty),
		Price:      decimal.NewFromFloat(price),
		Time:       at,
		Commission: decimal.NewFromFloat(commission),
	}
}

func TestConsumeFIFOWithSplit(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)

	var q lotQueue
	q.push(lot(1.0, 100, 0.1, t0))
	q.push(lot(1.0, 200, 0.2, t1))

	exit := decimal.NewFromInt(250)
	sellFee := decimal.NewFromFloat(0.375) // 250 * 1.5 * 0.001
	matched := q.consume(decimal.NewFromFloat(1.5), exit, sellFee, t1.Add(time.Minute))

	if len(matched) != 2 {
		t.Fatalf("matched = %d, want 2", len(matched))
	}
	if !matched[0].EntryPrice.Equal(decimal.NewFromInt(100)) || !matched[0].Quantity.Equal(decimal.NewFromFloat(1.0)) {
		t.Fatalf("first match entry=%s qty=%s, want 100/1.0", matched[0].EntryPrice, matched[0].Quantity)
	}
	if !matched[1].EntryPrice.Equal(decimal.NewFromInt(200)) || !matched[1].Quantity.Equal(decimal.NewFromFloat(0.5)) {
		t.Fatalf("second match entry=%s qty=%s, want 200/0.5", matched[1].EntryPrice, matched[1].Quantity)
	}
	if matched[0].EntryTime != t0 || matched[1].EntryTime != t1 {
		t.Fatalf("entry times not FIFO: %v / %v", matched[0].EntryTime, matched[1].EntryTime)
	}

	// The split lot keeps the leftover half quantity and half its entry fee.
	if q.empty() {
		t.Fatalf("queue drained, expected a split remainder")
	}
	rest := q.front()
	if !rest.Quantity.Equal(decimal.NewFromFloat(0.5)) {
		t.Fatalf("remainder qty %s, want 0.5", rest.Quantity)
	}
	if !rest.Commission.Equal(decimal.NewFromFloat(0.1)) {
		t.Fatalf("remainder commission %s, want 0.1", rest.Commission)
	}
	if !q.totalQuantity().Equal(decimal.NewFromFloat(0.5)) {
		t.Fatalf("total quantity %s, want 0.5", q.totalQuantity())
	}
}

func TestConsumeProportionalFees(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var q lotQueue
	q.push(lot(2.0, 100, 0.4, t0))

	exit := decimal.NewFromInt(110)
	sellFee := decimal.NewFromFloat(0.11)
	matched := q.consume(decimal.NewFromFloat(1.0), exit, sellFee, t0.Add(time.Minute))

	if len(matched) != 1 {
		t.Fatalf("matched = %d, want 1", len(matched))
	}
	// Half the lot consumed: half the entry fee plus the whole sell fee.
	wantFees := decimal.NewFromFloat(0.31)
	if !matched[0].Commissions.Equal(wantFees) {
		t.Fatalf("fees %s, want %s", matched[0].Commissions, wantFees)
	}
	wantPnL := decimal.NewFromFloat(10).Sub(wantFees)
	if !matched[0].RealizedPnL.Equal(wantPnL) {
		t.Fatalf("pnl %s, want %s", matched[0].RealizedPnL, wantPnL)
	}
}

func TestArenaCompaction(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var q lotQueue
	n := lotCompactThreshold * 3
	for i := 0; i < n; i++ {
		q.push(lot(1, 100, 0, t0))
	}
	for i := 0; i < n-1; i++ {
		q.consume(decimal.NewFromInt(1), decimal.NewFromInt(100), decimal.Zero, t0)
	}
	if q.empty() {
		t.Fatalf("queue should hold one lot")
	}
	if !q.totalQuantity().Equal(decimal.NewFromInt(1)) {
		t.Fatalf("total %s, want 1", q.totalQuantity())
	}
	if len(q.lots)-q.head != 1 {
		t.Fatalf("arena not compacted: len=%d head=%d", len(q.lots), q.head)
	}
}
