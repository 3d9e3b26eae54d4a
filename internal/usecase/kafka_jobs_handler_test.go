package usecase

import (
	"context"
	"testing"
	"time"
)

func TestKafkaJobsHandlerSubmitsJob(t *testing.T) {
	uc := newOptimizeUC(&stubBarStore{bars: risingBars(60)}, newCountingMetrics())
	sink := newRecordingSink()
	m := NewJobManager(uc, 1, sink)
	h := NewKafkaJobsHandler("finsim.optimize.jobs", m, newCountingMetrics())

	if h.Topic() != "finsim.optimize.jobs" {
		t.Errorf("Topic() = %q", h.Topic())
	}

	msg := []byte(`{
		"symbol": "BTCUSDT",
		"latest_n": 60,
		"tf": "1m",
		"signaler": "const",
		"space": {"expo": {"low": 0, "high": 1}},
		"metric": "total_return",
		"policy": "brute",
		"max_iter": 4,
		"seed": 11
	}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	select {
	case <-sink.done:
	case <-time.After(5 * time.Second):
		t.Fatal("submitted job never finished")
	}
	if sink.out == nil || sink.out.Evaluated != 4 {
		t.Errorf("job outcome = %+v, want 4 evaluations", sink.out)
	}
}

func TestKafkaJobsHandlerRejectsBadPayload(t *testing.T) {
	uc := newOptimizeUC(&stubBarStore{}, newCountingMetrics())
	metrics := newCountingMetrics()
	h := NewKafkaJobsHandler("jobs", NewJobManager(uc, 1), metrics)

	if err := h.Handle(context.Background(), []byte("{not json")); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if metrics.get("error") != 1 {
		t.Errorf("error metric recorded %d times, want 1", metrics.get("error"))
	}
}
