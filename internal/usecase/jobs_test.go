package usecase

import (
	"testing"
	"time"

	"FinSim/internal/optimize"
)

func smallJobParams() OptimizeParams {
	return OptimizeParams{
		Symbol:   "BTCUSDT",
		LatestN:  60,
		Signaler: "const",
		Space:    optimize.Space{"expo": optimize.Interval(0, 1)},
		Metric:   MetricTotalReturn,
		MaxIter:  5,
		Seed:     3,
	}
}

func waitForState(t *testing.T, m *JobManager, id, state string) JobStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st, err := m.Status(id)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if st.State == state {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	st, _ := m.Status(id)
	t.Fatalf("job %s never reached state %q, stuck at %q", id, state, st.State)
	return JobStatus{}
}

func TestJobManagerRunsToCompletion(t *testing.T) {
	uc := newOptimizeUC(&stubBarStore{bars: risingBars(60)}, newCountingMetrics())
	m := NewJobManager(uc, 2)

	id := m.Submit(smallJobParams())
	st := waitForState(t, m, id, JobDone)

	if st.Outcome == nil {
		t.Fatal("finished job has no outcome")
	}
	if st.Outcome.Evaluated != 5 {
		t.Errorf("Evaluated = %d, want 5", st.Outcome.Evaluated)
	}
	if st.Evaluated != 5 {
		t.Errorf("status Evaluated = %d, want 5", st.Evaluated)
	}
	if st.StartedAt == nil || st.FinishedAt == nil {
		t.Error("timestamps missing on finished job")
	}
}

func TestJobManagerFailedJob(t *testing.T) {
	uc := newOptimizeUC(&stubBarStore{bars: risingBars(10)}, newCountingMetrics())
	m := NewJobManager(uc, 1)

	p := smallJobParams()
	p.Signaler = "missing"
	id := m.Submit(p)
	st := waitForState(t, m, id, JobFailed)
	if st.Error == "" {
		t.Error("failed job carries no error message")
	}
}

func TestSubmitReportsEffectivePolicy(t *testing.T) {
	uc := newOptimizeUC(&stubBarStore{bars: risingBars(60)}, newCountingMetrics())
	m := NewJobManager(uc, 1)

	p := smallJobParams()
	p.Policy = ""
	id := m.Submit(p)

	st, err := m.Status(id)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	// A blank policy runs brute force, and the snapshot says so.
	if st.Policy != optimize.PolicyBrute {
		t.Errorf("Policy = %q, want %q", st.Policy, optimize.PolicyBrute)
	}
	waitForState(t, m, id, JobDone)
}

func TestJobManagerUnknownJob(t *testing.T) {
	uc := newOptimizeUC(&stubBarStore{}, newCountingMetrics())
	m := NewJobManager(uc, 1)

	if _, err := m.Status("nope"); err == nil {
		t.Error("Status on unknown id should error")
	}
	if err := m.Cancel("nope"); err == nil {
		t.Error("Cancel on unknown id should error")
	}
	if _, _, err := m.Subscribe("nope"); err == nil {
		t.Error("Subscribe on unknown id should error")
	}
}

func TestJobManagerSubscribeStreamsTrials(t *testing.T) {
	uc := newOptimizeUC(&stubBarStore{bars: risingBars(60)}, newCountingMetrics())
	m := NewJobManager(uc, 1)

	id := m.Submit(smallJobParams())
	ch, detach, err := m.Subscribe(id)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer detach()

	var got int
	for range ch {
		got++
	}
	// The subscription races job startup, so some leading trials may be
	// missed but never more than the total.
	if got > 5 {
		t.Errorf("received %d trials, job only ran 5", got)
	}
	waitForState(t, m, id, JobDone)
}

func TestJobManagerSubscribeAfterFinish(t *testing.T) {
	uc := newOptimizeUC(&stubBarStore{bars: risingBars(60)}, newCountingMetrics())
	m := NewJobManager(uc, 1)

	id := m.Submit(smallJobParams())
	waitForState(t, m, id, JobDone)

	ch, detach, err := m.Subscribe(id)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer detach()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("channel for a finished job should be closed, got a value")
		}
	case <-time.After(time.Second):
		t.Error("channel for a finished job should close immediately")
	}
}

func TestJobManagerFansOutToSinks(t *testing.T) {
	uc := newOptimizeUC(&stubBarStore{bars: risingBars(60)}, newCountingMetrics())
	sink := newRecordingSink()
	m := NewJobManager(uc, 1, sink)

	m.Submit(smallJobParams())
	select {
	case <-sink.done:
	case <-time.After(5 * time.Second):
		t.Fatal("sink never received Done")
	}
	if sink.trialCount() != 5 {
		t.Errorf("sink saw %d trials, want 5", sink.trialCount())
	}
	if sink.err != nil {
		t.Errorf("sink Done carried error: %v", sink.err)
	}
}

func TestJobManagerListNewestFirst(t *testing.T) {
	uc := newOptimizeUC(&stubBarStore{bars: risingBars(60)}, newCountingMetrics())
	m := NewJobManager(uc, 2)

	first := m.Submit(smallJobParams())
	second := m.Submit(smallJobParams())
	waitForState(t, m, first, JobDone)
	waitForState(t, m, second, JobDone)

	all := m.List(10, time.Time{})
	if len(all) != 2 {
		t.Fatalf("List returned %d jobs, want 2", len(all))
	}
	if all[0].CreatedAt.Before(all[1].CreatedAt) {
		t.Error("List is not sorted newest first")
	}

	if got := m.List(1, time.Time{}); len(got) != 1 {
		t.Errorf("List with limit 1 returned %d jobs", len(got))
	}
	if got := m.List(10, time.Now().Add(time.Hour)); len(got) != 0 {
		t.Errorf("List with future since returned %d jobs", len(got))
	}
}
