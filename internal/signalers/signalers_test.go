package signalers

import (
	"testing"
	"time"

	"FinSim/internal/domain/models"
)

func barsFromCloses(closes []float64) []models.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			OpenTime:  start.Add(time.Duration(i) * time.Minute),
			CloseTime: start.Add(time.Duration(i+1) * time.Minute),
			Symbol:    "BTCUSDT",
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1,
		}
	}
	return bars
}

func TestSMACrossGoesLongInUptrend(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	sigs, err := NewSMACross().Signals(barsFromCloses(closes), models.Params{"fast": 3, "slow": 10})
	if err != nil {
		t.Fatalf("Signals: %v", err)
	}
	if len(sigs) != len(closes) {
		t.Fatalf("got %d signals, want %d", len(sigs), len(closes))
	}
	for i := 0; i < 9; i++ {
		if sigs[i] != 0 {
			t.Errorf("signal[%d] = %v before slow window filled, want 0", i, sigs[i])
		}
	}
	for i := 10; i < len(sigs); i++ {
		if sigs[i] != 1 {
			t.Errorf("signal[%d] = %v in a steady uptrend, want 1", i, sigs[i])
		}
	}
}

func TestSMACrossRejectsBadWindows(t *testing.T) {
	bars := barsFromCloses([]float64{1, 2, 3})
	if _, err := NewSMACross().Signals(bars, models.Params{"fast": 10, "slow": 5}); err == nil {
		t.Fatal("expected error when fast >= slow")
	}
	if _, err := NewSMACross().Signals(bars, models.Params{"fast": 0, "slow": 5}); err == nil {
		t.Fatal("expected error for zero window")
	}
}

func TestMomentumClampsAndSigns(t *testing.T) {
	closes := []float64{100, 100, 100, 200, 50}
	sigs, err := NewMomentum().Signals(barsFromCloses(closes), models.Params{"lookback": 1, "scale": 10})
	if err != nil {
		t.Fatalf("Signals: %v", err)
	}
	if sigs[3] != 1 {
		t.Errorf("big up move should clamp to 1, got %v", sigs[3])
	}
	if sigs[4] != -1 {
		t.Errorf("big down move should clamp to -1, got %v", sigs[4])
	}
	if sigs[0] != 0 {
		t.Errorf("warmup bar should be flat, got %v", sigs[0])
	}
}
