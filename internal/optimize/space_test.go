package optimize

import (
	"errors"
	"math"
	"testing"
)

func TestSpaceValidate(t *testing.T) {
	if err := (Space{}).validate(); !errors.Is(err, ErrEmptySpace) {
		t.Fatalf("empty space: got %v, want ErrEmptySpace", err)
	}

	bad := Space{"x": Interval(5, 5)}
	if err := bad.validate(); !errors.Is(err, ErrBadDimension) {
		t.Fatalf("degenerate interval: got %v, want ErrBadDimension", err)
	}

	bad = Space{"x": Interval(math.NaN(), 1)}
	if err := bad.validate(); !errors.Is(err, ErrBadDimension) {
		t.Fatalf("NaN bound: got %v, want ErrBadDimension", err)
	}

	ok := Space{"x": Interval(0, 1), "y": Choice(1, 2, 3)}
	if err := ok.validate(); err != nil {
		t.Fatalf("valid space: unexpected error %v", err)
	}
}

func TestSpaceNamesSorted(t *testing.T) {
	s := Space{"zeta": Interval(0, 1), "alpha": Interval(0, 1), "mid": Choice(1)}
	names := s.Names()
	want := []string{"alpha", "mid", "zeta"}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("names[%d] = %q, want %q", i, names[i], n)
		}
	}
}

func TestSampleDimIntegerInterval(t *testing.T) {
	d := Interval(1, 4)
	rng := rngFor(7, 0)
	for i := 0; i < 200; i++ {
		v := sampleDim(rng, d, true)
		if v != math.Trunc(v) {
			t.Fatalf("integer draw %v is not integral", v)
		}
		if v < 1 || v > 4 {
			t.Fatalf("integer draw %v outside [1, 4]", v)
		}
	}
}

func TestSampleDimContinuousBounds(t *testing.T) {
	d := Interval(-2.5, 2.5)
	rng := rngFor(7, 1)
	for i := 0; i < 200; i++ {
		v := sampleDim(rng, d, false)
		if v < -2.5 || v >= 2.5 {
			t.Fatalf("draw %v outside [-2.5, 2.5)", v)
		}
	}
}

func TestClampDim(t *testing.T) {
	if got := clampDim(7.2, Interval(0, 5), false); got != 5 {
		t.Fatalf("clamp above: got %v, want 5", got)
	}
	if got := clampDim(-1, Interval(0, 5), false); got != 0 {
		t.Fatalf("clamp below: got %v, want 0", got)
	}
	if got := clampDim(2.6, Interval(0, 5), true); got != 3 {
		t.Fatalf("integer rounding: got %v, want 3", got)
	}
	if got := clampDim(6.1, Choice(1, 5, 9), false); got != 5 {
		t.Fatalf("nearest choice: got %v, want 5", got)
	}
}
