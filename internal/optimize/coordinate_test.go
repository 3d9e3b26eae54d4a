package optimize

import (
	"context"
	"math"
	"testing"

	"FinSim/internal/domain/models"
)

func TestCoordinateConvergesOnQuadratic(t *testing.T) {
	space := Space{"x": Interval(-10, 10), "y": Interval(-10, 10)}
	obj := func(_ context.Context, p models.Params, _ float64) (float64, error) {
		dx := p["x"] - 3
		dy := p["y"] + 2
		return -(dx*dx + dy*dy), nil
	}
	out, err := Search(context.Background(), obj, space, Options{
		Policy:          PolicyCoordinate,
		MaxIter:         300,
		GreaterIsBetter: true,
		Patience:        4,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if math.Abs(out.BestParams["x"]-3) > 0.5 {
		t.Fatalf("x = %v, want near 3", out.BestParams["x"])
	}
	if math.Abs(out.BestParams["y"]+2) > 0.5 {
		t.Fatalf("y = %v, want near -2", out.BestParams["y"])
	}
}

func TestCoordinateScansEveryChoice(t *testing.T) {
	space := Space{"mode": Choice(1, 2, 3, 4)}
	seen := map[float64]bool{}
	obj := func(_ context.Context, p models.Params, _ float64) (float64, error) {
		seen[p["mode"]] = true
		return -math.Abs(p["mode"] - 3), nil
	}
	out, err := Search(context.Background(), obj, space, Options{
		Policy:          PolicyCoordinate,
		MaxIter:         50,
		GreaterIsBetter: true,
		Patience:        1,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, v := range []float64{1, 2, 3, 4} {
		if !seen[v] {
			t.Fatalf("choice %v never evaluated", v)
		}
	}
	if out.BestParams["mode"] != 3 {
		t.Fatalf("best mode = %v, want 3", out.BestParams["mode"])
	}
}

func TestCoordinatePatienceCountsCycles(t *testing.T) {
	space := Space{"a": Interval(0, 1), "b": Interval(0, 1)}
	flat := func(_ context.Context, _ models.Params, _ float64) (float64, error) {
		return 1, nil
	}
	out, err := Search(context.Background(), flat, space, Options{
		Policy:          PolicyCoordinate,
		MaxIter:         500,
		GreaterIsBetter: true,
		Patience:        2,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if out.Stopped != StoppedPatience {
		t.Fatalf("stopped = %q, want %q", out.Stopped, StoppedPatience)
	}
	// Two dimensions at five scan points each bound a cycle at ten
	// evaluations, with duplicates collapsing some of them.
	if out.Evaluated > 30 {
		t.Fatalf("evaluated %d trials, expected three cycles at most", out.Evaluated)
	}
}

func TestCoordinateIntegerDimension(t *testing.T) {
	space := Space{"n": Interval(1, 9)}
	obj := func(_ context.Context, p models.Params, _ float64) (float64, error) {
		return -math.Abs(p["n"] - 6), nil
	}
	out, err := Search(context.Background(), obj, space, Options{
		Policy:          PolicyCoordinate,
		MaxIter:         100,
		GreaterIsBetter: true,
		Patience:        2,
		IntParams:       []string{"n"},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if out.BestParams["n"] != 6 {
		t.Fatalf("best n = %v, want 6", out.BestParams["n"])
	}
	for _, tr := range out.History {
		if tr.Params["n"] != math.Trunc(tr.Params["n"]) {
			t.Fatalf("non-integral value %v proposed for integer dimension", tr.Params["n"])
		}
	}
}
