package exp

import (
	"context"
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestMultipointExp_Squarings(t *testing.T) {
	t.Parallel()
	const n = 1009
	points := []uint64{10, 25, 40}
	x0 := big.NewInt(3)

	in, gw := newTestModulus(t, n)
	var committed []uint64
	task, err := NewMultipointExp(in, gw, nil, nil, 2, points, x0, func(iteration uint64) {
		committed = append(committed, iteration)
	}, Options{})
	if err != nil {
		t.Fatalf("NewMultipointExp: %v", err)
	}
	if err := Run(context.Background(), task, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(committed) != len(points) {
		t.Fatalf("callback fired at %v, want %v", committed, points)
	}
	for i, p := range points {
		if committed[i] != p {
			t.Errorf("callback %d fired at %d, want %d", i, committed[i], p)
		}
	}
	want := refIterated(x0, 2, points[len(points)-1], big.NewInt(n))
	if got := task.State().X; got.Cmp(want) != 0 {
		t.Errorf("MultipointExp = %v, want %v", got, want)
	}
}

// The final residue must not depend on where the points fall.
func TestMultipointExp_ScheduleIndependence(t *testing.T) {
	t.Parallel()
	const n, total = 1000003, 64
	x0 := big.NewInt(5)
	want := refIterated(x0, 2, total, big.NewInt(n))

	schedules := [][]uint64{
		{total},
		{1, total},
		{7, 13, 40, total},
		{16, 32, 48, total},
	}
	for _, points := range schedules {
		in, gw := newTestModulus(t, n)
		task, err := NewMultipointExp(in, gw, nil, nil, 2, points, x0, nil, Options{})
		if err != nil {
			t.Fatalf("NewMultipointExp(%v): %v", points, err)
		}
		if err := Run(context.Background(), task, nil); err != nil {
			t.Fatalf("Run(%v): %v", points, err)
		}
		if got := task.State().X; got.Cmp(want) != 0 {
			t.Errorf("schedule %v produced %v, want %v", points, got, want)
		}
	}
}

func TestMultipointExp_GeneralBase(t *testing.T) {
	t.Parallel()
	const n = 1009
	points := []uint64{5, 15}
	x0 := big.NewInt(2)

	in, gw := newTestModulus(t, n)
	task, err := NewMultipointExp(in, gw, nil, nil, 3, points, x0, nil, Options{})
	if err != nil {
		t.Fatalf("NewMultipointExp: %v", err)
	}
	if err := Run(context.Background(), task, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 2^(3^15) mod 1009
	want := refIterated(x0, 3, 15, big.NewInt(n))
	if got := task.State().X; got.Cmp(want) != 0 {
		t.Errorf("MultipointExp = %v, want %v", got, want)
	}
}

func TestMultipointExp_PointValidation(t *testing.T) {
	t.Parallel()
	in, gw := newTestModulus(t, 1009)

	cases := [][]uint64{
		nil,
		{},
		{0, 5},
		{5, 5},
		{10, 4},
	}
	for _, points := range cases {
		if _, err := NewMultipointExp(in, gw, nil, nil, 2, points, big.NewInt(3), nil, Options{}); err == nil {
			t.Errorf("expected error for schedule %v", points)
		}
	}
}

func TestWindowWidth(t *testing.T) {
	t.Parallel()

	t.Run("grows with the exponent", func(t *testing.T) {
		t.Parallel()
		small := windowWidth(8, 0, 0)
		large := windowWidth(1_000_000, 0, 0)
		if small < 2 || large < small {
			t.Errorf("windowWidth(8) = %d, windowWidth(1e6) = %d", small, large)
		}
	})

	t.Run("respects the explicit cap", func(t *testing.T) {
		t.Parallel()
		if w := windowWidth(1_000_000, 3, 0); w > 3 {
			t.Errorf("windowWidth = %d, want ≤ 3", w)
		}
	})

	t.Run("respects the table-size cap", func(t *testing.T) {
		t.Parallel()
		w := windowWidth(1_000_000, 0, 16)
		if 1<<(w+1) > 16 {
			t.Errorf("windowWidth = %d violates 2^(W+1) ≤ 16", w)
		}
	})

	t.Run("never below 2", func(t *testing.T) {
		t.Parallel()
		if w := windowWidth(0, 0, 0); w < 2 {
			t.Errorf("windowWidth = %d, want ≥ 2", w)
		}
	})
}

// TestSlidingWindow_PropertyBased exercises the windowed path with random
// bases and distances, comparing against the standard library.
func TestSlidingWindow_PropertyBased(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 60
	properties := gopter.NewProperties(parameters)

	properties.Property("multipoint(b, [k]) ≡ x0^(b^k) mod N", prop.ForAll(
		func(bRaw, kRaw, xRaw uint64) bool {
			b := bRaw%29 + 3     // 3..31, skips the pure-squaring path
			k := kRaw%40 + 1     // 1..40 iterations
			x0 := int64(xRaw%1000) + 2
			const n = 1000003

			in, gw := newTestModulus(t, n)
			task, err := NewMultipointExp(in, gw, nil, nil, b, []uint64{k}, big.NewInt(x0), nil, Options{})
			if err != nil {
				t.Logf("NewMultipointExp(b=%d, k=%d): %v", b, k, err)
				return false
			}
			if err := Run(context.Background(), task, nil); err != nil {
				t.Logf("Run(b=%d, k=%d): %v", b, k, err)
				return false
			}
			want := refIterated(big.NewInt(x0), b, k, big.NewInt(n))
			return task.State().X.Cmp(want) == 0
		},
		gen.UInt64(),
		gen.UInt64(),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
