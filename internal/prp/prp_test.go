package prp

import (
	"context"
	"math/big"
	"testing"

	"github.com/stream1972/prst/internal/input"
)

func mustParse(t *testing.T, s string) *input.Number {
	t.Helper()
	in, err := input.Parse(s)
	if err != nil {
		t.Fatalf("input.Parse(%q): %v", s, err)
	}
	return in
}

func TestTest_Verdicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		prp     bool
		checked bool
	}{
		{"3*2^5+1", true, true},    // 97, prime, Gerbicz path
		{"5*2^7+1", true, true},    // 641, prime
		{"9*2^4+1", false, true},   // 145 = 5·29
		{"97", true, false},        // plain decimal, fast path
		{"15", false, false},       // 3·5
		{"3*2^2-1", true, false},   // 11, prime, c = −1 leaves the fast path
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			in := mustParse(t, tt.input)
			res, err := Test(context.Background(), in, nil, Config{Base: 3, Points: 4})
			if err != nil {
				t.Fatalf("Test: %v", err)
			}
			// The Fermat verdict must agree with the reference computation.
			N := in.Value()
			ref := new(big.Int).Exp(big.NewInt(3), new(big.Int).Sub(N, big.NewInt(1)), N)
			wantPRP := ref.Cmp(big.NewInt(1)) == 0
			if res.ProbablePrime != wantPRP {
				t.Errorf("ProbablePrime = %v, reference says %v", res.ProbablePrime, wantPRP)
			}
			if tt.prp != wantPRP {
				t.Fatalf("test fixture is wrong: %s expected prp=%v but reference says %v", tt.input, tt.prp, wantPRP)
			}
			if res.Checked != tt.checked {
				t.Errorf("Checked = %v, want %v", res.Checked, tt.checked)
			}
		})
	}
}

func TestTest_Res64(t *testing.T) {
	t.Parallel()
	in := mustParse(t, "97")
	res, err := Test(context.Background(), in, nil, Config{Base: 3, Points: 2})
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if res.Res64 != "0000000000000001" {
		t.Errorf("Res64 of a passing test = %q, want all-but-lowest-bit zero", res.Res64)
	}
}

func TestTest_NoGerbicz(t *testing.T) {
	t.Parallel()
	in := mustParse(t, "3*2^5+1")
	res, err := Test(context.Background(), in, nil, Config{Base: 3, Points: 2, NoGerbicz: true})
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if res.Checked {
		t.Error("Checked = true with NoGerbicz set")
	}
	if !res.ProbablePrime {
		t.Error("97 must remain a probable prime on the unchecked path")
	}
}

func TestTest_LargeBaseFallsBackToSlowExp(t *testing.T) {
	t.Parallel()
	in := mustParse(t, "97")
	res, err := Test(context.Background(), in, nil, Config{Base: 1000, Points: 2})
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if res.Task != "slow" {
		t.Errorf("Task = %q, want the slow strategy for an oversized base", res.Task)
	}
	if !res.ProbablePrime {
		t.Error("97 must pass the Fermat test for base 1000")
	}
}

func TestTest_BadBase(t *testing.T) {
	t.Parallel()
	in := mustParse(t, "97")
	if _, err := Test(context.Background(), in, nil, Config{Base: 1}); err == nil {
		t.Error("expected error for base below 2")
	}
}

func TestPointSchedule(t *testing.T) {
	t.Parallel()

	t.Run("ends at n and strictly increases", func(t *testing.T) {
		t.Parallel()
		points := pointSchedule(1000, 8)
		if points[len(points)-1] != 1000 {
			t.Errorf("last point = %d, want 1000", points[len(points)-1])
		}
		for i := 1; i < len(points); i++ {
			if points[i] <= points[i-1] {
				t.Errorf("schedule not strictly increasing: %v", points)
			}
		}
	})

	t.Run("collapses when n is small", func(t *testing.T) {
		t.Parallel()
		points := pointSchedule(3, 8)
		if points[len(points)-1] != 3 || len(points) > 3 {
			t.Errorf("pointSchedule(3, 8) = %v", points)
		}
	})
}
