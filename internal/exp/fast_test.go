package exp

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/stream1972/prst/internal/state"
)

func TestFastExp_SmallModulus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		n    int64
		x0   uint64
		exp  int64
	}{
		{"3^17 mod 1009", 1009, 3, 17},
		{"5^100 mod 1009", 1009, 5, 100},
		{"3^2 mod 97", 97, 3, 2},
		{"7^1 mod 97", 97, 7, 1},
		{"2^65537 mod 1000003", 1000003, 2, 65537},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in, gw := newTestModulus(t, tt.n)
			task, err := NewFastExp(in, gw, nil, nil, tt.x0, big.NewInt(tt.exp), Options{})
			if err != nil {
				t.Fatalf("NewFastExp: %v", err)
			}
			if err := Run(context.Background(), task, nil); err != nil {
				t.Fatalf("Run: %v", err)
			}
			want := refExp(new(big.Int).SetUint64(tt.x0), big.NewInt(tt.exp), big.NewInt(tt.n))
			if got := task.State().X; got.Cmp(want) != 0 {
				t.Errorf("FastExp = %v, want %v", got, want)
			}
		})
	}
}

func TestFastExp_BaseTooLarge(t *testing.T) {
	t.Parallel()
	in, gw := newTestModulus(t, 1009)
	if _, err := NewFastExp(in, gw, nil, nil, gw.MaxMulByConst()+1, big.NewInt(17), Options{}); err == nil {
		t.Error("expected error for base above the mul-by-const limit")
	}
}

func TestFastExp_ResumeFromCheckpoint(t *testing.T) {
	t.Parallel()
	const n, x0 = 1009, 3
	exponent := big.NewInt(123456789)

	in, gw := newTestModulus(t, n)
	file := state.NewFile(filepath.Join(t.TempDir(), "fast.ckpt"))

	// Seed the checkpoint with the residue a clean run holds after k
	// iterations: X = x0^(exp >> (len-k)).
	length := uint64(exponent.BitLen() - 1)
	k := length / 2
	partial := new(big.Int).Rsh(exponent, uint(length-k))
	if err := file.WriteState(state.NewState(k, refExp(big.NewInt(x0), partial, big.NewInt(n)))); err != nil {
		t.Fatalf("seeding checkpoint: %v", err)
	}

	task, err := NewFastExp(in, gw, file, nil, x0, exponent, Options{})
	if err != nil {
		t.Fatalf("NewFastExp: %v", err)
	}
	if err := Run(context.Background(), task, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := refExp(big.NewInt(x0), exponent, big.NewInt(n))
	if got := task.State().X; got.Cmp(want) != 0 {
		t.Errorf("resumed FastExp = %v, want %v", got, want)
	}
	if ops := gw.Ops(); ops > length-k+startupCarefulMuls {
		t.Errorf("resumed run performed %d multiplications, expected about %d", ops, length-k)
	}
}

func TestFastExp_Canceled(t *testing.T) {
	t.Parallel()
	in, gw := newTestModulus(t, 1009)
	task, err := NewFastExp(in, gw, nil, nil, 3, big.NewInt(1<<62), Options{})
	if err != nil {
		t.Fatalf("NewFastExp: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Run(ctx, task, nil); err == nil {
		t.Error("expected error from canceled context")
	}
}

// TestFastExp_MatchesReference_PropertyBased verifies FastExp against the
// standard library for randomly drawn moduli and exponents.
func TestFastExp_MatchesReference_PropertyBased(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)

	properties.Property("FastExp(x0, e) ≡ x0^e mod N", prop.ForAll(
		func(nRaw, eRaw uint64) bool {
			n := int64(nRaw%1_000_000)*2 + 3 // odd, ≥ 3
			e := int64(eRaw%100_000) + 1
			in, gw := newTestModulus(t, n)
			task, err := NewFastExp(in, gw, nil, nil, 3, big.NewInt(e), Options{})
			if err != nil {
				t.Logf("NewFastExp(n=%d, e=%d): %v", n, e, err)
				return false
			}
			if err := Run(context.Background(), task, nil); err != nil {
				t.Logf("Run(n=%d, e=%d): %v", n, e, err)
				return false
			}
			want := refExp(big.NewInt(3), big.NewInt(e), big.NewInt(n))
			return task.State().X.Cmp(want) == 0
		},
		gen.UInt64(),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
