// Package input describes the number under test and initializes the
// arithmetic context for it. Inputs are given either in the structured form
// k*b^n+c (the usual shape for primality candidates, e.g. "3*2^353+1") or as
// a plain decimal value.
package input

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/stream1972/prst/internal/arithmetic"
)

var formRE = regexp.MustCompile(`^(?:(\d+)\*)?(\d+)\^(\d+)([+-]\d+)$`)

// Number is a parsed input: the value k·b^n+c and its display form. The zero
// value is not usable; construct with Parse or FromValue.
type Number struct {
	k, c  int64
	b, n  uint64
	value *big.Int
	text  string
}

// Parse accepts "k*b^n+c" (k optional, c signed) or a plain decimal string.
func Parse(s string) (*Number, error) {
	s = strings.TrimSpace(s)
	if m := formRE.FindStringSubmatch(s); m != nil {
		k := int64(1)
		if m[1] != "" {
			var err error
			if k, err = strconv.ParseInt(m[1], 10, 64); err != nil || k < 1 {
				return nil, fmt.Errorf("input: invalid k in %q", s)
			}
		}
		b, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil || b < 2 {
			return nil, fmt.Errorf("input: invalid base in %q", s)
		}
		n, err := strconv.ParseUint(m[3], 10, 32)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("input: invalid exponent in %q", s)
		}
		c, err := strconv.ParseInt(m[4], 10, 64)
		if err != nil || c == 0 {
			return nil, fmt.Errorf("input: invalid c in %q", s)
		}
		v := new(big.Int).Exp(big.NewInt(int64(b)), new(big.Int).SetUint64(n), nil)
		v.Mul(v, big.NewInt(k))
		v.Add(v, big.NewInt(c))
		if v.BitLen() < 2 {
			return nil, fmt.Errorf("input: %q is below the minimum modulus", s)
		}
		num := &Number{k: k, b: b, n: n, c: c, value: v, text: s}
		return num, nil
	}

	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("input: cannot parse %q", s)
	}
	return FromValue(v)
}

// FromValue wraps a plain value with no structured form.
func FromValue(v *big.Int) (*Number, error) {
	if v == nil || v.Cmp(big.NewInt(3)) < 0 {
		return nil, fmt.Errorf("input: value must be at least 3")
	}
	return &Number{value: new(big.Int).Set(v), text: v.String()}, nil
}

// Value returns the number itself, which tasks use as the modulus.
func (num *Number) Value() *big.Int { return new(big.Int).Set(num.value) }

// DisplayText returns the input as the user wrote it.
func (num *Number) DisplayText() string { return num.text }

// IsStructured reports whether the input came in k*b^n+c form.
func (num *Number) IsStructured() bool { return num.b != 0 }

// K returns the multiplier k of a structured input (1 when absent).
func (num *Number) K() int64 { return num.k }

// B returns the base b of a structured input (0 for plain values).
func (num *Number) B() uint64 { return num.b }

// N returns the exponent n of a structured input.
func (num *Number) N() uint64 { return num.n }

// C returns the additive term c of a structured input.
func (num *Number) C() int64 { return num.c }

// Setup creates an arithmetic context for this number. Tasks rebuild the
// transform state on restart through the context's Reinit, not through Setup.
func (num *Number) Setup() (arithmetic.Context, error) {
	ctx, err := arithmetic.NewModContext(num.value)
	if err != nil {
		return nil, fmt.Errorf("input: %s: %w", num.text, err)
	}
	return ctx, nil
}
