package arithmetic

import (
	"fmt"
	"math/big"
)

// DefaultMaxMulByConst bounds the constant that can be fused into a squaring.
// Transform-based providers keep this small because the constant participates
// in the carry propagation; the reference provider adopts the same bound so
// caller-side preconditions stay meaningful.
const DefaultMaxMulByConst = 255

// ModContext is the reference arithmetic provider, computing directly with
// math/big modular arithmetic. It is exact, so the careful façade performs
// the same computation and transform-domain hints are no-ops; what it
// preserves is the contract: operation counting, the careful-count window and
// deterministic fault injection for tests.
type ModContext struct {
	n          *big.Int
	mulByConst uint64

	ops         uint64
	fftCount    float64
	carefulLeft int

	careful *carefulFacade

	// fault injection (tests only)
	faultArmed bool
	faultOp    uint64
	faultBit   int

	t *big.Int // scratch
}

// carefulFacade routes operations through the owning context's careful path.
type carefulFacade struct {
	c *ModContext
}

// modNum is the reference residue representation.
type modNum struct {
	c *ModContext
	v *big.Int
}

// NewModContext creates a reference provider for the given odd modulus n ≥ 3.
func NewModContext(n *big.Int) (*ModContext, error) {
	if n == nil || n.Sign() <= 0 || n.BitLen() < 2 {
		return nil, fmt.Errorf("arithmetic: modulus must be at least 3, got %v", n)
	}
	if n.Bit(0) == 0 {
		return nil, fmt.Errorf("arithmetic: modulus must be odd, got even %d-bit value", n.BitLen())
	}
	c := &ModContext{
		n: new(big.Int).Set(n),
		t: new(big.Int),
	}
	c.careful = &carefulFacade{c: c}
	return c, nil
}

// New allocates a residue initialized to zero.
func (c *ModContext) New() Num {
	return &modNum{c: c, v: new(big.Int)}
}

func (c *ModContext) num(x Num) *big.Int {
	m, ok := x.(*modNum)
	if !ok || m.c != c {
		panic("arithmetic: Num does not belong to this context")
	}
	return m.v
}

// step accounts one multiplication and applies a pending fault to dst. The
// careful path never faults and never consumes the injection slot.
func (c *ModContext) step(dst *big.Int, careful bool) {
	if c.carefulLeft > 0 {
		c.carefulLeft--
		careful = true
	}
	if c.faultArmed && !careful && c.ops == c.faultOp {
		dst.Xor(dst, c.t.Lsh(big.NewInt(1), uint(c.faultBit)))
		c.faultArmed = false
	}
	c.ops++
	c.fftCount += 2 // forward and inverse transform per multiplication
}

func (c *ModContext) square(dst, src Num, flags Flag, careful bool) error {
	d, s := c.num(dst), c.num(src)
	d.Mul(s, s)
	if flags&MulByConst != 0 {
		d.Mul(d, c.t.SetUint64(c.mulByConst))
	}
	d.Mod(d, c.n)
	c.step(d, careful)
	return nil
}

func (c *ModContext) mul(dst, a, b Num, flags Flag, careful bool) error {
	d, x, y := c.num(dst), c.num(a), c.num(b)
	d.Mul(x, y)
	if flags&MulByConst != 0 {
		d.Mul(d, c.t.SetUint64(c.mulByConst))
	}
	d.Mod(d, c.n)
	c.step(d, careful)
	return nil
}

// Square computes dst = src² mod N.
func (c *ModContext) Square(dst, src Num, flags Flag) error {
	return c.square(dst, src, flags, false)
}

// Mul computes dst = a·b mod N.
func (c *ModContext) Mul(dst, a, b Num, flags Flag) error {
	return c.mul(dst, a, b, flags, false)
}

// Sub computes dst = a−b mod N.
func (c *ModContext) Sub(dst, a, b Num) error {
	d, x, y := c.num(dst), c.num(a), c.num(b)
	d.Sub(x, y)
	d.Mod(d, c.n)
	return nil
}

// SetMulByConst registers the constant fused by the MulByConst flag.
func (c *ModContext) SetMulByConst(v uint64) {
	if v > c.MaxMulByConst() {
		panic(fmt.Sprintf("arithmetic: mul-by-const %d exceeds limit %d", v, c.MaxMulByConst()))
	}
	c.mulByConst = v
}

// MaxMulByConst is the largest constant SetMulByConst accepts.
func (c *ModContext) MaxMulByConst() uint64 { return DefaultMaxMulByConst }

// Carefully returns the careful façade sharing this context's state.
func (c *ModContext) Carefully() Context { return c.careful }

// SetCarefulCount requests that the next n operations run carefully.
func (c *ModContext) SetCarefulCount(n int) { c.carefulLeft = n }

// FFTCount returns the number of transform operations performed so far.
func (c *ModContext) FFTCount() float64 { return c.fftCount }

// Ops returns the number of multiplications performed so far.
func (c *ModContext) Ops() uint64 { return c.ops }

// FFTLength returns the transform length a transform-based provider would
// use; the reference provider reports the modulus word count.
func (c *ModContext) FFTLength() int { return (c.n.BitLen() + 63) / 64 }

// FFTDescription describes the arithmetic configuration.
func (c *ModContext) FFTDescription() string {
	return fmt.Sprintf("generic modular reduction, %d-bit modulus", c.n.BitLen())
}

// NearFFTLimit always reports false: exact arithmetic has no roundoff.
func (c *ModContext) NearFFTLimit() bool { return false }

// Modulus returns the modulus N.
func (c *ModContext) Modulus() *big.Int { return new(big.Int).Set(c.n) }

// Reinit rebuilds the provider. The reference provider only clears the
// careful-count window; the operation counter is preserved.
func (c *ModContext) Reinit() error {
	c.carefulLeft = 0
	return nil
}

// InjectFault arranges for the destination of the multiplication with
// ordinal op (as counted by Ops) to have bit flipped after reduction. The
// fault is skipped if that multiplication runs through the careful path, and
// disarms after firing once.
func (c *ModContext) InjectFault(op uint64, bit int) {
	c.faultArmed = true
	c.faultOp = op
	c.faultBit = bit
}

func (f *carefulFacade) New() Num { return f.c.New() }

func (f *carefulFacade) Square(dst, src Num, flags Flag) error {
	return f.c.square(dst, src, flags, true)
}

func (f *carefulFacade) Mul(dst, a, b Num, flags Flag) error {
	return f.c.mul(dst, a, b, flags, true)
}

func (f *carefulFacade) Sub(dst, a, b Num) error { return f.c.Sub(dst, a, b) }
func (f *carefulFacade) SetMulByConst(v uint64) { f.c.SetMulByConst(v) }
func (f *carefulFacade) MaxMulByConst() uint64 { return f.c.MaxMulByConst() }
func (f *carefulFacade) Carefully() Context { return f }
func (f *carefulFacade) SetCarefulCount(n int) { f.c.SetCarefulCount(n) }
func (f *carefulFacade) FFTCount() float64 { return f.c.FFTCount() }
func (f *carefulFacade) FFTLength() int { return f.c.FFTLength() }
func (f *carefulFacade) FFTDescription() string { return f.c.FFTDescription() }
func (f *carefulFacade) NearFFTLimit() bool { return f.c.NearFFTLimit() }
func (f *carefulFacade) Modulus() *big.Int { return f.c.Modulus() }
func (f *carefulFacade) Reinit() error { return f.c.Reinit() }

// SetUint64 assigns a small value.
func (m *modNum) SetUint64(v uint64) { m.v.SetUint64(v).Mod(m.v, m.c.n) }

// SetBig assigns from an arbitrary-precision integer, reduced mod N.
func (m *modNum) SetBig(v *big.Int) { m.v.Mod(v, m.c.n) }

// Set copies another residue from the same context.
func (m *modNum) Set(src Num) { m.v.Set(m.c.num(src)) }

// Big returns the value in the natural representation.
func (m *modNum) Big() *big.Int { return new(big.Int).Set(m.v) }

// IsZero reports whether the value is congruent to zero.
func (m *modNum) IsZero() bool { return m.v.Sign() == 0 }
