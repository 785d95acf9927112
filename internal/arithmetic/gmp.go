//go:build gmp

// This file provides a GMP-backed arithmetic provider, conditionally compiled
// with the "gmp" build tag. The build tag architecture ensures that:
//   - The module builds without GMP (the default, using math/big)
//   - GMP support is opt-in, requiring: go build -tags=gmp
//   - The codebase remains portable across systems without libgmp installed
//
// System Requirements for GMP:
//   - Linux: sudo apt-get install libgmp-dev (Debian/Ubuntu)
//   - macOS: brew install gmp

package arithmetic

import (
	"fmt"
	"math/big"

	"github.com/ncw/gmp"
)

// GMPContext is an arithmetic provider backed by GMP's optimized C routines.
// Like ModContext it is exact; it exists for throughput on multi-million-bit
// moduli where GMP's assembly kernels outperform math/big.
type GMPContext struct {
	n          *gmp.Int
	nBig       *big.Int
	mulByConst uint64

	ops         uint64
	fftCount    float64
	carefulLeft int

	careful *gmpCarefulFacade

	t *gmp.Int
}

type gmpCarefulFacade struct {
	c *GMPContext
}

type gmpNum struct {
	c *GMPContext
	v *gmp.Int
}

// NewGMPContext creates a GMP-backed provider for the given odd modulus n ≥ 3.
func NewGMPContext(n *big.Int) (*GMPContext, error) {
	if n == nil || n.Sign() <= 0 || n.BitLen() < 2 {
		return nil, fmt.Errorf("arithmetic: modulus must be at least 3, got %v", n)
	}
	if n.Bit(0) == 0 {
		return nil, fmt.Errorf("arithmetic: modulus must be odd, got even %d-bit value", n.BitLen())
	}
	c := &GMPContext{
		n:    new(gmp.Int).SetBytes(n.Bytes()),
		nBig: new(big.Int).Set(n),
		t:    gmp.NewInt(0),
	}
	c.careful = &gmpCarefulFacade{c: c}
	return c, nil
}

// New allocates a residue initialized to zero.
func (c *GMPContext) New() Num {
	return &gmpNum{c: c, v: gmp.NewInt(0)}
}

func (c *GMPContext) num(x Num) *gmp.Int {
	m, ok := x.(*gmpNum)
	if !ok || m.c != c {
		panic("arithmetic: Num does not belong to this context")
	}
	return m.v
}

func (c *GMPContext) step() {
	if c.carefulLeft > 0 {
		c.carefulLeft--
	}
	c.ops++
	c.fftCount += 2
}

// Square computes dst = src² mod N.
func (c *GMPContext) Square(dst, src Num, flags Flag) error {
	d, s := c.num(dst), c.num(src)
	d.Mul(s, s)
	if flags&MulByConst != 0 {
		d.Mul(d, c.t.SetUint64(c.mulByConst))
	}
	d.Mod(d, c.n)
	c.step()
	return nil
}

// Mul computes dst = a·b mod N.
func (c *GMPContext) Mul(dst, a, b Num, flags Flag) error {
	d, x, y := c.num(dst), c.num(a), c.num(b)
	d.Mul(x, y)
	if flags&MulByConst != 0 {
		d.Mul(d, c.t.SetUint64(c.mulByConst))
	}
	d.Mod(d, c.n)
	c.step()
	return nil
}

// Sub computes dst = a−b mod N.
func (c *GMPContext) Sub(dst, a, b Num) error {
	d, x, y := c.num(dst), c.num(a), c.num(b)
	d.Sub(x, y)
	d.Mod(d, c.n)
	return nil
}

// SetMulByConst registers the constant fused by the MulByConst flag.
func (c *GMPContext) SetMulByConst(v uint64) {
	if v > c.MaxMulByConst() {
		panic(fmt.Sprintf("arithmetic: mul-by-const %d exceeds limit %d", v, c.MaxMulByConst()))
	}
	c.mulByConst = v
}

// MaxMulByConst is the largest constant SetMulByConst accepts.
func (c *GMPContext) MaxMulByConst() uint64 { return DefaultMaxMulByConst }

// Carefully returns the careful façade sharing this context's state.
func (c *GMPContext) Carefully() Context { return c.careful }

// SetCarefulCount requests that the next n operations run carefully.
func (c *GMPContext) SetCarefulCount(n int) { c.carefulLeft = n }

// FFTCount returns the number of transform operations performed so far.
func (c *GMPContext) FFTCount() float64 { return c.fftCount }

// FFTLength reports the modulus word count.
func (c *GMPContext) FFTLength() int { return (c.nBig.BitLen() + 63) / 64 }

// FFTDescription describes the arithmetic configuration.
func (c *GMPContext) FFTDescription() string {
	return fmt.Sprintf("GMP modular reduction, %d-bit modulus", c.nBig.BitLen())
}

// NearFFTLimit always reports false: exact arithmetic has no roundoff.
func (c *GMPContext) NearFFTLimit() bool { return false }

// Modulus returns the modulus N.
func (c *GMPContext) Modulus() *big.Int { return new(big.Int).Set(c.nBig) }

// Reinit clears the careful-count window; the operation counter is preserved.
func (c *GMPContext) Reinit() error {
	c.carefulLeft = 0
	return nil
}

func (f *gmpCarefulFacade) New() Num { return f.c.New() }
func (f *gmpCarefulFacade) Square(dst, src Num, flags Flag) error { return f.c.Square(dst, src, flags) }
func (f *gmpCarefulFacade) Mul(dst, a, b Num, flags Flag) error { return f.c.Mul(dst, a, b, flags) }
func (f *gmpCarefulFacade) Sub(dst, a, b Num) error { return f.c.Sub(dst, a, b) }
func (f *gmpCarefulFacade) SetMulByConst(v uint64) { f.c.SetMulByConst(v) }
func (f *gmpCarefulFacade) MaxMulByConst() uint64 { return f.c.MaxMulByConst() }
func (f *gmpCarefulFacade) Carefully() Context { return f }
func (f *gmpCarefulFacade) SetCarefulCount(n int) { f.c.SetCarefulCount(n) }
func (f *gmpCarefulFacade) FFTCount() float64 { return f.c.FFTCount() }
func (f *gmpCarefulFacade) FFTLength() int { return f.c.FFTLength() }
func (f *gmpCarefulFacade) FFTDescription() string { return f.c.FFTDescription() }
func (f *gmpCarefulFacade) NearFFTLimit() bool { return f.c.NearFFTLimit() }
func (f *gmpCarefulFacade) Modulus() *big.Int { return f.c.Modulus() }
func (f *gmpCarefulFacade) Reinit() error { return f.c.Reinit() }

// SetUint64 assigns a small value.
func (m *gmpNum) SetUint64(v uint64) {
	m.v.SetUint64(v)
	m.v.Mod(m.v, m.c.n)
}

// SetBig assigns from an arbitrary-precision integer, reduced mod N.
func (m *gmpNum) SetBig(v *big.Int) {
	m.v.SetBytes(v.Bytes())
	m.v.Mod(m.v, m.c.n)
}

// Set copies another residue from the same context.
func (m *gmpNum) Set(src Num) { m.v.Set(m.c.num(src)) }

// Big returns the value in the natural representation.
func (m *gmpNum) Big() *big.Int { return new(big.Int).SetBytes(m.v.Bytes()) }

// IsZero reports whether the value is congruent to zero.
func (m *gmpNum) IsZero() bool { return m.v.Sign() == 0 }
