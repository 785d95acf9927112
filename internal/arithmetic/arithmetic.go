// Package arithmetic defines the contract between the exponentiation core and
// the large-integer arithmetic provider. The provider performs every modular
// multiplication; the core only sequences operations and passes hints about
// how results will be consumed. A transform-based provider (FFT over the
// modulus) can honor the hints to keep intermediate results in transform
// domain between chained multiplications; the reference provider in this
// package ignores them but preserves the calling discipline.
package arithmetic

import (
	"errors"
	"math/big"
)

// Flag carries per-operation hints to the provider.
type Flag uint32

const (
	// StartNextFFT hints that the result will be consumed by the next
	// multiplication and may be left in transform domain. It must not be set
	// on the last operation of any sequence whose result is read directly
	// (checkpoint, branch, comparison).
	StartNextFFT Flag = 1 << iota

	// FFTSource1 declares that the first source operand is already in
	// transform domain.
	FFTSource1

	// FFTSource2 declares that the second source operand is already in
	// transform domain.
	FFTSource2

	// MulByConst fuses a multiplication by the small constant registered via
	// SetMulByConst into the operation.
	MulByConst
)

// StartNextFFTIf returns StartNextFFT when cond is true.
func StartNextFFTIf(cond bool) Flag {
	if cond {
		return StartNextFFT
	}
	return 0
}

// MulByConstIf returns MulByConst when cond is true.
func MulByConstIf(cond bool) Flag {
	if cond {
		return MulByConst
	}
	return 0
}

// ErrRoundoff reports a transient numerical excursion in the provider. The
// operation that returned it produced an unreliable result; the caller is
// expected to roll back to its last verified state and retry.
var ErrRoundoff = errors.New("arithmetic: roundoff error exceeded limit")

// Num is a residue modulo the provider's modulus, stored in the provider's
// native representation. A Num is exclusively owned by the task that created
// it and must only be passed back to the Context it came from.
type Num interface {
	// SetUint64 assigns a small value.
	SetUint64(v uint64)

	// SetBig assigns from an arbitrary-precision integer, reduced modulo the
	// provider's modulus.
	SetBig(v *big.Int)

	// Set copies another residue from the same context.
	Set(src Num)

	// Big returns the value as an arbitrary-precision integer in the natural
	// (non-transform) representation.
	Big() *big.Int

	// IsZero reports whether the value is congruent to zero.
	IsZero() bool
}

// Context is the arithmetic provider. All destination arguments come first,
// math/big style. Square and Mul report ErrRoundoff for transient failures;
// any other error is fatal.
//
// A Context and every Num it creates are confined to a single goroutine.
type Context interface {
	// New allocates a residue initialized to zero.
	New() Num

	// Square computes dst = src² mod N. With MulByConst set, the result is
	// additionally multiplied by the registered constant.
	Square(dst, src Num, flags Flag) error

	// Mul computes dst = a·b mod N.
	Mul(dst, a, b Num, flags Flag) error

	// Sub computes dst = a−b mod N.
	Sub(dst, a, b Num) error

	// SetMulByConst registers the constant fused by the MulByConst flag.
	// The constant must not exceed MaxMulByConst.
	SetMulByConst(c uint64)

	// MaxMulByConst is the largest constant SetMulByConst accepts.
	MaxMulByConst() uint64

	// Carefully returns a variant of this context that performs each
	// operation with extra safety margin, trading throughput for
	// reliability. The variant shares the modulus, operation counters and
	// all Num values with the receiver.
	Carefully() Context

	// SetCarefulCount requests that the next n operations on this context
	// run through the careful path regardless of which façade is used.
	SetCarefulCount(n int)

	// FFTCount returns the number of transform operations performed so far.
	FFTCount() float64

	// FFTLength returns the current transform length.
	FFTLength() int

	// FFTDescription returns a human-readable description of the transform
	// configuration.
	FFTDescription() string

	// NearFFTLimit reports whether the current transform size is close to
	// its reliability limit, in which case per-multiplication roundoff
	// checking should be enabled.
	NearFFTLimit() bool

	// Modulus returns the modulus N.
	Modulus() *big.Int

	// Reinit tears down and rebuilds the transform state, preserving the
	// operation counter. Invoked after repeated restarts to select a
	// potentially larger transform.
	Reinit() error
}
