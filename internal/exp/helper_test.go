package exp

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stream1972/prst/internal/arithmetic"
	"github.com/stream1972/prst/internal/input"
	"github.com/stream1972/prst/internal/logging"
)

// newTestModulus builds the input and reference arithmetic context for a
// small odd modulus.
func newTestModulus(t *testing.T, n int64) (*input.Number, *arithmetic.ModContext) {
	t.Helper()
	in, err := input.FromValue(big.NewInt(n))
	if err != nil {
		t.Fatalf("input.FromValue(%d): %v", n, err)
	}
	gw, err := arithmetic.NewModContext(big.NewInt(n))
	if err != nil {
		t.Fatalf("NewModContext(%d): %v", n, err)
	}
	return in, gw
}

// refExp computes base^exp mod n through the standard library, the test
// oracle for every strategy.
func refExp(base, exp, n *big.Int) *big.Int {
	return new(big.Int).Exp(base, exp, n)
}

// refIterated computes x0^(b^iters) mod n.
func refIterated(x0 *big.Int, b, iters uint64, n *big.Int) *big.Int {
	e := new(big.Int).Exp(new(big.Int).SetUint64(b), new(big.Int).SetUint64(iters), nil)
	return new(big.Int).Exp(x0, e, n)
}

// recordingLogger captures log calls for assertions. It is safe for
// concurrent use.
type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	infos  []string
}

func (l *recordingLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Error(msg string, err error, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) Debug(msg string, fields ...logging.Field) {}

func (l *recordingLogger) ReportParam(name string, value any) {}

func (l *recordingLogger) WithPrefix(prefix string) logging.Logger { return l }

func (l *recordingLogger) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}
