package state

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempFile(t *testing.T) *File {
	t.Helper()
	return NewFile(filepath.Join(t.TempDir(), "task.ckpt"))
}

func TestFile_StateRoundTrip(t *testing.T) {
	t.Parallel()
	f := tempFile(t)

	x := new(big.Int).Lsh(big.NewInt(12345), 1000)
	require.NoError(t, f.WriteState(NewState(42, x)))

	got, err := f.ReadState()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(42), got.Iteration)
	assert.Zero(t, got.X.Cmp(x))
}

func TestFile_CheckStateRoundTrip(t *testing.T) {
	t.Parallel()
	f := tempFile(t)

	x := big.NewInt(7)
	d := new(big.Int).Lsh(big.NewInt(9), 500)
	require.NoError(t, f.WriteCheckState(NewCheckState(9000, x, d)))

	got, err := f.ReadCheckState()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(9000), got.Iteration)
	assert.Zero(t, got.X.Cmp(x))
	assert.Zero(t, got.D.Cmp(d))
}

func TestFile_MissingFile(t *testing.T) {
	t.Parallel()
	f := tempFile(t)

	st, err := f.ReadState()
	require.NoError(t, err)
	assert.Nil(t, st)

	cst, err := f.ReadCheckState()
	require.NoError(t, err)
	assert.Nil(t, cst)
}

func TestFile_KindMismatch(t *testing.T) {
	t.Parallel()
	f := tempFile(t)

	require.NoError(t, f.WriteState(NewState(10, big.NewInt(5))))

	// A recovery record must not be readable as a working record.
	cst, err := f.ReadCheckState()
	require.NoError(t, err)
	assert.Nil(t, cst)
}

func TestFile_CorruptFile(t *testing.T) {
	t.Parallel()
	f := tempFile(t)
	require.NoError(t, os.WriteFile(f.Path(), []byte("not a checkpoint"), 0o644))

	st, err := f.ReadState()
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestFile_OverwriteKeepsLatest(t *testing.T) {
	t.Parallel()
	f := tempFile(t)

	require.NoError(t, f.WriteState(NewState(1, big.NewInt(11))))
	require.NoError(t, f.WriteState(NewState(2, big.NewInt(22))))

	got, err := f.ReadState()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(2), got.Iteration)
	assert.EqualValues(t, 22, got.X.Int64())
}

func TestFile_NoStagingLeftovers(t *testing.T) {
	t.Parallel()
	f := tempFile(t)
	require.NoError(t, f.WriteState(NewState(3, big.NewInt(33))))

	entries, err := os.ReadDir(filepath.Dir(f.Path()))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp"), "staging file %s left behind", e.Name())
	}
}

func TestFile_Remove(t *testing.T) {
	t.Parallel()
	f := tempFile(t)
	require.NoError(t, f.WriteState(NewState(1, big.NewInt(1))))
	require.NoError(t, f.Remove())
	require.NoError(t, f.Remove(), "removing a missing file must not fail")

	st, err := f.ReadState()
	require.NoError(t, err)
	assert.Nil(t, st)
}
