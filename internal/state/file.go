package state

//go:generate mockgen -source=file.go -destination=mocks/mock_store.go -package=mocks

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
)

// fileMagic identifies checkpoint files written by this package.
const fileMagic = "PRST"

// fileVersion is bumped whenever the record layout changes incompatibly.
const fileVersion = 1

// Store is the persistence contract consumed by tasks. Readers return
// (nil, nil) when no usable record exists: a missing file, a record of the
// wrong kind, or a version mismatch all mean "start over", not "fail".
type Store interface {
	// ReadState loads a recovery record.
	ReadState() (*State, error)

	// ReadCheckState loads a working record.
	ReadCheckState() (*CheckState, error)

	// WriteState commits a recovery record.
	WriteState(s *State) error

	// WriteCheckState commits a working record.
	WriteCheckState(s *CheckState) error
}

// record is the on-disk layout. Integer keys keep the encoding compact for
// multi-megabyte residues.
type record struct {
	Magic     string `cbor:"1,keyasint"`
	Version   uint8  `cbor:"2,keyasint"`
	Kind      uint8  `cbor:"3,keyasint"`
	Iteration uint64 `cbor:"4,keyasint"`
	X         []byte `cbor:"5,keyasint"`
	D         []byte `cbor:"6,keyasint,omitempty"`
}

// File persists records to a single path, replacing the previous record
// atomically on each write. A partially written file can never clobber the
// prior checkpoint: the new record is staged in a temporary file and renamed
// over the old one only after a successful sync.
type File struct {
	path string
}

// NewFile creates a store at the given path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

// Remove deletes the backing file. Missing files are not an error.
func (f *File) Remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (f *File) read(kind uint8) (*record, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: reading %s: %w", f.path, err)
	}
	var r record
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, nil
	}
	if r.Magic != fileMagic || r.Version != fileVersion || r.Kind != kind {
		return nil, nil
	}
	return &r, nil
}

func (f *File) write(r *record) error {
	data, err := cbor.Marshal(r)
	if err != nil {
		return fmt.Errorf("state: encoding record: %w", err)
	}
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("state: staging %s: %w", f.path, err)
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(data); err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("state: writing %s: %w", f.path, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("state: committing %s: %w", f.path, err)
	}
	return nil
}

// ReadState loads a recovery record.
func (f *File) ReadState() (*State, error) {
	r, err := f.read(KindState)
	if r == nil || err != nil {
		return nil, err
	}
	return &State{Iteration: r.Iteration, X: new(big.Int).SetBytes(r.X)}, nil
}

// ReadCheckState loads a working record.
func (f *File) ReadCheckState() (*CheckState, error) {
	r, err := f.read(KindCheckState)
	if r == nil || err != nil {
		return nil, err
	}
	return &CheckState{
		Iteration: r.Iteration,
		X:         new(big.Int).SetBytes(r.X),
		D:         new(big.Int).SetBytes(r.D),
	}, nil
}

// WriteState commits a recovery record.
func (f *File) WriteState(s *State) error {
	return f.write(&record{
		Magic:     fileMagic,
		Version:   fileVersion,
		Kind:      KindState,
		Iteration: s.Iteration,
		X:         s.X.Bytes(),
	})
}

// WriteCheckState commits a working record.
func (f *File) WriteCheckState(s *CheckState) error {
	return f.write(&record{
		Magic:     fileMagic,
		Version:   fileVersion,
		Kind:      KindCheckState,
		Iteration: s.Iteration,
		X:         s.X.Bytes(),
		D:         s.D.Bytes(),
	})
}
