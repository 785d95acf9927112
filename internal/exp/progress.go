// Package exp implements the exponentiation core.
// This file contains the Observer pattern implementation for progress
// reporting.
package exp

import (
	"sync"
)

// ProgressUpdate is a data transfer object carrying the progress state of a
// running task, sent over a channel from the task to the user interface.
type ProgressUpdate struct {
	// Value is the normalized progress of the task, from 0.0 to 1.0.
	Value float64
	// FFTCount is the number of transform operations performed so far,
	// halved to count multiplications.
	FFTCount float64
}

// ProgressObserver defines the interface for observing progress events.
type ProgressObserver interface {
	// Update is called when progress changes.
	//
	// Parameters:
	//   - progress: The normalized progress value (0.0 to 1.0).
	//   - fftCount: Transform operations performed, halved.
	Update(progress float64, fftCount float64)
}

// ProgressSubject manages observer registration and notification for progress
// events. It allows multiple observers to be notified of progress updates
// without coupling the task to its consumers.
//
// ProgressSubject is safe for concurrent use.
type ProgressSubject struct {
	observers []ProgressObserver
	mu        sync.RWMutex
}

// NewProgressSubject creates a new subject for managing progress observers.
func NewProgressSubject() *ProgressSubject {
	return &ProgressSubject{
		observers: make([]ProgressObserver, 0),
	}
}

// Register adds an observer to receive progress updates. Observers are
// notified in the order they are registered. A nil observer is a no-op.
func (s *ProgressSubject) Register(observer ProgressObserver) {
	if observer == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observer)
}

// Unregister removes an observer from receiving updates. If the observer is
// not found, this call is a no-op.
func (s *ProgressSubject) Unregister(observer ProgressObserver) {
	if observer == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, o := range s.observers {
		if o == observer {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// Notify sends a progress update to all registered observers, synchronously
// in registration order.
func (s *ProgressSubject) Notify(progress, fftCount float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, observer := range s.observers {
		observer.Update(progress, fftCount)
	}
}

// ObserverCount returns the number of registered observers. Primarily useful
// for testing and diagnostics.
func (s *ProgressSubject) ObserverCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

// ChannelObserver forwards progress updates to a channel, dropping updates
// when the channel is full so a slow consumer never stalls the task.
type ChannelObserver struct {
	ch chan<- ProgressUpdate
}

// NewChannelObserver creates an observer writing to ch.
func NewChannelObserver(ch chan<- ProgressUpdate) *ChannelObserver {
	return &ChannelObserver{ch: ch}
}

// Update implements ProgressObserver.
func (o *ChannelObserver) Update(progress, fftCount float64) {
	select {
	case o.ch <- ProgressUpdate{Value: progress, FFTCount: fftCount}:
	default:
	}
}
