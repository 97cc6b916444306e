package serial

import (
	"sync"

	"go.uber.org/atomic"
)

// Buffer is a byte queue shared between the bridge and the UI. Both sides
// only ever try the lock; contention means "nothing to do this cycle".
type Buffer struct {
	mu      sync.Mutex
	data    []byte
	flushed atomic.Int64
}

// NewBuffer creates an empty buffer
func NewBuffer() *Buffer {
	return &Buffer{}
}

// TryAppend appends p if the lock is free. It reports whether p was taken.
func (b *Buffer) TryAppend(p []byte) bool {
	if !b.mu.TryLock() {
		return false
	}
	defer b.mu.Unlock()

	b.data = append(b.data, p...)
	return true
}

// TryDrain removes and returns the buffered bytes if the lock is free.
// ok is false only on contention; an empty buffer yields (nil, true).
func (b *Buffer) TryDrain() (data []byte, ok bool) {
	if !b.mu.TryLock() {
		return nil, false
	}
	defer b.mu.Unlock()

	if len(b.data) == 0 {
		return nil, true
	}
	data = b.data
	b.data = nil
	return data, true
}

// TryFlush hands the buffered bytes to write while holding the lock and drops
// whatever write reports as sent. Nothing is dropped when write fails without
// making progress. attempted is false when the lock was contended or the
// buffer was empty.
func (b *Buffer) TryFlush(write func([]byte) (int, error)) (attempted bool, err error) {
	if !b.mu.TryLock() {
		return false, nil
	}
	defer b.mu.Unlock()

	if len(b.data) == 0 {
		return false, nil
	}

	n, err := write(b.data)
	if n > 0 {
		b.flushed.Add(int64(n))
		if n >= len(b.data) {
			b.data = nil
		} else {
			b.data = append(b.data[:0], b.data[n:]...)
		}
	}
	return true, err
}

// Flushed returns the total number of bytes write has reported as sent
func (b *Buffer) Flushed() int64 {
	return b.flushed.Load()
}

// Len returns the number of buffered bytes, or -1 if the lock is contended
func (b *Buffer) Len() int {
	if !b.mu.TryLock() {
		return -1
	}
	defer b.mu.Unlock()
	return len(b.data)
}

// ErrorSlot holds the most recent error reported by the bridge until the UI
// picks it up.
type ErrorSlot struct {
	mu  sync.Mutex
	err error
}

// NewErrorSlot creates an empty error slot
func NewErrorSlot() *ErrorSlot {
	return &ErrorSlot{}
}

// TrySet records err if the lock is free. A newer error replaces an older
// one that was never read, except that an open failure is never replaced.
func (s *ErrorSlot) TrySet(err error) bool {
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()

	if IsOpenError(s.err) {
		return true
	}
	s.err = err
	return true
}

// TryTake returns and clears the recorded error. ok is false on contention.
func (s *ErrorSlot) TryTake() (err error, ok bool) {
	if !s.mu.TryLock() {
		return nil, false
	}
	defer s.mu.Unlock()

	err = s.err
	s.err = nil
	return err, true
}

// Flag is true while the connection should stay open
type Flag struct {
	v atomic.Bool
}

// NewFlag returns a raised flag
func NewFlag() *Flag {
	f := &Flag{}
	f.v.Store(true)
	return f
}

// Raised reports whether the connection should stay open
func (f *Flag) Raised() bool {
	return f.v.Load()
}

// Lower requests shutdown. Lowering an already lowered flag has no effect.
// It returns true only for the call that actually lowered the flag.
func (f *Flag) Lower() bool {
	return f.v.CompareAndSwap(true, false)
}

// Link bundles the cells shared by one bridge and the Terminal screen.
// rx flows device to UI, tx flows UI to device.
type Link struct {
	Rx   *Buffer
	Tx   *Buffer
	Err  *ErrorSlot
	Flag *Flag
}

// NewLink creates a fresh set of cells with the flag raised
func NewLink() *Link {
	return &Link{
		Rx:   NewBuffer(),
		Tx:   NewBuffer(),
		Err:  NewErrorSlot(),
		Flag: NewFlag(),
	}
}
