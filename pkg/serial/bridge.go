package serial

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrJoinTimeout is returned when the bridge does not finish within the
// allotted time after its flag was lowered.
var ErrJoinTimeout = errors.New("serial bridge did not stop in time")

const (
	// DefaultBridgeInterval is the pause between two bridge cycles
	DefaultBridgeInterval = 20 * time.Millisecond

	readChunkSize = 4096
)

// Bridge owns one open device and moves bytes between it and a Link until
// the link's flag is lowered.
type Bridge struct {
	handle   *Handle
	link     *Link
	interval time.Duration
	done     chan struct{}

	pending    []byte
	pendingErr error
}

// StartBridge starts the bridge goroutine for h. The device is opened by that
// goroutine; a failed open is reported through link.Err and ends the bridge.
func StartBridge(h *Handle, link *Link, interval time.Duration) *Bridge {
	if interval <= 0 {
		interval = DefaultBridgeInterval
	}

	b := &Bridge{
		handle:   h,
		link:     link,
		interval: interval,
		done:     make(chan struct{}),
	}
	go b.run()
	return b
}

// Name returns the device name of the bridge
func (b *Bridge) Name() string {
	return b.handle.Name()
}

// Done is closed once the device has been released
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// Join waits until the bridge has stopped or timeout elapses
func (b *Bridge) Join(timeout time.Duration) error {
	select {
	case <-b.done:
		return nil
	case <-time.After(timeout):
		return ErrJoinTimeout
	}
}

// Stop lowers the flag and joins the bridge. Calling it again is harmless.
func (b *Bridge) Stop(timeout time.Duration) error {
	b.link.Flag.Lower()
	return b.Join(timeout)
}

func (b *Bridge) run() {
	defer close(b.done)

	name := b.handle.Name()
	port, err := b.handle.Open()
	if err != nil {
		log.Warn().Err(err).Str("port", name).Msg("bridge open failed")
		for !b.link.Err.TrySet(err) && b.link.Flag.Raised() {
			time.Sleep(b.interval)
		}
		return
	}
	log.Info().Str("port", name).Msg("bridge opened device")

	defer func() {
		if err := port.Close(); err != nil {
			log.Warn().Err(err).Str("port", name).Msg("bridge close failed")
		}
		log.Info().Str("port", name).Msg("bridge released device")
	}()

	for b.link.Flag.Raised() {
		b.cycle(port)
		time.Sleep(b.interval)
	}
}

// cycle performs one drain-and-write / read-and-append pass
func (b *Bridge) cycle(port Port) {
	b.flushTx(port)
	b.fillRx(port)
	b.postError()
}

func (b *Bridge) flushTx(port Port) {
	_, err := b.link.Tx.TryFlush(port.Write)
	if err == nil || IsTimeout(err) {
		return
	}
	b.record(NewSerialError(OpWrite, b.handle.Name(), err))
}

func (b *Bridge) fillRx(port Port) {
	chunk := make([]byte, readChunkSize)
	n, err := port.Read(chunk)
	if n > 0 {
		b.pending = append(b.pending, chunk[:n]...)
	}
	if err != nil && !IsTimeout(err) {
		b.record(NewSerialError(OpRead, b.handle.Name(), err))
	}

	if len(b.pending) > 0 && b.link.Rx.TryAppend(b.pending) {
		b.pending = nil
	}
}

func (b *Bridge) record(err error) {
	log.Debug().Err(err).Msg("bridge I/O error")
	b.pendingErr = err
}

func (b *Bridge) postError() {
	if b.pendingErr != nil && b.link.Err.TrySet(b.pendingErr) {
		b.pendingErr = nil
	}
}
