package app

import (
	"sync"
	"testing"
	"time"

	"nolp/pkg/config"
	"nolp/pkg/serial"
)

// fakePort is an in-memory device. When block is set, reads wait on it.
type fakePort struct {
	mu       sync.Mutex
	incoming []byte
	written  []byte
	closed   int
	block    chan struct{}
}

func (p *fakePort) Read(buf []byte) (int, error) {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	n := copy(buf, p.incoming)
	p.incoming = p.incoming[n:]
	return n, nil
}

func (p *fakePort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, data...)
	return len(data), nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *fakePort) feed(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.incoming = append(p.incoming, data...)
}

func (p *fakePort) sent() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.written)
}

func (p *fakePort) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func opener(port *fakePort, err error) serial.OpenFunc {
	return func(*serial.Handle) (serial.Port, error) {
		if err != nil {
			return nil, err
		}
		return port, nil
	}
}

func devices() ([]serial.PortInfo, error) {
	return []serial.PortInfo{{Name: "COM1"}, {Name: "COM4", IsUSB: true, Product: "FT232R"}}, nil
}

func completeParams() serial.PortParameters {
	return serial.PortParameters{
		Name:     serial.Ptr("COM4"),
		BaudRate: serial.Ptr(uint32(9600)),
		DataBits: serial.Ptr(uint8(8)),
		StopBits: serial.Ptr(uint8(1)),
		Parity:   serial.Ptr(serial.ParityEven),
		Mode:     serial.Ptr(serial.ModeAscii),
	}
}

func testSettings() config.Settings {
	s := config.Default()
	s.TickInterval = 50 * time.Millisecond
	s.RenderInterval = 5 * time.Millisecond
	s.BridgeInterval = time.Millisecond
	s.ShutdownTimeout = 500 * time.Millisecond
	return s
}

func newTestScene(t *testing.T, port *fakePort, openErr error) *Scene {
	t.Helper()
	s := NewScene(testSettings(), nil).
		WithLister(devices).
		WithOpener(opener(port, openErr))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

const (
	waitFor   = time.Second
	pollEvery = 2 * time.Millisecond
)
