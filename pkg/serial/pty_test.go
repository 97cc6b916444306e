//go:build linux

package serial

import (
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridge_PseudoTerminal(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	params := validParams()
	params.Name = Ptr(slave.Name())
	h, err := NewHandle(params, 20*time.Millisecond)
	require.NoError(t, err)

	probe, err := h.Open()
	if err != nil {
		t.Skipf("pty not usable as serial device: %v", err)
	}
	probe.Close()

	link := NewLink()
	b := StartBridge(h, link, 5*time.Millisecond)
	t.Cleanup(func() { b.Stop(time.Second) })

	_, err = master.Write([]byte("ping\n"))
	require.NoError(t, err)

	var got []byte
	assert.Eventually(t, func() bool {
		if data, ok := link.Rx.TryDrain(); ok {
			got = append(got, data...)
		}
		return len(got) >= 4 && string(got[:4]) == "ping"
	}, time.Second, 5*time.Millisecond)

	require.True(t, link.Tx.TryAppend([]byte("pong\n")))

	buf := make([]byte, 64)
	master.SetReadDeadline(time.Now().Add(time.Second))
	n, err := master.Read(buf)
	if err != nil {
		t.Skipf("pty master read not supported: %v", err)
	}
	assert.Contains(t, string(buf[:n]), "pong")

	require.NoError(t, b.Stop(time.Second))
}
