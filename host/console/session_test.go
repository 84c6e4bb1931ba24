package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort reads from rx and records writes.
type fakePort struct {
	rx  io.Reader
	tx  bytes.Buffer
	err error // returned once rx is drained
}

func (p *fakePort) Read(b []byte) (int, error) {
	n, err := p.rx.Read(b)
	if errors.Is(err, io.EOF) && p.err != nil {
		return n, p.err
	}
	return n, err
}

func (p *fakePort) Write(b []byte) (int, error) { return p.tx.Write(b) }

func newTestSession(port *fakePort, out io.Writer) (*Session, *[]time.Duration) {
	cfg := &Config{LineDelayMS: 20}
	s := NewSession(port, out, cfg)
	var slept []time.Duration
	s.sleep = func(d time.Duration) { slept = append(slept, d) }
	return s, &slept
}

func TestForwardSendsTrimmedLines(t *testing.T) {
	port := &fakePort{rx: strings.NewReader("")}
	s, _ := newTestSession(port, io.Discard)

	err := s.Forward(context.Background(), strings.NewReader("press\r\n\n  bright 0 10 \nstate"))
	require.NoError(t, err)
	assert.Equal(t, "press\nbright 0 10\nstate\n", port.tx.String())
}

func TestScriptPacesCommands(t *testing.T) {
	port := &fakePort{rx: strings.NewReader("")}
	s, slept := newTestSession(port, io.Discard)

	require.NoError(t, s.Script(context.Background(), []string{"on 0", "on 1", "on 2"}))
	assert.Equal(t, "on 0\non 1\non 2\n", port.tx.String())
	assert.Equal(t, []time.Duration{20 * time.Millisecond, 20 * time.Millisecond}, *slept)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Script(ctx, []string{"press"}), context.Canceled)
}

func TestEchoCopiesUntilPortFails(t *testing.T) {
	closed := errors.New("port closed")
	port := &fakePort{rx: strings.NewReader("DEMO Alive\r\nLED 0 SHORT\r\n"), err: closed}
	var out bytes.Buffer
	s, _ := newTestSession(port, &out)

	err := s.Echo(context.Background())
	assert.ErrorIs(t, err, closed)
	assert.Equal(t, "DEMO Alive\r\nLED 0 SHORT\r\n", out.String())
}
