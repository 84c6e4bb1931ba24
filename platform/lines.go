// Package platform binds the demo to a board: the RP2040 carrier on
// firmware builds, the simulated IC on host builds.
package platform

import (
	"context"
	"sync/atomic"
)

// Lines splits a byte stream into LF-terminated lines for the console.
// CR is ignored and overlong lines are truncated. Complete lines are
// queued without blocking; when the queue is full the line is dropped.
type Lines struct {
	line  []byte
	max   int
	out   chan string
	drops atomic.Uint32
}

func NewLines(maxLen, depth int) *Lines {
	if maxLen <= 0 {
		maxLen = 128
	}
	if depth <= 0 {
		depth = 4
	}
	return &Lines{line: make([]byte, 0, maxLen), max: maxLen, out: make(chan string, depth)}
}

// C delivers complete lines.
func (l *Lines) C() <-chan string { return l.out }

// Drops returns how many lines were lost to a full queue.
func (l *Lines) Drops() uint32 { return l.drops.Load() }

func (l *Lines) Feed(p []byte) {
	for _, b := range p {
		switch b {
		case '\n':
			l.flush()
		case '\r':
		default:
			if len(l.line) < l.max {
				l.line = append(l.line, b)
			}
		}
	}
}

func (l *Lines) flush() {
	s := string(l.line)
	l.line = l.line[:0]
	select {
	case l.out <- s:
	default:
		l.drops.Add(1)
	}
}

// RecvFunc reads at least one byte or fails. uartx.UART.RecvSomeContext
// has this shape.
type RecvFunc func(ctx context.Context, buf []byte) (int, error)

// Pump feeds l from recv until ctx ends or recv returns an error that
// is not caused by ctx.
func (l *Lines) Pump(ctx context.Context, recv RecvFunc) error {
	buf := make([]byte, 64)
	for {
		n, err := recv(ctx, buf)
		if n > 0 {
			l.Feed(buf[:n])
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return err
		}
	}
}
