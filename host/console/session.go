package console

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"
)

// Session pairs a board connection with a local terminal.
type Session struct {
	port  io.ReadWriter
	out   io.Writer
	delay time.Duration
	sleep func(time.Duration)

	mu sync.Mutex // serializes writes to port
}

func NewSession(port io.ReadWriter, out io.Writer, cfg *Config) *Session {
	return &Session{port: port, out: out, delay: cfg.LineDelay(), sleep: time.Sleep}
}

// Send writes one command line. Surrounding whitespace is trimmed and
// blank lines are not sent.
func (s *Session) Send(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.port, line+"\n")
	return err
}

// Script sends each command, pausing between them.
func (s *Session) Script(ctx context.Context, lines []string) error {
	for i, l := range lines {
		if i > 0 && s.delay > 0 {
			s.sleep(s.delay)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Send(l); err != nil {
			return err
		}
	}
	return nil
}

// Forward sends every line read from in until EOF or ctx ends.
func (s *Session) Forward(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Send(sc.Text()); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Echo copies board output to the terminal until the port fails or ctx
// ends. Read timeouts surface as zero-length reads and are skipped.
func (s *Session) Echo(ctx context.Context) error {
	buf := make([]byte, 256)
	for ctx.Err() == nil {
		n, err := s.port.Read(buf)
		if n > 0 {
			if _, werr := s.out.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	}
	return ctx.Err()
}
