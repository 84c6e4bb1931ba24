package console

import (
	"fmt"
	"io"

	"github.com/tarm/serial"
)

// Open opens the serial port named in cfg.
func Open(cfg *Config) (io.ReadWriteCloser, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	return port, nil
}
