package logx

import (
	"io"

	"bd18398-evk/x/fmtx"
)

// Std prints through fmtx.Printf, which the firmware routes to the log UART.
func Std() Logf {
	return func(format string, args ...any) { _, _ = fmtx.Printf(format, args...) }
}

// To prints to w.
func To(w io.Writer) Logf {
	return func(format string, args ...any) { _, _ = fmtx.Fprintf(w, format, args...) }
}

// With prefixes every line with tag, e.g. "[sim] ".
func (l Logf) With(tag string) Logf {
	if l == nil {
		return nil
	}
	return func(format string, args ...any) { l(tag+format, args...) }
}
