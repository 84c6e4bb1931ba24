//go:build rp2040

package fmtx

import (
	"io"
	"unicode/utf8"

	"bd18398-evk/x/strconvx"
)

// DefaultOutput receives Print and Printf. The firmware points it at the
// log UART during bring-up.
var DefaultOutput io.Writer = discard{}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

type stringer interface{ String() string }

func Sprintf(format string, a ...any) string {
	var b builder
	b.format(format, a)
	return string(b.buf)
}

func Printf(format string, a ...any) (int, error) {
	return Fprintf(DefaultOutput, format, a...)
}

func Fprintf(w io.Writer, format string, a ...any) (int, error) {
	var b builder
	b.format(format, a)
	return w.Write(b.buf)
}

func Errorf(format string, a ...any) error {
	return &stringError{Sprintf(format, a...)}
}

func Sprint(a ...any) string {
	var b builder
	b.list(a)
	return string(b.buf)
}

func Fprint(w io.Writer, a ...any) (int, error) {
	var b builder
	b.list(a)
	return w.Write(b.buf)
}

func Print(a ...any) (int, error) { return Fprint(DefaultOutput, a...) }

type stringError struct{ s string }

func (e *stringError) Error() string { return e.s }

// builder implements the subset of fmt the firmware uses:
// verbs %s %q %v %d %x %X %t %c %%, the '0' and '-' flags, width, and
// precision for strings. Named integer types print through String when
// they have one, otherwise as <?>.
type builder struct{ buf []byte }

type directive struct {
	zero, left bool
	width      int
	prec       int // -1 when absent
}

func (b *builder) list(a []any) {
	for i, v := range a {
		if i > 0 {
			b.buf = append(b.buf, ' ')
		}
		b.value(v, 'v', directive{prec: -1})
	}
}

func (b *builder) format(format string, args []any) {
	ai := 0
	for i := 0; i < len(format); {
		c := format[i]
		if c != '%' {
			b.buf = append(b.buf, c)
			i++
			continue
		}
		i++
		if i < len(format) && format[i] == '%' {
			b.buf = append(b.buf, '%')
			i++
			continue
		}
		sp := directive{prec: -1}
		for ; i < len(format); i++ {
			if format[i] == '0' {
				sp.zero = true
			} else if format[i] == '-' {
				sp.left = true
			} else {
				break
			}
		}
		i, sp.width = number(format, i)
		if i < len(format) && format[i] == '.' {
			i, sp.prec = number(format, i+1)
		}
		if i >= len(format) {
			b.buf = append(b.buf, "%!(NOVERB)"...)
			return
		}
		verb := format[i]
		i++
		if ai >= len(args) {
			b.buf = append(b.buf, '%', '!', verb, '(', 'M', 'I', 'S', 'S', 'I', 'N', 'G', ')')
			continue
		}
		b.value(args[ai], verb, sp)
		ai++
	}
}

func (b *builder) value(v any, verb byte, sp directive) {
	switch verb {
	case 'd', 'x', 'X', 'c':
		n, neg, ok := integer(v)
		if !ok {
			b.pad("<?>", sp)
			return
		}
		if verb == 'c' {
			b.pad(string(rune(n)), sp)
			return
		}
		base := 10
		if verb != 'd' {
			base = 16
		}
		s := strconvx.FormatUint(n, base)
		if verb == 'X' {
			s = upper(s)
		}
		if neg {
			s = "-" + s
		}
		b.pad(s, sp)
	case 't':
		if x, ok := v.(bool); ok && x {
			b.pad("true", sp)
		} else {
			b.pad("false", sp)
		}
	case 'q':
		b.pad(quote(text(v)), directive{width: sp.width, left: sp.left, prec: -1})
	case 's', 'v':
		s := text(v)
		if sp.prec >= 0 && sp.prec < len(s) {
			s = s[:sp.prec]
		}
		sp.zero = false
		b.pad(s, sp)
	default:
		b.buf = append(b.buf, '%', '!', verb)
	}
}

func (b *builder) pad(s string, sp directive) {
	n := sp.width - utf8.RuneCountInString(s)
	if sp.left {
		b.buf = append(b.buf, s...)
		for ; n > 0; n-- {
			b.buf = append(b.buf, ' ')
		}
		return
	}
	fill := byte(' ')
	if sp.zero {
		fill = '0'
		if len(s) > 0 && s[0] == '-' {
			b.buf = append(b.buf, '-')
			s = s[1:]
		}
	}
	for ; n > 0; n-- {
		b.buf = append(b.buf, fill)
	}
	b.buf = append(b.buf, s...)
}

func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case error:
		return x.Error()
	case stringer:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	case nil:
		return "<nil>"
	}
	if n, neg, ok := integer(v); ok {
		s := strconvx.FormatUint(n, 10)
		if neg {
			return "-" + s
		}
		return s
	}
	return "<?>"
}

// integer returns the magnitude and sign of any builtin integer.
func integer(v any) (u uint64, neg bool, ok bool) {
	var i int64
	switch x := v.(type) {
	case int:
		i = int64(x)
	case int8:
		i = int64(x)
	case int16:
		i = int64(x)
	case int32:
		i = int64(x)
	case int64:
		i = x
	case uint:
		return uint64(x), false, true
	case uint8:
		return uint64(x), false, true
	case uint16:
		return uint64(x), false, true
	case uint32:
		return uint64(x), false, true
	case uint64:
		return x, false, true
	case uintptr:
		return uint64(x), false, true
	default:
		return 0, false, false
	}
	if i < 0 {
		return uint64(-i), true, true
	}
	return uint64(i), false, true
}

func number(s string, i int) (int, int) {
	n := 0
	for ; i < len(s) && '0' <= s[i] && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
	}
	return i, n
}

func upper(s string) string {
	p := []byte(s)
	for i, c := range p {
		if 'a' <= c && c <= 'f' {
			p[i] = c - ('a' - 'A')
		}
	}
	return string(p)
}

func quote(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', '"':
			out = append(out, '\\', c)
		case '\n':
			out = append(out, '\\', 'n')
		case '\r':
			out = append(out, '\\', 'r')
		case '\t':
			out = append(out, '\\', 't')
		default:
			out = append(out, c)
		}
	}
	return string(append(out, '"'))
}
