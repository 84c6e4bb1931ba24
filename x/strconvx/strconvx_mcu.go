//go:build rp2040

package strconvx

import "errors"

// Integer formatting and parsing without pulling strconv's float tables
// into the firmware image. Bases 2..36.

var (
	ErrSyntax = errors.New("invalid syntax")
	ErrRange  = errors.New("value out of range")
)

// NumError records a failed conversion, like strconv.NumError.
type NumError struct {
	Func string
	Num  string
	Err  error
}

func (e *NumError) Error() string { return "strconvx." + e.Func + ": parsing \"" + e.Num + "\": " + e.Err.Error() }
func (e *NumError) Unwrap() error { return e.Err }

const digits = "0123456789abcdefghijklmnopqrstuvwxyz"

func Itoa(i int) string { return FormatInt(int64(i), 10) }

func FormatInt(i int64, base int) string {
	if i < 0 {
		return "-" + FormatUint(uint64(-i), base)
	}
	return FormatUint(uint64(i), base)
}

func FormatUint(u uint64, base int) string {
	if base < 2 || base > len(digits) {
		base = 10
	}
	var buf [64]byte
	i := len(buf)
	b := uint64(base)
	for {
		i--
		buf[i] = digits[u%b]
		u /= b
		if u == 0 {
			break
		}
	}
	return string(buf[i:])
}

// ParseUint accepts an optional 0x/0b/0o prefix when base is 0. Values
// that do not fit bitSize fail with ErrRange.
func ParseUint(s string, base, bitSize int) (uint64, error) {
	in := s
	if base == 0 {
		base, s = prefixBase(s)
	}
	if bitSize == 0 || bitSize > 64 {
		bitSize = 64
	}
	if base < 2 || base > len(digits) || s == "" {
		return 0, &NumError{"ParseUint", in, ErrSyntax}
	}
	max := uint64(1)<<uint(bitSize) - 1
	if bitSize == 64 {
		max = ^uint64(0)
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		d := digitVal(s[i])
		if d >= base {
			return 0, &NumError{"ParseUint", in, ErrSyntax}
		}
		if v > (max-uint64(d))/uint64(base) {
			return 0, &NumError{"ParseUint", in, ErrRange}
		}
		v = v*uint64(base) + uint64(d)
	}
	return v, nil
}

func digitVal(c byte) int {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0')
	case 'a' <= c && c <= 'z':
		return int(c-'a') + 10
	case 'A' <= c && c <= 'Z':
		return int(c-'A') + 10
	}
	return len(digits)
}

func prefixBase(s string) (int, string) {
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			return 16, s[2:]
		case 'b', 'B':
			return 2, s[2:]
		case 'o', 'O':
			return 8, s[2:]
		}
	}
	return 10, s
}
