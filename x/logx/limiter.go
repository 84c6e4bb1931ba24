// Package logx holds small logging helpers shared by the driver and the demo.
package logx

// Logf is the printf-style sink components accept. A nil Logf discards.
type Logf func(format string, args ...any)

// Printf calls l if it is set.
func (l Logf) Printf(format string, args ...any) {
	if l != nil {
		l(format, args...)
	}
}

// Limiter lets through the 1st, (Every+1)th, (2*Every+1)th... event.
// Every <= 1 lets everything through. The zero value is usable.
type Limiter struct {
	Every uint32
	n     uint32
}

// Allow counts one event and reports whether it should be logged.
func (l *Limiter) Allow() bool {
	if l.Every <= 1 {
		l.n++
		return true
	}
	ok := l.n%l.Every == 0
	l.n++
	if l.n == l.Every {
		l.n = 0
	}
	return ok
}

// Count returns the events seen since the last logged one.
func (l *Limiter) Count() uint32 { return l.n }
