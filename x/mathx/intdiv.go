package mathx

// RoundDiv returns floor((a + b/2)/b), classic rounding for positives.
// b == 0 yields 0.
func RoundDiv[T ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}

// WrapInc returns (v+1) mod n. n == 0 yields 0.
func WrapInc[T ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](v, n T) T {
	if n == 0 {
		return 0
	}
	return (v + 1) % n
}
