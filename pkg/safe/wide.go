package safe

import "math/bits"

// MulDiv computes (a*b)/c using a 128-bit intermediate product so that
// a*b can exceed the int64 range without overflowing, the Go
// equivalent of the original engine's unsigned __int128 arithmetic for
// micro-price and imbalance math. a and b must be non-negative; c must
// be positive. Panics if the final result would not fit in uint64.
func MulDiv(a, b uint64, c uint64) uint64 {
	if c == 0 {
		panic("CORE_SAFE_MULDIV_DIV_BY_ZERO")
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		panic("CORE_SAFE_MULDIV_OVERFLOW")
	}
	q, _ := bits.Div64(hi, lo, c)
	return q
}

// MulAddDiv computes (a1*b1 + a2*b2)/c using full 128-bit intermediate
// precision for both products and their sum, the micro-price formula's
// exact shape: a size-weighted average of two price*qty terms divided
// by total size, without ever truncating the sum to 64 bits first.
func MulAddDiv(a1, b1, a2, b2, c uint64) uint64 {
	if c == 0 {
		panic("CORE_SAFE_MULADDDIV_DIV_BY_ZERO")
	}
	hi1, lo1 := bits.Mul64(a1, b1)
	hi2, lo2 := bits.Mul64(a2, b2)
	lo, carry := bits.Add64(lo1, lo2, 0)
	hi, overflow := bits.Add64(hi1, hi2, carry)
	if overflow != 0 {
		panic("CORE_SAFE_MULADDDIV_OVERFLOW")
	}
	if hi >= c {
		panic("CORE_SAFE_MULADDDIV_OVERFLOW")
	}
	q, _ := bits.Div64(hi, lo, c)
	return q
}

// MulDivSigned is MulDiv over signed operands, tracking sign
// separately so the unsigned 128-bit path above can still be used.
func MulDivSigned(a, b, c int64) int64 {
	if c == 0 {
		panic("CORE_SAFE_MULDIV_DIV_BY_ZERO")
	}
	neg := false
	ua, ub, uc := uint64(a), uint64(b), uint64(c)
	if a < 0 {
		neg = !neg
		ua = uint64(-a)
	}
	if b < 0 {
		neg = !neg
		ub = uint64(-b)
	}
	if c < 0 {
		neg = !neg
		uc = uint64(-c)
	}
	res := MulDiv(ua, ub, uc)
	if res > 1<<63 {
		panic("CORE_SAFE_MULDIV_OVERFLOW")
	}
	if neg {
		return -int64(res)
	}
	return int64(res)
}
