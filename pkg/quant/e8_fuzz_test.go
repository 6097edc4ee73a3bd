package quant

import "testing"

// FuzzParseE8 checks ParseE8 never panics and that any value it accepts
// round-trips through formatE8 back to an equal integer.
func FuzzParseE8(f *testing.F) {
	f.Add("0")
	f.Add("1.23")
	f.Add("-1.23")
	f.Add("0.00000001")
	f.Add("9999999999.99999999")
	f.Add("+5")
	f.Add(".25")

	f.Fuzz(func(t *testing.T, s string) {
		v, err := ParseE8(s)
		if err != nil {
			return
		}
		back := formatE8(v)
		v2, err := ParseE8(back)
		if err != nil {
			t.Fatalf("re-parse of formatted value %q failed: %v", back, err)
		}
		if v != v2 {
			t.Fatalf("round trip mismatch for %q: %d != %d", s, v, v2)
		}
	})
}

// FuzzParseTimeStamp ensures malformed input is rejected, never panics.
func FuzzParseTimeStamp(f *testing.F) {
	f.Add("0")
	f.Add("1704067200000")
	f.Add("-1")
	f.Add("9223372036854775807")

	f.Fuzz(func(t *testing.T, s string) {
		_, _ = ParseTimeStamp(s)
	})
}
