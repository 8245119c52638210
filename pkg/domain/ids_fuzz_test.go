package domain

import (
	"testing"
)

// FuzzParseAccount checks that parsing never panics and that every accepted
// account round-trips through its string form.
func FuzzParseAccount(f *testing.F) {
	f.Add("")
	f.Add("0x8ba1f109551bd432803012645ac136ddd64dba72")
	f.Add("0x0000000000000000000000000000000000000000")
	f.Add("'; DROP TABLE registry_records;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		a, err := ParseAccount(input)
		if err != nil {
			return
		}
		if a.IsZero() {
			t.Error("zero account was accepted")
		}
		again, err := ParseAccount(a.String())
		if err != nil {
			t.Errorf("valid account failed round-trip: %v", err)
		}
		if again != a {
			t.Error("round-trip changed account value")
		}
	})
}

// FuzzParseContentHash checks that accepted hashes round-trip.
func FuzzParseContentHash(f *testing.F) {
	f.Add("")
	f.Add("0x0000000000000000000000000000000000000000000000000000000000000001")
	f.Add("0xzz")

	f.Fuzz(func(t *testing.T, input string) {
		h, err := ParseContentHash(input)
		if err != nil {
			return
		}
		again, err := ParseContentHash(h.String())
		if err != nil || again != h {
			t.Errorf("hash failed round-trip: %v", err)
		}
	})
}
