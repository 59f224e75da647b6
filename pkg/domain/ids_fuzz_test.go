//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParsePrincipalID checks that parsing never panics and that accepted
// principals round-trip unchanged.
func FuzzParsePrincipalID(f *testing.F) {
	f.Add("")
	f.Add("alice")
	f.Add("  bob  ")
	f.Add("'; DROP TABLE vaults;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		p, err := ParsePrincipalID(input)
		if err != nil {
			return
		}
		if !utf8.ValidString(input) {
			t.Error("non-UTF8 input was accepted")
		}
		again, err := ParsePrincipalID(p.String())
		if err != nil {
			t.Errorf("accepted principal failed round-trip: %v", err)
		}
		if again != p {
			t.Error("round-trip changed principal")
		}
	})
}

func FuzzParseVaultID(f *testing.F) {
	f.Add("1")
	f.Add("0")
	f.Add("18446744073709551615")
	f.Add("18446744073709551616")

	f.Fuzz(func(t *testing.T, input string) {
		v, err := ParseVaultID(input)
		if err != nil {
			return
		}
		if v.IsNil() {
			t.Error("zero vault id was accepted")
		}
		again, err := ParseVaultID(v.String())
		if err != nil || again != v {
			t.Errorf("vault id %q failed round-trip", input)
		}
	})
}
