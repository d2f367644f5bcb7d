//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseTwinID checks that parsing never panics on arbitrary input and
// that accepted ids round-trip through their string form.
func FuzzParseTwinID(f *testing.F) {
	f.Add("")
	f.Add("1")
	f.Add("-1")
	f.Add("9223372036854775807")
	f.Add("9223372036854775808")
	f.Add("'; DROP TABLE twins;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseTwinID(input)
		if err != nil {
			return
		}
		if !id.IsValid() {
			t.Errorf("accepted id %d is not valid", id)
		}
		roundTrip, err2 := ParseTwinID(id.String())
		if err2 != nil {
			t.Errorf("valid id failed round-trip: %v", err2)
		}
		if roundTrip != id {
			t.Error("round-trip changed id value")
		}
	})
}

// FuzzParseCategory checks that normalization is idempotent and non-UTF-8
// labels are rejected.
func FuzzParseCategory(f *testing.F) {
	f.Add("heart")
	f.Add(" Liver ")
	f.Add("")
	f.Add(string([]byte{0xff}))

	f.Fuzz(func(t *testing.T, input string) {
		c, err := ParseCategory(input)
		if err != nil {
			return
		}
		if !utf8.ValidString(input) {
			t.Error("non-UTF-8 input was accepted")
		}
		again, err2 := ParseCategory(c.String())
		if err2 != nil {
			t.Errorf("normalized label failed re-parse: %v", err2)
		}
		if again != c {
			t.Error("normalization is not idempotent")
		}
	})
}
