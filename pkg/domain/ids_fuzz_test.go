package domain

import (
	"testing"
)

// FuzzParseIDs checks that parsing never panics, never accepts the nil ID, and
// that every parser agrees on what is valid.
func FuzzParseIDs(f *testing.F) {
	for _, seed := range []string{
		"",
		"550e8400-e29b-41d4-a716-446655440000",
		"00000000-0000-0000-0000-000000000000",
		"SLOR001-D001",
		"urn:uuid:550e8400-e29b-41d4-a716-446655440000",
		"550e8400-e29b-41d4-a716-446655440000\x00",
		string([]byte{0xff, 0xfe}),
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		enrollee, err := ParseEnrolleeID(input)
		if err == nil {
			if enrollee.IsNil() {
				t.Fatal("accepted the nil ID")
			}
			again, err := ParseEnrolleeID(enrollee.String())
			if err != nil || again != enrollee {
				t.Fatalf("canonical form %q did not round-trip: %v", enrollee.String(), err)
			}
		}
		for kind, parse := range parsers {
			if _, perr := parse(input); (perr == nil) != (err == nil) {
				t.Fatalf("%s parser disagrees on %q", kind, input)
			}
		}
	})
}
