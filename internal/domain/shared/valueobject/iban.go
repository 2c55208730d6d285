package valueobject

import (
	"fmt"
	"strings"
)

// IBAN is a validated International Bank Account Number.
// The zero value is invalid; construct through NewIBAN.
type IBAN struct {
	value string
}

// ibanLengths maps country codes to their registered IBAN lengths.
// Only countries the application actually deals with are listed; other
// codes fall back to the 15..34 range check plus the mod-97 checksum.
var ibanLengths = map[string]int{
	"TR": 26,
	"DE": 22,
	"FR": 27,
	"GB": 22,
	"NL": 18,
	"CH": 21,
}

// NewIBAN validates and normalizes an IBAN string.
// Validation covers character set, country-specific length where known,
// and the ISO 13616 mod-97 checksum.
func NewIBAN(raw string) (IBAN, error) {
	s := strings.ToUpper(strings.ReplaceAll(raw, " ", ""))
	if len(s) < 15 || len(s) > 34 {
		return IBAN{}, fmt.Errorf("iban length %d out of range", len(s))
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return IBAN{}, fmt.Errorf("iban contains invalid character %q", r)
		}
	}
	country := s[:2]
	if country[0] < 'A' || country[1] < 'A' {
		return IBAN{}, fmt.Errorf("iban country code %q is not alphabetic", country)
	}
	if want, ok := ibanLengths[country]; ok && len(s) != want {
		return IBAN{}, fmt.Errorf("iban for %s must be %d characters, got %d", country, want, len(s))
	}
	if mod97(s[4:] + s[:4]) != 1 {
		return IBAN{}, fmt.Errorf("iban checksum failed for %s", s)
	}
	return IBAN{value: s}, nil
}

// mod97 computes the ISO 7064 mod-97 remainder of the rearranged IBAN,
// expanding letters to their numeric values (A=10 .. Z=35) and reducing
// incrementally to avoid big-integer arithmetic.
func mod97(s string) int {
	rem := 0
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			n := int(r-'A') + 10
			rem = (rem*100 + n) % 97
		} else {
			rem = (rem*10 + int(r-'0')) % 97
		}
	}
	return rem
}

// String returns the normalized IBAN
func (i IBAN) String() string {
	return i.value
}

// CountryCode returns the two-letter country prefix
func (i IBAN) CountryCode() string {
	if len(i.value) < 2 {
		return ""
	}
	return i.value[:2]
}

// IsZero returns true for an unconstructed IBAN
func (i IBAN) IsZero() bool {
	return i.value == ""
}
