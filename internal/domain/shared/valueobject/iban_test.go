package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIBAN_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"turkish iban", "TR330006100519786457841326", "TR330006100519786457841326"},
		{"german iban", "DE89370400440532013000", "DE89370400440532013000"},
		{"uk iban with letters in bban", "GB29NWBK60161331926819", "GB29NWBK60161331926819"},
		{"lowercase and spaces normalized", "tr33 0006 1005 1978 6457 8413 26", "TR330006100519786457841326"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iban, err := NewIBAN(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, iban.String())
		})
	}
}

func TestNewIBAN_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"too short", "TR12345"},
		{"bad checksum", "TR340006100519786457841326"},
		{"wrong length for country", "TR33000610051978645784132"},
		{"invalid character", "TR33-006100519786457841326"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIBAN(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestIBAN_CountryCode(t *testing.T) {
	iban, err := NewIBAN("TR330006100519786457841326")
	require.NoError(t, err)
	assert.Equal(t, "TR", iban.CountryCode())
	assert.False(t, iban.IsZero())
	assert.True(t, IBAN{}.IsZero())
}
