package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeat(t *testing.T) {
	for code, want := range map[string]Seat{
		"C7":    {Row: "C", Col: 7},
		"c7":    {Row: "C", Col: 7},
		" a12 ": {Row: "A", Col: 12},
		"AB3":   {Row: "AB", Col: 3},
	} {
		s, err := ParseSeat(code)
		require.NoError(t, err, code)
		assert.Equal(t, want, s, code)
	}
}

func TestParseSeatRejectsMalformed(t *testing.T) {
	for _, code := range []string{"", "C", "7", "C0", "C-1", "C7X", "7C7"} {
		_, err := ParseSeat(code)
		assert.Error(t, err, code)
	}
}

func TestSeatCodeRoundTrip(t *testing.T) {
	s := Seat{Row: "J", Col: 12}
	assert.Equal(t, "J12", s.Code())
	parsed, err := ParseSeat(s.Code())
	require.NoError(t, err)
	assert.Equal(t, s, parsed)
}
