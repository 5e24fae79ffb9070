package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		region string
		in     string
		want   string
	}{
		{"DE", "0151 23456789", "4915123456789"},
		{"DE", "+49 151 23456789", "4915123456789"},
		{"DE", "0049 151 23456789", "4915123456789"},
		{"RU", "+7 (999) 123-45-67", "79991234567"},
		{"RU", "8 999 123-45-67", "79991234567"},
		{"us", "(415) 555-0100", "14155550100"},
		{"DE", "+62 812-3456-7890", "6281234567890"},
	}
	for _, tc := range cases {
		got, err := NormalizePhone(tc.in, tc.region)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestNormalizePhone_NationalMatchesInternational(t *testing.T) {
	national, err := NormalizePhone("0151 23456789", "DE")
	require.NoError(t, err)

	international, err := NormalizePhone("+49 151 23456789", "RU")
	require.NoError(t, err)

	assert.Equal(t, international, national)
}

func TestNormalizePhone_Rejects(t *testing.T) {
	for _, in := range []string{"", "   ", "not a phone", "12345", "+49 1", "+7 999 123 45 67 89 01"} {
		_, err := NormalizePhone(in, "RU")
		assert.ErrorIs(t, err, ErrInvalidPhone, in)
	}

	// без региона национальный номер не разобрать
	_, err := NormalizePhone("0151 23456789", "")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestValidRegion(t *testing.T) {
	assert.True(t, ValidRegion("DE"))
	assert.True(t, ValidRegion("ru"))
	assert.False(t, ValidRegion(""))
	assert.False(t, ValidRegion("XX"))
}
