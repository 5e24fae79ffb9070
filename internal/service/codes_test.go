package service

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingCodeRe = regexp.MustCompile(`^[A-Z]{3}[ABCDEFGHJKLMNPQRSTUVWXYZ2-9]{8}$`)

func TestNewBookingCode(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		code, err := NewBookingCode(" htl ")
		require.NoError(t, err)
		require.Regexp(t, bookingCodeRe, code)
		assert.Equal(t, "HTL", code[:3])
		seen[code] = struct{}{}
	}
	// 32^8 вариантов, повтор за тысячу кодов означает сломанный генератор
	assert.Len(t, seen, 1000)
}

func TestNewBookingCode_RejectsPrefix(t *testing.T) {
	for _, prefix := range []string{"", "AB", "ABCD", "A1C", "ШТЛ"} {
		_, err := NewBookingCode(prefix)
		assert.Error(t, err, prefix)
	}
}
