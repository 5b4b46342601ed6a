package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTP_LengthAndAlphabet(t *testing.T) {
	for _, length := range []int{4, 6, 8} {
		code, err := generateOTP(length)
		require.NoError(t, err)
		require.Len(t, code, length)

		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9', "code %q contains non-digit", code)
		}
	}
}

func TestGenerateOTP_NotConstant(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		code, err := generateOTP(6)
		require.NoError(t, err)
		seen[code] = true
	}
	// 20 draws from a million-value space colliding down to one value would
	// mean the generator is broken
	assert.Greater(t, len(seen), 1)
}

func TestHashOTP_Deterministic(t *testing.T) {
	assert.Equal(t, hashOTP("123456"), hashOTP("123456"))
	assert.NotEqual(t, hashOTP("123456"), hashOTP("123457"))
	assert.Len(t, hashOTP("123456"), 64) // sha256 hex
}

func TestOTPHashEqual(t *testing.T) {
	a := hashOTP("123456")
	assert.True(t, otpHashEqual(a, hashOTP("123456")))
	assert.False(t, otpHashEqual(a, hashOTP("654321")))
}
