package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC32C(t *testing.T) {
	// Known vector for the Castagnoli polynomial.
	assert.Equal(t, uint32(0xe3069283), CRC32C([]byte("123456789")))
	assert.Equal(t, uint32(0), CRC32C(nil))
}

func TestVerify(t *testing.T) {
	data := []byte("packed element records")
	sum := CRC32C(data)

	require.NoError(t, Verify(data, sum))

	data[0] ^= 0xff
	err := Verify(data, sum)
	require.ErrorIs(t, err, ErrChecksumMismatch)
}
