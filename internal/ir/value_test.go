package ir

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueDisplay(t *testing.T) {
	assert.Equal(t, "0x1", Address(big.NewInt(1)).String())
	assert.Equal(t, "-5", Number(-5).String())
	assert.Equal(t, "true", BoolValue(true).String())
	assert.Equal(t, "[1, 2]", ByteArrayValue{1, 2}.String())
	assert.NotEqual(t, Number(1).Key(), Address(big.NewInt(1)).Key(), "keys are tagged by variant")
}

func TestMaxAddress(t *testing.T) {
	expected := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	assert.Equal(t, 0, MaxAddress.Cmp(expected))

	script := ModuleName{Addr: new(big.Int).Set(MaxAddress)}
	assert.True(t, script.IsScript())
	assert.False(t, ModuleName{Addr: big.NewInt(1)}.IsScript())
}

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress("0x2a")
	require.NoError(t, err)
	assert.Equal(t, int64(42), a.Int64())

	a, err = ParseAddress("ff")
	require.NoError(t, err)
	assert.Equal(t, int64(255), a.Int64())

	_, err = ParseAddress("0xnothex")
	assert.Error(t, err)

	_, err = ParseAddress("0x1" + maxAddressHex)
	assert.Error(t, err)
}
