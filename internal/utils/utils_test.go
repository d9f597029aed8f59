package utils

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapFilter(t *testing.T) {
	in := []int{1, 2, 3, 4}

	assert.Equal(t, []string{"1", "2", "3", "4"}, Map(in, strconv.Itoa))
	assert.Equal(t, []int{2, 4}, Filter(in, func(n int) bool { return n%2 == 0 }))
	assert.Equal(t, []int{}, Filter(in, func(int) bool { return false }))
	assert.Empty(t, Map([]int(nil), strconv.Itoa))
}

func TestParseID(t *testing.T) {
	id, err := ParseID(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-3", "x", "1.5"} {
		_, err := ParseID(bad)
		assert.ErrorIs(t, err, ErrBadID, bad)
	}
}

func TestParseOptionalID(t *testing.T) {
	id, err := ParseOptionalID("  ")
	require.NoError(t, err)
	assert.Nil(t, id)

	id, err = ParseOptionalID("7")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(7), *id)

	_, err = ParseOptionalID("nope")
	assert.ErrorIs(t, err, ErrBadID)
}
