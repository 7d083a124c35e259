package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsV7(t *testing.T) {
	v := New()
	assert.Equal(t, 7, int(v.Version()))
	assert.False(t, IsNil(v))
}

func TestParse(t *testing.T) {
	v := New()
	parsed, err := Parse(v.String())
	require.NoError(t, err)
	assert.Equal(t, v, parsed)

	_, err = Parse("not-a-uuid")
	assert.Error(t, err)
}

func TestSortedUnique(t *testing.T) {
	a := MustParse("00000000-0000-7000-8000-000000000001")
	b := MustParse("00000000-0000-7000-8000-000000000002")
	c := MustParse("ffffffff-0000-7000-8000-000000000000")

	assert.Equal(t, []ID{a, b, c}, SortedUnique([]ID{c, a, b, a, c}))
	assert.Empty(t, SortedUnique(nil))
}
