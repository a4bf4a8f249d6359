package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p, err := Parse("", "")
	require.NoError(t, err)
	assert.Equal(t, Params{Skip: 0, Limit: DefaultLimit}, p)

	p, err = Parse("40", "500")
	require.NoError(t, err)
	assert.Equal(t, Params{Skip: 40, Limit: MaxLimit}, p)

	_, err = Parse("-1", "")
	assert.Error(t, err)
	_, err = Parse("", "abc")
	assert.Error(t, err)
	_, err = Parse("", "0")
	assert.Error(t, err)
}

func TestHasMore(t *testing.T) {
	p := Params{Skip: 20, Limit: 20}
	assert.True(t, HasMore(p, 20, 41))
	assert.False(t, HasMore(p, 20, 40))
	assert.False(t, HasMore(Params{Limit: 20}, 0, 0))
}
