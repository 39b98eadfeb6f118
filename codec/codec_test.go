package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y int
}

func TestJSONRoundTrip(t *testing.T) {
	c := JSON[point]()
	want := point{X: 1, Y: 2}

	b, err := c.Encode(want)
	require.NoError(t, err)

	got, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestBytesIdentity(t *testing.T) {
	c := Bytes()
	want := []byte("hello")

	b, err := c.Encode(want)
	require.NoError(t, err)
	assert.Equal(t, want, b)

	got, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStringIdentity(t *testing.T) {
	c := String()
	b, err := c.Encode("hi")
	require.NoError(t, err)
	got, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "hi", got)
}

func TestAnyRoundTrip(t *testing.T) {
	c := Any()
	want := map[string]any{"a": "b", "n": float64(3)}

	b, err := c.Encode(want)
	require.NoError(t, err)

	got, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
