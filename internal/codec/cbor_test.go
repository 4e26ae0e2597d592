package codec_test

import (
	"testing"

	"codeberg.org/mutker/sysfeed/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalIsDeterministicAcrossMapOrder(t *testing.T) {
	first := map[string]any{"b": 2, "a": 1, "c": "x"}
	second := map[string]any{"c": "x", "a": 1, "b": 2}

	left, err := codec.Marshal(first)
	require.NoError(t, err)
	right, err := codec.Marshal(second)
	require.NoError(t, err)

	assert.Equal(t, left, right)
}
