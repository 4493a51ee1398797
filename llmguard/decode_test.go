package llmguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"closetapi/apperrors"
)

func TestDecode(t *testing.T) {
	v, err := Decode(`{"main_category":"top","vibe_tags":["casual"]}`)
	require.NoError(t, err)
	obj, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "top", obj["main_category"])
	assert.Equal(t, []any{"casual"}, obj["vibe_tags"])

	v, err = Decode(`[1, 2]`)
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), float64(2)}, v)

	v, err = Decode(" \"just a string\" \n")
	require.NoError(t, err)
	assert.Equal(t, "just a string", v)
}

func TestDecode_Failures(t *testing.T) {
	inputs := []string{
		"",
		"not json",
		`{"a":1`,
		`{"a":1} trailing`,
		`{"a":1}{"b":2}`,
		`{'a':1}`,
		"```json\n{}\n```",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := Decode(in)
			require.Error(t, err)
			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.KindDecode, appErr.Kind)
			assert.Equal(t, in, appErr.Raw)
		})
	}
}
