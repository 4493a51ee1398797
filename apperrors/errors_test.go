package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	err := NewSchemaError("season", "must be one of spring, summer, fall, winter, all")
	assert.Equal(t, "SCHEMA: season: must be one of spring, summer, fall, winter, all", err.Error())
}

func TestStatusByKind(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		status int
	}{
		{"input", NewInputError("image_url", "No image_url provided"), http.StatusBadRequest},
		{"fetch", NewFetchError("https://example.com/a.jpg", errors.New("status 404")), http.StatusBadRequest},
		{"invocation", NewInvocationError(ReasonRateLimit, errors.New("429")), http.StatusInternalServerError},
		{"decode", NewDecodeError("not json", nil), http.StatusInternalServerError},
		{"schema", NewSchemaError("main_category", "missing"), http.StatusInternalServerError},
		{"referential", NewReferentialError("ghost"), http.StatusInternalServerError},
		{"composition", NewCompositionError(RuleCardinality, "top", 2), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
		})
	}
}

func TestWithRaw(t *testing.T) {
	schema := NewSchemaError("season", "missing")
	withRaw := schema.WithRaw(`{"main_category":"top"}`)
	assert.Equal(t, `{"main_category":"top"}`, withRaw.Raw)
	assert.Empty(t, schema.Raw, "original must not be mutated")

	input := NewInputError("context", "Missing wardrobe or context")
	assert.Empty(t, input.WithRaw("anything").Raw)

	invocation := NewInvocationError(ReasonAuth, nil)
	assert.Empty(t, invocation.WithRaw("anything").Raw)
}

func TestCompositionDetails(t *testing.T) {
	err := NewCompositionError(RuleCardinality, "top", 2)
	assert.Equal(t, "cardinality", err.Detail("rule"))
	assert.Equal(t, "top", err.Detail("category"))
	assert.Equal(t, 2, err.Detail("count"))

	conflict := NewCompositionError(RuleOnepieceConflict, "", -1)
	assert.Nil(t, conflict.Detail("category"))
	assert.Nil(t, conflict.Detail("count"))
	assert.Equal(t, "COMPOSITION: onepiece_conflict", conflict.Error())
}

func TestAsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("generate outfit: %w", NewReferentialError("shoe9"))

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindReferential, appErr.Kind)
	assert.Equal(t, "shoe9", appErr.Detail("item_id"))

	assert.True(t, Is(wrapped, KindReferential))
	assert.False(t, Is(wrapped, KindSchema))
	assert.False(t, Is(errors.New("plain"), KindSchema))
}

func TestIsRule(t *testing.T) {
	err := fmt.Errorf("validate: %w", NewCompositionError(RuleLayerWithoutTop, "layer", -1))
	assert.True(t, IsRule(err, RuleLayerWithoutTop))
	assert.False(t, IsRule(err, RuleCardinality))
	assert.False(t, IsRule(NewSchemaError("outfit", "missing"), RuleCardinality))
}

func TestUnwrapCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewInvocationError(ReasonNetwork, cause)
	assert.ErrorIs(t, err, cause)
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("DECODE")
	assert.True(t, ok)
	assert.Equal(t, KindDecode, k)

	_, ok = ParseKind("decode")
	assert.False(t, ok)
}

func TestRetryable(t *testing.T) {
	assert.False(t, KindInput.Retryable())
	assert.False(t, KindFetch.Retryable())
	assert.True(t, KindDecode.Retryable())
	assert.True(t, KindInvocation.Retryable())
}
