package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies where a request failed.
type Kind string

const (
	KindInput       Kind = "INPUT"       // 400
	KindFetch       Kind = "FETCH"       // 400
	KindInvocation  Kind = "INVOCATION"  // 500
	KindDecode      Kind = "DECODE"      // 500
	KindSchema      Kind = "SCHEMA"      // 500
	KindReferential Kind = "REFERENTIAL" // 500
	KindComposition Kind = "COMPOSITION" // 500
)

// Rule names a violated outfit composition rule.
type Rule string

const (
	RuleOnepieceConflict  Rule = "onepiece_conflict"
	RuleCardinality       Rule = "cardinality"
	RuleLayerWithoutTop   Rule = "layer_without_top"
	RuleDuplicateOptional Rule = "duplicate_optional"
)

// Invocation failure reasons.
const (
	ReasonNetwork   = "network"
	ReasonAuth      = "auth"
	ReasonRateLimit = "rate_limit"
	ReasonProvider  = "provider"
)

// Error is the single error shape returned by every stylist operation.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	// Raw is the upstream model text. Only set for kinds where CarriesRaw is true.
	Raw     string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// CarriesRaw reports whether errors of this kind keep the model text.
func (k Kind) CarriesRaw() bool {
	switch k {
	case KindDecode, KindSchema, KindReferential, KindComposition:
		return true
	}
	return false
}

// Retryable reports whether re-invoking the model may produce a different outcome.
func (k Kind) Retryable() bool {
	return k != KindInput && k != KindFetch
}

// ParseKind maps a kind name (case sensitive, as in Kind constants) back to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindInput, KindFetch, KindInvocation, KindDecode, KindSchema, KindReferential, KindComposition:
		return k, true
	}
	return "", false
}

// WithRaw returns a copy of e carrying raw. Kinds that never carry raw text are returned unchanged.
func (e *Error) WithRaw(raw string) *Error {
	if !e.Kind.CarriesRaw() {
		return e
	}
	cp := *e
	cp.Raw = raw
	return &cp
}

// Detail returns a details value or nil.
func (e *Error) Detail(key string) any {
	if e.Details == nil {
		return nil
	}
	return e.Details[key]
}

// NewInputError creates a 400 error for missing or malformed request fields.
func NewInputError(field, msg string) *Error {
	err := &Error{
		Kind:    KindInput,
		Status:  http.StatusBadRequest,
		Message: msg,
	}
	if field != "" {
		err.Details = map[string]any{"field": field}
	}
	return err
}

// NewFetchError creates a 400 error for an image that could not be retrieved.
func NewFetchError(url string, cause error) *Error {
	msg := "failed to download image"
	if cause != nil {
		msg = fmt.Sprintf("failed to download image: %v", cause)
	}
	return &Error{
		Kind:    KindFetch,
		Status:  http.StatusBadRequest,
		Message: msg,
		Details: map[string]any{"url": url},
		cause:   cause,
	}
}

// NewInvocationError creates a 500 error for a failed model call.
func NewInvocationError(reason string, cause error) *Error {
	msg := "model invocation failed"
	if cause != nil {
		msg = fmt.Sprintf("model invocation failed: %v", cause)
	}
	return &Error{
		Kind:    KindInvocation,
		Status:  http.StatusInternalServerError,
		Message: msg,
		Details: map[string]any{"reason": reason},
		cause:   cause,
	}
}

// NewDecodeError creates a 500 error for model text that is not valid JSON.
func NewDecodeError(raw string, cause error) *Error {
	msg := "invalid model output format"
	if cause != nil {
		msg = fmt.Sprintf("invalid model output format: %v", cause)
	}
	return &Error{
		Kind:    KindDecode,
		Status:  http.StatusInternalServerError,
		Message: msg,
		Raw:     raw,
		cause:   cause,
	}
}

// NewSchemaError creates a 500 error naming the offending field.
func NewSchemaError(field, msg string) *Error {
	return &Error{
		Kind:    KindSchema,
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("%s: %s", field, msg),
		Details: map[string]any{"field": field},
	}
}

// NewReferentialError creates a 500 error for an item id missing from the wardrobe.
func NewReferentialError(itemID string) *Error {
	return &Error{
		Kind:    KindReferential,
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("outfit references unknown item id %q", itemID),
		Details: map[string]any{"item_id": itemID},
	}
}

// NewCompositionError creates a 500 error for a broken outfit composition rule.
// category and count are omitted from details when empty / negative.
func NewCompositionError(rule Rule, category string, count int) *Error {
	details := map[string]any{"rule": string(rule)}
	msg := string(rule)
	if category != "" {
		details["category"] = category
		msg = fmt.Sprintf("%s: category %s", rule, category)
	}
	if count >= 0 {
		details["count"] = count
		msg = fmt.Sprintf("%s, count %d", msg, count)
	}
	return &Error{
		Kind:    KindComposition,
		Status:  http.StatusInternalServerError,
		Message: msg,
		Details: details,
	}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is checks if err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// IsRule checks if err is a composition error for rule.
func IsRule(err error, rule Rule) bool {
	appErr, ok := As(err)
	if !ok || appErr.Kind != KindComposition {
		return false
	}
	return appErr.Detail("rule") == string(rule)
}
