package llmguard

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"closetapi/apperrors"
)

// Decode parses exactly one JSON value out of candidate. The top-level shape
// is left to the validators.
func Decode(candidate string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(candidate)))
	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty response")
		}
		return nil, apperrors.NewDecodeError(candidate, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, apperrors.NewDecodeError(candidate, errors.New("trailing data after JSON value"))
	}
	return v, nil
}
