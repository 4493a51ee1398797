package llmguard

import (
	"fmt"
	"strings"

	"closetapi/apperrors"
	"closetapi/models"
)

// ValidateTag checks a decoded value against the garment tag schema. The first
// failing field is reported and no partial tag is returned.
func ValidateTag(v any) (models.GarmentTag, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return models.GarmentTag{}, apperrors.NewSchemaError("$", fmt.Sprintf("expected object, got %s", typeName(v)))
	}

	category, err := requireString(obj, "main_category")
	if err != nil {
		return models.GarmentTag{}, err
	}
	if !models.ValidateCategoryRaw(category) {
		return models.GarmentTag{}, apperrors.NewSchemaError("main_category",
			fmt.Sprintf("%q is not one of %s", category, joinEnum(models.Categories)))
	}

	season, err := requireString(obj, "season")
	if err != nil {
		return models.GarmentTag{}, err
	}
	if !models.ValidateSeasonRaw(season) {
		return models.GarmentTag{}, apperrors.NewSchemaError("season",
			fmt.Sprintf("%q is not one of %s", season, joinEnum(models.Seasons)))
	}

	tag := models.GarmentTag{
		MainCategory: models.Category(category),
		Season:       models.Season(season),
	}
	if tag.Type, err = requireString(obj, "type"); err != nil {
		return models.GarmentTag{}, err
	}
	if tag.PrimaryColor, err = requireString(obj, "primary_color"); err != nil {
		return models.GarmentTag{}, err
	}
	if tag.PatternDescription, err = requireString(obj, "pattern_description"); err != nil {
		return models.GarmentTag{}, err
	}
	if tag.SecondaryColors, err = requireStringList(obj, "secondary_colors"); err != nil {
		return models.GarmentTag{}, err
	}
	if tag.VibeTags, err = requireStringList(obj, "vibe_tags"); err != nil {
		return models.GarmentTag{}, err
	}

	if raw, present := obj["name"]; present && raw != nil {
		name, ok := raw.(string)
		if !ok {
			return models.GarmentTag{}, apperrors.NewSchemaError("name", fmt.Sprintf("expected string, got %s", typeName(raw)))
		}
		tag.Name = name
	}

	return tag, nil
}

func requireString(obj map[string]any, field string) (string, error) {
	return requireStringAt(obj, field, field)
}

// requireStringAt reads key from obj and reports failures under path.
func requireStringAt(obj map[string]any, key, path string) (string, error) {
	raw, present := obj[key]
	if !present {
		return "", apperrors.NewSchemaError(path, "missing")
	}
	s, ok := raw.(string)
	if !ok {
		return "", apperrors.NewSchemaError(path, fmt.Sprintf("expected string, got %s", typeName(raw)))
	}
	return s, nil
}

// requireStringList never returns a nil slice so an empty list stays [] on the wire.
func requireStringList(obj map[string]any, field string) ([]string, error) {
	raw, present := obj[field]
	if !present {
		return nil, apperrors.NewSchemaError(field, "missing")
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, apperrors.NewSchemaError(field, fmt.Sprintf("expected list of strings, got %s", typeName(raw)))
	}
	out := make([]string, 0, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, apperrors.NewSchemaError(fmt.Sprintf("%s[%d]", field, i), fmt.Sprintf("expected string, got %s", typeName(item)))
		}
		out = append(out, s)
	}
	return out, nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func joinEnum[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
