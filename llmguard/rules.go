package llmguard

import (
	"fmt"

	"closetapi/apperrors"
	"closetapi/models"
)

// RulePolicy holds the outfit composition choices that are not fixed rules.
type RulePolicy struct {
	// RequireShoesWithOnepiece demands exactly one pair of shoes with a onepiece.
	// When false, zero or one is accepted.
	RequireShoesWithOnepiece bool
	// AllowLayerOverOnepiece lets a layer be worn over a onepiece instead of a top.
	AllowLayerOverOnepiece bool
}

func DefaultRulePolicy() RulePolicy {
	return RulePolicy{RequireShoesWithOnepiece: true}
}

// ValidateOutfit checks a decoded {"outfit": [...]} value against the wardrobe
// and the composition rules. Structural, referential and composition checks run
// in that order and the first failure wins.
func ValidateOutfit(v any, wardrobe []models.WardrobeItem, policy RulePolicy) (models.OutfitSelection, error) {
	entries, err := OutfitEntries(v)
	if err != nil {
		return nil, err
	}
	return ValidateSelection(entries, wardrobe, policy)
}

// OutfitEntries performs only the structural checks and returns the entries in order.
func OutfitEntries(v any) (models.OutfitSelection, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, apperrors.NewSchemaError("outfit", fmt.Sprintf("expected object with outfit list, got %s", typeName(v)))
	}
	rawList, present := obj["outfit"]
	if !present {
		return nil, apperrors.NewSchemaError("outfit", "missing")
	}
	list, ok := rawList.([]any)
	if !ok {
		return nil, apperrors.NewSchemaError("outfit", fmt.Sprintf("expected list, got %s", typeName(rawList)))
	}

	selection := make(models.OutfitSelection, 0, len(list))
	for i, raw := range list {
		entry, ok := raw.(map[string]any)
		if !ok {
			return nil, apperrors.NewSchemaError(fmt.Sprintf("outfit[%d].id", i), fmt.Sprintf("expected object, got %s", typeName(raw)))
		}
		parsed, err := entryFields(entry, fmt.Sprintf("outfit[%d].", i))
		if err != nil {
			return nil, err
		}
		selection = append(selection, parsed)
	}
	return selection, nil
}

// SelectionEntry performs the structural checks on a single {"id", "reason"} object.
func SelectionEntry(v any) (models.OutfitSelectionEntry, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return models.OutfitSelectionEntry{}, apperrors.NewSchemaError("$", fmt.Sprintf("expected object with id and reason, got %s", typeName(v)))
	}
	return entryFields(obj, "")
}

func entryFields(obj map[string]any, prefix string) (models.OutfitSelectionEntry, error) {
	id, err := requireStringAt(obj, "id", prefix+"id")
	if err != nil {
		return models.OutfitSelectionEntry{}, err
	}
	reason, err := requireStringAt(obj, "reason", prefix+"reason")
	if err != nil {
		return models.OutfitSelectionEntry{}, err
	}
	return models.OutfitSelectionEntry{ItemID: id, Reason: reason}, nil
}

// ValidateSelection runs the referential and composition checks on already
// structured entries.
func ValidateSelection(selection models.OutfitSelection, wardrobe []models.WardrobeItem, policy RulePolicy) (models.OutfitSelection, error) {
	byID := make(map[string]models.Category, len(wardrobe))
	for _, item := range wardrobe {
		byID[item.ID] = item.MainCategory
	}

	counts := make(map[models.Category]int, len(models.Categories))
	for _, entry := range selection {
		category, ok := byID[entry.ItemID]
		if !ok {
			return nil, apperrors.NewReferentialError(entry.ItemID)
		}
		counts[category]++
	}

	if err := checkComposition(counts, policy); err != nil {
		return nil, err
	}

	out := make(models.OutfitSelection, len(selection))
	copy(out, selection)
	return out, nil
}

func checkComposition(counts map[models.Category]int, policy RulePolicy) error {
	onepieces := counts[models.CategoryOnepiece]
	tops := counts[models.CategoryTop]
	bottoms := counts[models.CategoryBottom]

	if onepieces > 0 && (tops > 0 || bottoms > 0) {
		return apperrors.NewCompositionError(apperrors.RuleOnepieceConflict, "", -1)
	}

	if layers := counts[models.CategoryLayer]; layers > 0 && tops == 0 {
		if !(policy.AllowLayerOverOnepiece && onepieces > 0) {
			return apperrors.NewCompositionError(apperrors.RuleLayerWithoutTop, string(models.CategoryLayer), layers)
		}
	}

	if onepieces > 0 {
		if onepieces != 1 {
			return cardinality(models.CategoryOnepiece, onepieces)
		}
		shoes := counts[models.CategoryShoes]
		if policy.RequireShoesWithOnepiece && shoes != 1 {
			return cardinality(models.CategoryShoes, shoes)
		}
		if shoes > 1 {
			return cardinality(models.CategoryShoes, shoes)
		}
	} else {
		for _, required := range []models.Category{models.CategoryTop, models.CategoryBottom, models.CategoryShoes} {
			if n := counts[required]; n != 1 {
				return cardinality(required, n)
			}
		}
	}

	for _, optional := range []models.Category{models.CategoryOuterwear, models.CategoryAccessory} {
		if n := counts[optional]; n > 1 {
			return apperrors.NewCompositionError(apperrors.RuleDuplicateOptional, string(optional), n)
		}
	}
	return nil
}

func cardinality(category models.Category, count int) error {
	return apperrors.NewCompositionError(apperrors.RuleCardinality, string(category), count)
}
