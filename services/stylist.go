package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"closetapi/apperrors"
	"closetapi/languageutil"
	"closetapi/llmguard"
	"closetapi/metrics"
	"closetapi/models"
)

const (
	OperationTag        = "tag"
	OperationOutfit     = "outfit"
	OperationSingleItem = "single_item"
	OperationName       = "outfit_name"
	OperationStepwise   = "stepwise_outfit"

	LockedReason = "Locked"

	DefaultTagTemperature   float32 = 0.2
	DefaultStyleTemperature float32 = 0.5
	DefaultNameTemperature  float32 = 0.7
)

// RetryPolicy decides whether a failed model response is worth another call.
// The zero value makes a single attempt.
type RetryPolicy struct {
	MaxAttempts int
	RetryOn     []apperrors.Kind
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) ShouldRetry(err error) bool {
	appErr, ok := apperrors.As(err)
	if !ok || !appErr.Kind.Retryable() {
		return false
	}
	return slices.Contains(p.RetryOn, appErr.Kind)
}

type StylistServiceProvider interface {
	TagImage(ctx context.Context, imageURL string) (models.GarmentTag, error)
	GenerateOutfit(ctx context.Context, request OutfitRequest) (models.OutfitSelection, error)
	StyleSingleItem(ctx context.Context, request SingleItemRequest) (models.OutfitSelection, error)
	NameOutfit(ctx context.Context, request NameRequest) (string, error)
	StyleStepwise(ctx context.Context, request StepwiseRequest) (models.OutfitSelection, error)
}

type OutfitRequest struct {
	Context       string
	Wardrobe      []models.WardrobeItem
	RecentItemIDs []string
	LockedItemIDs []string
}

type SingleItemRequest struct {
	Context     string
	Vibe        string
	Season      string
	Temperature *float64
	Wardrobe    []models.WardrobeItem
	LockedItem  models.WardrobeItem
}

type StepwiseRequest struct {
	Context     string
	Vibe        string
	Season      string
	Temperature *float64
	Wardrobe    []models.WardrobeItem
}

type NameRequest struct {
	Vibe        string
	Context     string
	Season      string
	Temperature *float64
	Items       []string
}

// StylistService runs the model, then the extract, decode and validate pipeline.
// Archive and Metrics are optional.
type StylistService struct {
	LLM     LLMProcessor
	Images  ImageFetcher
	Archive FailureArchiver
	Policy  llmguard.RulePolicy
	Retry   RetryPolicy
	Metrics *metrics.Registry
	// Timeout bounds a single model call. Zero means only ctx applies.
	Timeout          time.Duration
	TagTemperature   *float32
	StyleTemperature *float32
	NameTemperature  *float32
}

func NewStylistService(llm LLMProcessor, images ImageFetcher) *StylistService {
	return &StylistService{
		LLM:              llm,
		Images:           images,
		Policy:           llmguard.DefaultRulePolicy(),
		TagTemperature:   floatPointer(DefaultTagTemperature),
		StyleTemperature: floatPointer(DefaultStyleTemperature),
		NameTemperature:  floatPointer(DefaultNameTemperature),
	}
}

// TagImage downloads the image and classifies it into a GarmentTag.
func (s *StylistService) TagImage(ctx context.Context, imageURL string) (models.GarmentTag, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return models.GarmentTag{}, apperrors.NewInputError("image_url", "No image_url provided")
	}
	image, err := s.Images.Fetch(ctx, imageURL)
	if err != nil {
		if _, ok := apperrors.As(err); !ok {
			err = apperrors.NewFetchError(imageURL, err)
		}
		s.recordFailure(ctx, OperationTag, err, "", 0)
		return models.GarmentTag{}, err
	}

	prompt := Prompt{
		System:      TagSystemPrompt(),
		Text:        "Tag this clothing item.",
		Image:       image,
		ForceJSON:   true,
		Temperature: s.TagTemperature,
	}
	var tag models.GarmentTag
	err = s.run(ctx, OperationTag, prompt, func(raw string) error {
		decoded, err := decodeModelText(raw)
		if err != nil {
			return err
		}
		tag, err = llmguard.ValidateTag(decoded)
		return withRaw(err, raw)
	})
	if err != nil {
		return models.GarmentTag{}, err
	}
	return tag, nil
}

// GenerateOutfit asks the model for an outfit from the wardrobe. Locked items are
// always part of the result and come first.
func (s *StylistService) GenerateOutfit(ctx context.Context, request OutfitRequest) (models.OutfitSelection, error) {
	if err := validateOutfitRequest(request); err != nil {
		return nil, err
	}
	prompt := Prompt{
		System:      OutfitSystemPrompt(s.Policy.RequireShoesWithOnepiece, s.Policy.AllowLayerOverOnepiece),
		Text:        OutfitUserPrompt(request),
		ForceJSON:   true,
		Temperature: s.StyleTemperature,
	}
	return s.selectOutfit(ctx, OperationOutfit, prompt, request.Wardrobe, request.LockedItemIDs)
}

// StyleSingleItem builds an outfit around one locked item. The locked item is
// hidden from the wardrobe the model sees so it cannot be picked twice.
func (s *StylistService) StyleSingleItem(ctx context.Context, request SingleItemRequest) (models.OutfitSelection, error) {
	if len(request.Wardrobe) == 0 {
		return nil, apperrors.NewInputError("wardrobe", "Missing wardrobe or locked_item")
	}
	locked := request.LockedItem
	if strings.TrimSpace(locked.ID) == "" {
		return nil, apperrors.NewInputError("locked_item", "Missing wardrobe or locked_item")
	}
	if !locked.MainCategory.Valid() {
		return nil, apperrors.NewInputError("locked_item.main_category", fmt.Sprintf("unknown main_category %q", locked.MainCategory))
	}

	visible := make([]models.WardrobeItem, 0, len(request.Wardrobe))
	for _, item := range request.Wardrobe {
		if item.ID != locked.ID {
			visible = append(visible, item)
		}
	}
	full := append(slices.Clone(visible), locked)
	if err := validateWardrobe(full); err != nil {
		return nil, err
	}

	styleContext := StyleContext(request.Context, request.Vibe, request.Season, request.Temperature)
	if styleContext == "" {
		styleContext = "Everyday outfit"
	}
	prompt := Prompt{
		System: OutfitSystemPrompt(s.Policy.RequireShoesWithOnepiece, s.Policy.AllowLayerOverOnepiece) +
			fmt.Sprintf("\n\nBuild the outfit around the locked item %s. Do NOT replace or duplicate it, and pick no other %s.",
				mustJSON(locked), locked.MainCategory),
		Text: OutfitUserPrompt(OutfitRequest{
			Context:  styleContext,
			Wardrobe: visible,
		}),
		ForceJSON:   true,
		Temperature: s.StyleTemperature,
	}
	return s.selectOutfit(ctx, OperationSingleItem, prompt, full, []string{locked.ID})
}

// NameOutfit returns a short title-cased name for a set of item descriptions.
func (s *StylistService) NameOutfit(ctx context.Context, request NameRequest) (string, error) {
	switch {
	case strings.TrimSpace(request.Vibe) == "":
		return "", apperrors.NewInputError("vibe", "Missing fields")
	case strings.TrimSpace(request.Context) == "":
		return "", apperrors.NewInputError("context", "Missing fields")
	case len(request.Items) == 0:
		return "", apperrors.NewInputError("items", "Missing fields")
	}

	prompt := Prompt{
		System:      nameSystemPrompt,
		Text:        OutfitNamePrompt(request),
		Temperature: s.NameTemperature,
	}
	var name string
	err := s.run(ctx, OperationName, prompt, func(raw string) error {
		name = languageutil.NormalizeOutfitName(llmguard.Extract(raw))
		if name == "" {
			return apperrors.NewSchemaError("name", "empty outfit name").WithRaw(raw)
		}
		return nil
	})
	return name, err
}

// StyleStepwise builds an outfit one category at a time. Each model call only
// sees that category's items and the picks made so far; the combined outfit
// still goes through the composition rules.
func (s *StylistService) StyleStepwise(ctx context.Context, request StepwiseRequest) (models.OutfitSelection, error) {
	if len(request.Wardrobe) == 0 {
		return nil, apperrors.NewInputError("wardrobe", "Missing wardrobe")
	}
	if err := validateWardrobe(request.Wardrobe); err != nil {
		return nil, err
	}
	byCategory := make(map[models.Category][]models.WardrobeItem, len(models.Categories))
	for _, item := range request.Wardrobe {
		byCategory[item.MainCategory] = append(byCategory[item.MainCategory], item)
	}
	plan, err := stepwisePlan(byCategory, s.Policy)
	if err != nil {
		return nil, err
	}

	styleContext := StyleContext(request.Context, request.Vibe, request.Season, request.Temperature)
	if styleContext == "" {
		styleContext = "Everyday outfit"
	}

	picked := models.OutfitSelection{}
	raws := make([]string, 0, len(plan))
	for _, category := range plan {
		options := byCategory[category]
		prompt := Prompt{
			System:      stepwiseSystemPrompt,
			Text:        StepwiseUserPrompt(category, styleContext, picked, options),
			ForceJSON:   true,
			Temperature: s.StyleTemperature,
		}
		var entry models.OutfitSelectionEntry
		err := s.run(ctx, OperationStepwise, prompt, func(raw string) error {
			decoded, err := decodeModelText(raw)
			if err != nil {
				return err
			}
			entry, err = llmguard.SelectionEntry(decoded)
			if err != nil {
				return withRaw(err, raw)
			}
			if !slices.ContainsFunc(options, func(item models.WardrobeItem) bool { return item.ID == entry.ItemID }) {
				appErr := apperrors.NewReferentialError(entry.ItemID).WithRaw(raw)
				appErr.Details["category"] = string(category)
				return appErr
			}
			raws = append(raws, raw)
			return nil
		})
		if err != nil {
			return nil, err
		}
		picked = append(picked, entry)
	}

	selection, err := llmguard.ValidateSelection(picked, request.Wardrobe, s.Policy)
	if err != nil {
		err = withRaw(err, strings.Join(raws, "\n"))
		s.recordFailure(ctx, OperationStepwise, err, "", len(plan))
		return nil, err
	}
	return selection, nil
}

// stepwisePlan orders the categories to pick. A onepiece stands in for top and
// bottom when the wardrobe lacks either; accessory and outerwear are picked
// only when the wardrobe has them.
func stepwisePlan(byCategory map[models.Category][]models.WardrobeItem, policy llmguard.RulePolicy) ([]models.Category, error) {
	var plan []models.Category
	onepiece := false
	switch {
	case len(byCategory[models.CategoryTop]) > 0 && len(byCategory[models.CategoryBottom]) > 0:
		plan = append(plan, models.CategoryTop, models.CategoryBottom)
	case len(byCategory[models.CategoryOnepiece]) > 0:
		plan = append(plan, models.CategoryOnepiece)
		onepiece = true
	default:
		return nil, apperrors.NewInputError("wardrobe", "wardrobe needs a top and a bottom, or a onepiece")
	}

	switch {
	case len(byCategory[models.CategoryShoes]) > 0:
		plan = append(plan, models.CategoryShoes)
	case onepiece && !policy.RequireShoesWithOnepiece:
	default:
		return nil, apperrors.NewInputError("wardrobe", "wardrobe needs shoes")
	}

	for _, optional := range []models.Category{models.CategoryAccessory, models.CategoryOuterwear} {
		if len(byCategory[optional]) > 0 {
			plan = append(plan, optional)
		}
	}
	return plan, nil
}

func (s *StylistService) selectOutfit(ctx context.Context, operation string, prompt Prompt, wardrobe []models.WardrobeItem, lockedIDs []string) (models.OutfitSelection, error) {
	var selection models.OutfitSelection
	err := s.run(ctx, operation, prompt, func(raw string) error {
		decoded, err := decodeModelText(raw)
		if err != nil {
			return err
		}
		entries, err := llmguard.OutfitEntries(decoded)
		if err != nil {
			return withRaw(err, raw)
		}
		selection, err = llmguard.ValidateSelection(mergeLocked(lockedIDs, entries), wardrobe, s.Policy)
		return withRaw(err, raw)
	})
	if err != nil {
		return nil, err
	}
	return selection, nil
}

// mergeLocked puts locked entries first and drops model entries that repeat them.
func mergeLocked(lockedIDs []string, entries models.OutfitSelection) models.OutfitSelection {
	if len(lockedIDs) == 0 {
		return entries
	}
	merged := make(models.OutfitSelection, 0, len(lockedIDs)+len(entries))
	locked := make(map[string]bool, len(lockedIDs))
	for _, id := range lockedIDs {
		if locked[id] {
			continue
		}
		locked[id] = true
		merged = append(merged, models.OutfitSelectionEntry{ItemID: id, Reason: LockedReason})
	}
	for _, entry := range entries {
		if !locked[entry.ItemID] {
			merged = append(merged, entry)
		}
	}
	return merged
}

// run calls the model until parse accepts a response or the retry policy gives up.
func (s *StylistService) run(ctx context.Context, operation string, prompt Prompt, parse func(raw string) error) error {
	logger := log.Ctx(ctx).With().Str("operation", operation).Logger()
	attempts := s.Retry.attempts()

	var lastErr error
	var model string
	attempt := 1
	for ; attempt <= attempts; attempt++ {
		s.Metrics.Inc(ctx, metrics.StylistAttemptsTotal, map[string]string{"operation": operation}, 1)

		response, err := s.generate(ctx, prompt)
		if err != nil {
			lastErr = ClassifyInvocationError(err)
		} else {
			model = response.Model
			lastErr = parse(response.Response)
		}
		if lastErr == nil {
			return nil
		}
		if attempt == attempts || !s.Retry.ShouldRetry(lastErr) || ctx.Err() != nil {
			break
		}
		logger.Warn().Err(lastErr).Int("attempt", attempt).Msg("model response rejected, retrying")
		prompt.Text += correctionNote(lastErr)
	}

	s.recordFailure(ctx, operation, lastErr, model, attempt)
	return lastErr
}

func (s *StylistService) generate(ctx context.Context, prompt Prompt) (*LLMResponse, error) {
	if s.Timeout <= 0 {
		return s.LLM.Generate(ctx, prompt)
	}
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	return s.LLM.Generate(ctx, prompt)
}

func (s *StylistService) recordFailure(ctx context.Context, operation string, err error, model string, attempt int) {
	appErr, ok := apperrors.As(err)
	if !ok {
		log.Ctx(ctx).Error().Err(err).Str("operation", operation).Msg("stylist failure")
		return
	}
	s.Metrics.Inc(ctx, metrics.StylistFailuresTotal, map[string]string{
		"operation": operation,
		"kind":      string(appErr.Kind),
	}, 1)

	event := log.Ctx(ctx).Warn()
	if appErr.Status >= 500 {
		event = log.Ctx(ctx).Error()
	}
	event.Str("operation", operation).
		Str("kind", string(appErr.Kind)).
		Interface("details", appErr.Details).
		Int("attempt", attempt).
		Msg(appErr.Message)

	if s.Archive == nil || appErr.Raw == "" {
		return
	}
	archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	archiveErr := s.Archive.ArchiveFailure(archiveCtx, FailureRecord{
		Operation: operation,
		Kind:      appErr.Kind,
		Message:   appErr.Message,
		Raw:       appErr.Raw,
		Details:   appErr.Details,
		Model:     model,
		Attempt:   attempt,
		CreatedAt: time.Now(),
	})
	if archiveErr != nil {
		log.Ctx(ctx).Error().Err(archiveErr).Msg("failed to archive model failure")
	}
}

// decodeModelText extracts and decodes; a DECODE error carries the full model text.
func decodeModelText(raw string) (any, error) {
	decoded, err := llmguard.Decode(llmguard.Extract(raw))
	if err != nil {
		return nil, withRaw(err, raw)
	}
	return decoded, nil
}

func withRaw(err error, raw string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.As(err); ok {
		return appErr.WithRaw(raw)
	}
	return err
}

func validateOutfitRequest(request OutfitRequest) error {
	if strings.TrimSpace(request.Context) == "" {
		return apperrors.NewInputError("context", "Missing wardrobe or context")
	}
	if len(request.Wardrobe) == 0 {
		return apperrors.NewInputError("wardrobe", "Missing wardrobe or context")
	}
	if err := validateWardrobe(request.Wardrobe); err != nil {
		return err
	}
	known := make(map[string]bool, len(request.Wardrobe))
	for _, item := range request.Wardrobe {
		known[item.ID] = true
	}
	for _, id := range request.LockedItemIDs {
		if !known[id] {
			return apperrors.NewInputError("locked_items", fmt.Sprintf("locked item %q is not in the wardrobe", id))
		}
	}
	return nil
}

func validateWardrobe(wardrobe []models.WardrobeItem) error {
	seen := make(map[string]bool, len(wardrobe))
	for i, item := range wardrobe {
		if strings.TrimSpace(item.ID) == "" {
			return apperrors.NewInputError(fmt.Sprintf("wardrobe[%d].id", i), "wardrobe item without id")
		}
		if seen[item.ID] {
			return apperrors.NewInputError(fmt.Sprintf("wardrobe[%d].id", i), fmt.Sprintf("duplicate wardrobe id %q", item.ID))
		}
		seen[item.ID] = true
		if !item.MainCategory.Valid() {
			return apperrors.NewInputError(fmt.Sprintf("wardrobe[%d].main_category", i), fmt.Sprintf("unknown main_category %q", item.MainCategory))
		}
	}
	return nil
}
