package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"closetapi/apperrors"
	"closetapi/dbhelper"
	"closetapi/languageutil"
	"closetapi/metrics"
	"closetapi/models"
	"closetapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	TypeDailyOutfits       = "outfits:daily"
	TypeDailyProfileOutfit = "outfits:daily_profile"

	QueueOutfits = "outfits"

	DailyOutfitContext = "Daily automated fit"
	dateLayout         = "2006-01-02"
)

type DailyOutfitsPayload struct {
	// Date is YYYY-MM-DD. Empty means the day the task runs (UTC).
	Date string `json:"date,omitempty"`
}

type DailyProfileOutfitPayload struct {
	ProfileID uint   `json:"profile_id"`
	Date      string `json:"date"`
}

func NewDailyOutfitsTask() *asynq.Task {
	return asynq.NewTask(TypeDailyOutfits, []byte("{}"))
}

func NewDailyProfileOutfitTask(profileID uint, date string) (*asynq.Task, error) {
	payload, err := json.Marshal(DailyProfileOutfitPayload{ProfileID: profileID, Date: date})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDailyProfileOutfit, payload), nil
}

// Enqueuer is the part of *asynq.Client the fan out needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// DailyOutfitHandler generates one outfit per profile per day.
// Notifier and Metrics are optional.
type DailyOutfitHandler struct {
	Store    dbhelper.OutfitStore
	Stylist  services.StylistServiceProvider
	Weather  services.WeatherProvider
	Notifier services.Notifier
	Queue    Enqueuer
	Metrics  *metrics.Registry
	Now      func() time.Time

	lastAttempt func(ctx context.Context) bool
}

func (h *DailyOutfitHandler) today() string {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	return now().UTC().Format(dateLayout)
}

// HandleDailyOutfits fans out one profile task per profile with a wardrobe.
// Task ids make a rerun for the same date a no-op for profiles already queued.
func (h *DailyOutfitHandler) HandleDailyOutfits(ctx context.Context, t *asynq.Task) error {
	var payload DailyOutfitsPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("daily outfits payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	date := payload.Date
	if date == "" {
		date = h.today()
	}
	logger := log.Ctx(ctx).With().Str("task", TypeDailyOutfits).Str("date", date).Logger()

	profileIDs, err := h.Store.ListDailyProfileIDs(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list profiles")
		return err
	}

	var failed int
	for _, profileID := range profileIDs {
		task, err := NewDailyProfileOutfitTask(profileID, date)
		if err != nil {
			return err
		}
		_, err = h.Queue.EnqueueContext(ctx, task,
			asynq.Queue(QueueOutfits),
			asynq.MaxRetry(3),
			asynq.TaskID(fmt.Sprintf("daily-outfit-%d-%s", profileID, date)),
			asynq.Retention(24*time.Hour),
		)
		if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
			failed++
			logger.Error().Err(err).Uint("profile_id", profileID).Msg("failed to enqueue daily outfit")
		}
	}
	logger.Info().Int("profiles", len(profileIDs)).Int("failed", failed).Msg("daily outfits scheduled")
	if failed > 0 {
		return fmt.Errorf("failed to enqueue %d of %d daily outfits", failed, len(profileIDs))
	}
	return nil
}

func (h *DailyOutfitHandler) HandleDailyProfileOutfit(ctx context.Context, t *asynq.Task) error {
	var payload DailyProfileOutfitPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("daily profile outfit payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Date == "" {
		payload.Date = h.today()
	}
	_, err := h.GenerateDailyOutfit(ctx, payload.ProfileID, payload.Date)
	return err
}

// GenerateDailyOutfit styles and stores the outfit of one profile for date.
// Model invocation failures are returned as is so the task is retried; the last
// attempt and every validation failure are stored as a failed DailyOutfit.
// Returns nil, nil when the profile has nothing to style.
func (h *DailyOutfitHandler) GenerateDailyOutfit(ctx context.Context, profileID uint, date string) (*models.DailyOutfit, error) {
	logger := log.Ctx(ctx).With().Uint("profile_id", profileID).Str("date", date).Logger()
	ctx = logger.WithContext(ctx)

	profile, err := h.Store.GetProfile(ctx, profileID)
	if errors.Is(err, dbhelper.ErrNotFound) {
		logger.Warn().Msg("profile not found, skipping daily outfit")
		return nil, fmt.Errorf("profile %d: %w", profileID, asynq.SkipRetry)
	}
	if err != nil {
		return nil, err
	}

	var wardrobe []models.WardrobeItem
	weather := services.FallbackWeather
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := h.Store.ListWardrobe(gctx, profileID)
		if err != nil {
			return err
		}
		wardrobe = make([]models.WardrobeItem, 0, len(records))
		for _, record := range records {
			wardrobe = append(wardrobe, record.WardrobeItem())
		}
		return nil
	})
	g.Go(func() error {
		weather = h.currentWeather(gctx, profile)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(wardrobe) == 0 {
		logger.Info().Msg("empty wardrobe, skipping daily outfit")
		return nil, nil
	}

	season := string(SeasonForDate(date))
	temperature := weather.Temperature
	styleContext := services.StyleContext(dailyContext(weather), profile.Vibe(), season, &temperature)

	outfit := &models.DailyOutfit{
		ProfileID:  profileID,
		OutfitDate: date,
		Vibe:       profile.Vibe(),
		Weather:    weather,
	}

	selection, err := h.Stylist.GenerateOutfit(ctx, services.OutfitRequest{
		Context:       styleContext,
		Wardrobe:      wardrobe,
		RecentItemIDs: h.recentItemIDs(ctx, profileID, date),
	})
	if err != nil {
		if isRetryable(err) && !h.isLastAttempt(ctx) {
			logger.Warn().Err(err).Msg("daily outfit invocation failed, will retry")
			return nil, err
		}
		return outfit, h.saveFailure(ctx, outfit, err)
	}

	outfit.Items = selection
	outfit.Status = models.DailyOutfitCompleted
	outfit.Name = h.outfitName(ctx, profile, dailyContext(weather), season, temperature, selection, wardrobe)
	if err := h.Store.SaveDailyOutfit(ctx, outfit); err != nil {
		logger.Error().Err(err).Msg("failed to save daily outfit")
		return nil, err
	}
	h.Metrics.Inc(ctx, metrics.DailyOutfitsTotal, map[string]string{"status": models.DailyOutfitCompleted}, 1)
	logger.Info().Strs("items", selection.ItemIDs()).Str("name", outfit.Name).Msg("daily outfit generated")

	h.notify(ctx, profile, outfit)
	return outfit, nil
}

func (h *DailyOutfitHandler) currentWeather(ctx context.Context, profile *models.StyleProfile) models.Weather {
	if h.Weather == nil || profile.LocationLat == nil || profile.LocationLon == nil {
		return services.FallbackWeather
	}
	weather, err := h.Weather.Current(ctx, *profile.LocationLat, *profile.LocationLon)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("weather lookup failed, using fallback")
		return services.FallbackWeather
	}
	return weather
}

// recentItemIDs are the items of the previous day's outfit, so two days in a row differ.
func (h *DailyOutfitHandler) recentItemIDs(ctx context.Context, profileID uint, date string) []string {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil
	}
	previous, err := h.Store.GetDailyOutfit(ctx, profileID, day.AddDate(0, 0, -1).Format(dateLayout))
	if err != nil || previous.Status != models.DailyOutfitCompleted {
		return nil
	}
	return previous.Items.ItemIDs()
}

func (h *DailyOutfitHandler) outfitName(
	ctx context.Context,
	profile *models.StyleProfile,
	nameContext, season string,
	temperature float64,
	selection models.OutfitSelection,
	wardrobe []models.WardrobeItem,
) string {
	vibe := profile.Vibe()
	if vibe == "" {
		vibe = "everyday"
	}
	name, err := h.Stylist.NameOutfit(ctx, services.NameRequest{
		Vibe:        vibe,
		Context:     nameContext,
		Season:      season,
		Temperature: &temperature,
		Items:       describeItems(selection, wardrobe),
	})
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("outfit naming failed, using a random name")
		return languageutil.RandomOutfitName()
	}
	return name
}

func (h *DailyOutfitHandler) saveFailure(ctx context.Context, outfit *models.DailyOutfit, cause error) error {
	logger := log.Ctx(ctx)
	code := "INTERNAL"
	message := cause.Error()
	if appErr, ok := apperrors.As(cause); ok {
		code = string(appErr.Kind)
		message = appErr.Message
		if appErr.Kind.CarriesRaw() {
			raw := appErr.Raw
			outfit.RawResponse = &raw
		}
	}
	outfit.Status = models.DailyOutfitFailed
	outfit.ErrorCode = &code
	outfit.ErrorMessage = &message

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("kind", code)
		scope.SetTag("task", TypeDailyProfileOutfit)
		sentry.CaptureException(cause)
	})
	h.Metrics.Inc(ctx, metrics.DailyOutfitsTotal, map[string]string{"status": models.DailyOutfitFailed}, 1)
	logger.Error().Err(cause).Str("kind", code).Msg("daily outfit failed")

	if err := h.Store.SaveDailyOutfit(ctx, outfit); err != nil {
		logger.Error().Err(err).Msg("failed to save failed daily outfit")
		return err
	}
	return fmt.Errorf("daily outfit: %w: %w", cause, asynq.SkipRetry)
}

func (h *DailyOutfitHandler) notify(ctx context.Context, profile *models.StyleProfile, outfit *models.DailyOutfit) {
	if h.Notifier == nil || !profile.DailyOutfitAlert || profile.PushToken == nil || *profile.PushToken == "" {
		return
	}
	title := "Your outfit for today is ready"
	body := fmt.Sprintf("%s for %.0f°F", outfit.Name, outfit.Weather.Temperature)
	if outfit.Weather.Description != services.FallbackWeather.Description {
		body = fmt.Sprintf("%s, %s", body, strings.ToLower(outfit.Weather.Description))
	}
	data := map[string]string{
		"type": "daily_outfit",
		"date": outfit.OutfitDate,
	}
	if err := h.Notifier.Notify(ctx, *profile.PushToken, profile.Platform, title, body, data); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to send daily outfit notification")
	}
}

// isRetryable keeps retries for failed model calls and infrastructure errors only.
func isRetryable(err error) bool {
	appErr, ok := apperrors.As(err)
	if !ok {
		return true
	}
	return appErr.Kind == apperrors.KindInvocation
}

func (h *DailyOutfitHandler) isLastAttempt(ctx context.Context) bool {
	if h.lastAttempt != nil {
		return h.lastAttempt(ctx)
	}
	return lastAttempt(ctx)
}

// lastAttempt is true outside of an asynq worker too.
func lastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= maxRetry
}

func dailyContext(weather models.Weather) string {
	if weather.Description == "" || weather.Description == services.FallbackWeather.Description {
		return DailyOutfitContext
	}
	return fmt.Sprintf("%s, %s outside", DailyOutfitContext, strings.ToLower(weather.Description))
}

// SeasonForDate maps a YYYY-MM-DD date to its northern hemisphere season.
func SeasonForDate(date string) models.Season {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return models.SeasonAll
	}
	switch day.Month() {
	case time.March, time.April, time.May:
		return models.SeasonSpring
	case time.June, time.July, time.August:
		return models.SeasonSummer
	case time.September, time.October, time.November:
		return models.SeasonFall
	default:
		return models.SeasonWinter
	}
}

func describeItems(selection models.OutfitSelection, wardrobe []models.WardrobeItem) []string {
	byID := make(map[string]models.WardrobeItem, len(wardrobe))
	for _, item := range wardrobe {
		byID[item.ID] = item
	}
	descriptions := make([]string, 0, len(selection))
	for _, entry := range selection {
		item := byID[entry.ItemID]
		description := strings.TrimSpace(item.Name)
		if description == "" {
			description = strings.TrimSpace(item.PrimaryColor + " " + item.Type)
		}
		if description == "" {
			description = string(item.MainCategory)
		}
		descriptions = append(descriptions, description)
	}
	return descriptions
}
