package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"closetapi/apperrors"
	"closetapi/dbhelper"
	"closetapi/models"
	"closetapi/services"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const dateLayout = "2006-01-02"

type ProfileController struct {
	Stylist services.StylistServiceProvider
}

func (controller *ProfileController) ProfileRoutes(g *echo.Group) {
	g.PUT("/profile", controller.UpdateProfile)
	g.POST("/wardrobe", controller.AddWardrobeItem)
	g.GET("/wardrobe", controller.ListWardrobe)
	g.GET("/daily-outfit", controller.GetDailyOutfit)
}

// loadOrNewProfile returns the stored profile or an unsaved default one.
func loadOrNewProfile(ctx context.Context, store dbhelper.OutfitStore, profileID uint) (*models.StyleProfile, bool, error) {
	profile, err := store.GetProfile(ctx, profileID)
	if errors.Is(err, dbhelper.ErrNotFound) {
		profile = &models.StyleProfile{DailyOutfitAlert: true}
		profile.ID = profileID
		return profile, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return profile, true, nil
}

func (controller *ProfileController) UpdateProfile(c echo.Context) error {
	var req models.ProfileIn
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	store := currentStore(c)

	profile, _, err := loadOrNewProfile(ctx, store, currentProfileID(c))
	if err != nil {
		return err
	}
	profile.Name = strings.TrimSpace(req.Name)
	profile.StyleTags = req.StyleTags
	profile.LocationLat = req.LocationLat
	profile.LocationLon = req.LocationLon
	if req.PushToken != nil {
		profile.PushToken = req.PushToken
	}
	if req.Platform != "" {
		profile.Platform = models.Platform(req.Platform)
	}
	if req.DailyOutfitAlert != nil {
		profile.DailyOutfitAlert = *req.DailyOutfitAlert
	}

	if err := store.SaveProfile(ctx, profile); err != nil {
		log.Ctx(ctx).Error().Err(err).Uint("profile_id", profile.ID).Msg("failed to save profile")
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

// AddWardrobeItem stores one item. An item sent without a tag is tagged from its image first.
func (controller *ProfileController) AddWardrobeItem(c echo.Context) error {
	var req models.WardrobeRecordIn
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	store := currentStore(c)
	profileID := currentProfileID(c)

	var tag models.GarmentTag
	switch {
	case req.Tag != nil:
		tag = *req.Tag
	case req.ImageURL != nil:
		tagged, err := controller.Stylist.TagImage(ctx, *req.ImageURL)
		if err != nil {
			return err
		}
		tag = tagged
	default:
		return apperrors.NewInputError("tag", "tag or image_url is required")
	}

	profile, exists, err := loadOrNewProfile(ctx, store, profileID)
	if err != nil {
		return err
	}
	if !exists {
		if err := store.SaveProfile(ctx, profile); err != nil {
			return err
		}
	}

	record := &models.WardrobeRecord{
		ProfileID: profileID,
		ItemID:    strings.TrimSpace(req.ID),
		ImageURL:  req.ImageURL,
		Tag:       tag,
	}
	if err := store.SaveWardrobeRecord(ctx, record); err != nil {
		log.Ctx(ctx).Error().Err(err).Uint("profile_id", profileID).Str("item_id", record.ItemID).Msg("failed to save wardrobe item")
		return err
	}
	return c.JSON(http.StatusCreated, record)
}

func (controller *ProfileController) ListWardrobe(c echo.Context) error {
	records, err := currentStore(c).ListWardrobe(c.Request().Context(), currentProfileID(c))
	if err != nil {
		return err
	}
	if records == nil {
		records = []models.WardrobeRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

// GetDailyOutfit returns the outfit for ?date=YYYY-MM-DD, today (UTC) by default.
func (controller *ProfileController) GetDailyOutfit(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		date = time.Now().UTC().Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		return apperrors.NewInputError("date", "date must be YYYY-MM-DD")
	}

	outfit, err := currentStore(c).GetDailyOutfit(c.Request().Context(), currentProfileID(c), date)
	if errors.Is(err, dbhelper.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "No outfit for this date")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, outfit)
}
