package controllers

import (
	"net/http"

	"closetapi/apperrors"
	"closetapi/models"
	"closetapi/services"

	"github.com/labstack/echo/v4"
)

type StylistController struct {
	Stylist services.StylistServiceProvider
}

func (controller *StylistController) StylistRoutes(e *echo.Echo, m ...echo.MiddlewareFunc) {
	e.POST("/tag", controller.Tag, m...)
	e.POST("/generate-outfit", controller.GenerateOutfit, m...)
	e.POST("/style-single-item", controller.StyleSingleItem, m...)
	e.POST("/generate-multistep-outfit", controller.GenerateStepwiseOutfit, m...)
	e.POST("/generate-outfit-name", controller.GenerateOutfitName, m...)
}

// bindAndValidate turns both malformed bodies and failed validation into INPUT errors.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperrors.NewInputError("", "Invalid request body")
	}
	return c.Validate(req)
}

func (controller *StylistController) Tag(c echo.Context) error {
	var req models.TagRequestIn
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tag, err := controller.Stylist.TagImage(c.Request().Context(), req.ImageURL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tag)
}

func (controller *StylistController) GenerateOutfit(c echo.Context) error {
	var req models.OutfitRequestIn
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	outfit, err := controller.Stylist.GenerateOutfit(c.Request().Context(), services.OutfitRequest{
		Context:       req.Context,
		Wardrobe:      req.Wardrobe,
		RecentItemIDs: req.RecentItemIDs,
		LockedItemIDs: req.LockedItems,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.OutfitResponse{Outfit: outfit})
}

func (controller *StylistController) StyleSingleItem(c echo.Context) error {
	var req models.StyleSingleItemIn
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	request := services.SingleItemRequest{
		Context:     req.Context,
		Vibe:        req.Vibe,
		Season:      req.Season,
		Temperature: req.Temperature,
		Wardrobe:    req.Wardrobe,
	}
	if req.LockedItem != nil {
		request.LockedItem = *req.LockedItem
	}
	outfit, err := controller.Stylist.StyleSingleItem(c.Request().Context(), request)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.OutfitResponse{Outfit: outfit})
}

func (controller *StylistController) GenerateStepwiseOutfit(c echo.Context) error {
	var req models.StepwiseOutfitIn
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	outfit, err := controller.Stylist.StyleStepwise(c.Request().Context(), services.StepwiseRequest{
		Context:     req.Context,
		Vibe:        req.Vibe,
		Season:      req.Season,
		Temperature: req.Temperature,
		Wardrobe:    req.Wardrobe,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.OutfitResponse{Outfit: outfit})
}

func (controller *StylistController) GenerateOutfitName(c echo.Context) error {
	var req models.OutfitNameIn
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	name, err := controller.Stylist.NameOutfit(c.Request().Context(), services.NameRequest{
		Vibe:        req.Vibe,
		Context:     req.Context,
		Season:      req.Season,
		Temperature: req.Temperature,
		Items:       req.Items,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.OutfitNameOut{Name: name})
}
