package controllers

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"closetapi/apperrors"
	"closetapi/dbhelper"
	"closetapi/metrics"
	"closetapi/models"
	"closetapi/services"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/go-playground/validator"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

type CustomValidator struct {
	validator *validator.Validate
}

// Validate reports the first failing field as an INPUT error, named by its json path.
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return apperrors.NewInputError("", err.Error())
	}
	fe := fieldErrors[0]
	field := fe.Namespace()
	if _, rest, found := strings.Cut(field, "."); found {
		field = rest
	}
	return apperrors.NewInputError(field, validationMessage(field, fe.Tag(), fe.Param()))
}

func validationMessage(field, tag, param string) string {
	switch tag {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + param
	case "max":
		return field + " must be at most " + param
	case "category":
		return field + " must be one of top, bottom, shoes, outerwear, accessory, layer, onepiece"
	case "season":
		return field + " must be one of spring, summer, fall, winter, all"
	case "platform":
		return field + " must be one of ios, android, web"
	}
	return field + " failed on " + tag
}

func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("category", models.ValidateCategory)
	v.RegisterValidation("season", models.ValidateSeason)
	v.RegisterValidation("platform", models.ValidatePlatform)
	return &CustomValidator{validator: v}
}

// ServerDeps are the collaborators the HTTP layer is built from.
// Store may be nil, in which case the /me routes are not mounted.
type ServerDeps struct {
	Stylist   services.StylistServiceProvider
	Store     dbhelper.OutfitStore
	Metrics   *metrics.Registry
	JWTSecret string
	// RateLimit is requests per second per client on the model routes. Zero disables it.
	RateLimit float64
}

func SetupServer(deps ServerDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = HTTPErrorHandler

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("__store", deps.Store)
			return next(c)
		}
	})
	e.Use(RequestLogger(deps.Metrics))
	e.Use(middleware.Recover())
	if sentry.CurrentHub().Client() != nil {
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", deps.Metrics.EchoHandlerText)
	e.GET("/metrics.json", deps.Metrics.EchoHandlerJSON)

	var limits []echo.MiddlewareFunc
	if deps.RateLimit > 0 {
		limits = append(limits, middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(deps.RateLimit))))
	}
	stylistController := StylistController{Stylist: deps.Stylist}
	stylistController.StylistRoutes(e, limits...)

	if deps.Store != nil {
		meGroup := e.Group("/me", echojwt.JWT([]byte(deps.JWTSecret)))
		meGroup.Use(ProfileMiddleware)
		profileController := ProfileController{Stylist: deps.Stylist}
		profileController.ProfileRoutes(meGroup)
	}

	return e
}
