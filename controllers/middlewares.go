package controllers

import (
	"strconv"
	"time"

	"closetapi/apperrors"
	"closetapi/dbhelper"
	"closetapi/metrics"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// RequestLogger attaches a request-scoped zerolog logger and counts requests.
// Errors are rendered here so the logged status is the one the client sees.
func RequestLogger(reg *metrics.Registry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			logger := log.With().
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("remote_ip", c.RealIP()).
				Logger()
			c.SetRequest(req.WithContext(logger.WithContext(req.Context())))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			labels := map[string]string{
				"method": req.Method,
				"path":   c.Path(),
				"status": statusClass(status),
			}
			reg.Inc(c.Request().Context(), metrics.HTTPRequestsTotal, labels, 1)

			if status >= 500 || err != nil {
				event := logger.Warn()
				if status >= 500 {
					event = logger.Error()
					reg.Inc(c.Request().Context(), metrics.HTTPRequestErrorsTotal, labels, 1)
				}
				if appErr, ok := apperrors.As(err); ok {
					event = event.Str("kind", string(appErr.Kind))
				}
				event.Err(err).
					Int("status", status).
					Dur("duration", time.Since(start)).
					Msg("http request failed")
			} else {
				logger.Info().
					Int("status", status).
					Dur("duration", time.Since(start)).
					Msg("http request served")
			}
			return nil
		}
	}
}

func statusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "0"
	}
}

// ProfileMiddleware resolves the token subject into the current profile id.
// The profile row itself is created on first write.
func ProfileMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userRaw := c.Get("user")
		if userRaw == nil {
			return echo.ErrUnauthorized
		}
		token, ok := userRaw.(*jwt.Token)
		if !ok {
			return echo.ErrUnauthorized
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return echo.ErrUnauthorized
		}
		subject, _ := claims["sub"].(string)
		profileID, err := strconv.ParseUint(subject, 10, 64)
		if err != nil || profileID == 0 {
			log.Ctx(c.Request().Context()).Warn().Str("sub", subject).Msg("token subject is not a profile id")
			return echo.ErrUnauthorized
		}

		c.Set("currentProfileID", uint(profileID))
		return next(c)
	}
}

func currentProfileID(c echo.Context) uint {
	id, _ := c.Get("currentProfileID").(uint)
	return id
}

func currentStore(c echo.Context) dbhelper.OutfitStore {
	store, _ := c.Get("__store").(dbhelper.OutfitStore)
	return store
}
