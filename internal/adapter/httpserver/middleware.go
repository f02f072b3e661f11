package httpserver

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Eshwar187/twin-clone-01/internal/domain"
	"github.com/Eshwar187/twin-clone-01/internal/platform/correlation"
	apperrors "github.com/Eshwar187/twin-clone-01/internal/platform/errors"
)

const userIDKey = "userID"

func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.FromHeader(c.Request().Header.Get(correlation.Header))
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlation.Header, id)
		return next(c)
	}
}

// requireUserID parses the :userID path parameter and stores it on the
// context under userIDKey.
func requireUserID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.Param("userID")
		userID, err := uuid.Parse(raw)
		if err != nil {
			return apperrors.ValidationError("invalid user ID").WithField("user_id", raw)
		}
		c.Set(userIDKey, userID)
		return next(c)
	}
}

func userIDFrom(c echo.Context) uuid.UUID {
	id, _ := c.Get(userIDKey).(uuid.UUID)
	return id
}

func ErrorHandlingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			err = translateDomainError(err)

			// Echo's own errors (404, 405, bind failures) keep their status
			// unless a handler already wrapped them.
			var structured *apperrors.Error
			var httpErr *echo.HTTPError
			if !errors.As(err, &structured) && errors.As(err, &httpErr) {
				return err
			}

			structuredErr := apperrors.AsStructuredError(err)
			logError(c, structuredErr)

			if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

// translateDomainError maps domain sentinels onto structured errors.
func translateDomainError(err error) error {
	var structured *apperrors.Error
	if errors.As(err, &structured) {
		return err
	}
	switch {
	case errors.Is(err, domain.ErrUnknownMood):
		return apperrors.ValidationError("unknown mood").WithCause(err)
	case errors.Is(err, domain.ErrInvalidSignals):
		return apperrors.ValidationError("invalid signals").WithCause(err)
	case errors.Is(err, domain.ErrSessionNotFound):
		return apperrors.NotFoundError("no active session").WithCause(err)
	case errors.Is(err, domain.ErrStateUnavailable):
		return apperrors.UnavailableError("mood state unavailable", err)
	}
	return err
}

func logError(c echo.Context, err *apperrors.Error) {
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if userID := c.Get(userIDKey); userID != nil {
		attrs = append(attrs, "user_id", userID)
	}

	if err.Cause != nil {
		attrs = append(attrs, "cause", err.Cause)
	}

	ctx := c.Request().Context()
	switch err.Type {
	case apperrors.TypeValidation, apperrors.TypeNotFound, apperrors.TypeRateLimited:
		slog.InfoContext(ctx, "Request rejected", attrs...)
	default:
		slog.ErrorContext(ctx, "Request failed", attrs...)
	}
}
