package controller

import (
	"errors"
	"net/http"

	"github.com/vibast-solutions/ms-go-blog-auth/app/service"
	"github.com/vibast-solutions/ms-go-blog-auth/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const internalErrorMessage = "a network error occurred, please try again shortly"

func invalidBody(ctx echo.Context, err error, action string) error {
	logrus.WithError(err).Debugf("Failed to bind %s request", action)
	return ctx.JSON(http.StatusBadRequest, types.Failure("invalid request body"))
}

// respondError maps a service error onto its HTTP status and envelope.
func respondError(ctx echo.Context, err error, action string, fields logrus.Fields) error {
	entry := logrus.WithFields(fields)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		entry.WithField("field", validationErr.Field).Debugf("%s validation failed: %s", action, validationErr.Message)
		return ctx.JSON(http.StatusBadRequest, types.FieldFailure(validationErr.Field, validationErr.Message))
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrIncorrectPassword),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrTokenInvalid),
		errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrAccountLocked),
		errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrCodeExpired),
		errors.Is(err, service.ErrCodeMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrDuplicateEmail):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		entry.WithError(err).Errorf("%s failed", action)
		return ctx.JSON(status, types.Failure(internalErrorMessage))
	}

	entry.Warnf("%s failed: %s", action, err.Error())
	return ctx.JSON(status, types.Failure(err.Error()))
}
