package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/apperror"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
)

// dbTimeout bounds the storage work of one request.  Handlers that call a
// payment gateway use gatewayTimeout instead.
const (
	dbTimeout      = 5 * time.Second
	gatewayTimeout = 20 * time.Second
)

func withTimeout(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), d)
}

// respondError writes {"error", "fields"?} for err.  Messages of internal
// kinds are logged with the request id and replaced by a generic text.
func respondError(c echo.Context, log logrus.FieldLogger, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return c.JSON(he.Code, echo.Map{"error": http.StatusText(he.Code)})
	}

	kind := apperror.KindOf(err)
	status := apperror.HTTPStatus(kind)
	if !kind.Public() {
		middleware.Entry(c, log).WithError(err).WithField("kind", kind.String()).Error("request failed")
		msg := "internal error"
		if kind == apperror.Gateway {
			msg = "payment gateway unavailable"
		}
		return c.JSON(status, echo.Map{"error": msg})
	}

	var ae *apperror.Error
	errors.As(err, &ae)
	body := echo.Map{"error": ae.Message}
	if len(ae.Fields) > 0 {
		body["fields"] = ae.Fields
	}
	return c.JSON(status, body)
}

// bind decodes and validates the request body into dst.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperror.Invalid("invalid request body")
	}
	if err := c.Validate(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			fields := make(map[string]string, len(ve))
			for _, fe := range ve {
				fields[fe.Field()] = fieldMessage(fe)
			}
			return apperror.ValidationFields("validation failed", fields)
		}
		return apperror.Invalid(err.Error())
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "must be a valid email"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "must be a date YYYY-MM-DD"
	}
	return "invalid"
}

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.ValidationFields("invalid "+name, map[string]string{name: "must be a positive integer"})
	}
	return id, nil
}
