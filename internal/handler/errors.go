package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/parking-lot/internal/middleware"
	"github.com/iliyamo/parking-lot/internal/service"
)

// statusFor maps a service error kind to an HTTP status.  Conflicts are
// reported as 400, matching the public contract of the parking API.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": msg}.  Unclassified errors are logged with
// the request id and never shown to the client.
func respondError(c echo.Context, log logrus.FieldLogger, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.RequestID(c),
			"route":      c.Path(),
		}).Error("request failed")
	}
	return c.JSON(status, echo.Map{"error": service.PublicMessage(err)})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}
