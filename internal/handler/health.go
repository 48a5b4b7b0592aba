package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports that the front end is up. It does not call the backend.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
