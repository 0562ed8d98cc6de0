package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// problemDetails is the RFC 7807 body the auth middlewares respond
// with. The handler package has a richer variant; auth failures never
// carry field errors, so this one stays minimal.
type problemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// unauthorizedError writes a 401 problem response
func unauthorizedError(c echo.Context, detail string) error {
	return c.JSON(http.StatusUnauthorized, problemDetails{
		Type:     "https://tally.app/errors/unauthorized",
		Title:    "Unauthorized",
		Status:   http.StatusUnauthorized,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}
