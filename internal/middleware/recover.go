package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
)

// Recover returns middleware that recovers from panics.
func Recover() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("panic recovered in handler",
						"panic", r,
						"path", c.Request().URL.Path,
						"stack", string(debug.Stack()),
					)
					c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
				}
			}()
			return next(c)
		}
	}
}
