package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ProcessReminders runs one dispatch batch. Exposed for the cron trigger;
// the in-process ticker calls the dispatcher directly.
func (h *Handler) ProcessReminders(c echo.Context) error {
	processed, err := h.dispatcher.ProcessPending(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"processed": processed})
}
