package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	appsvc "cropcare/internal/app"
	"cropcare/internal/transport/http/response"
	"cropcare/web"
)

// HistoryHandler lists past diagnoses for the signed-in email. history may be nil.
type HistoryHandler struct {
	history  *appsvc.HistoryService
	renderer *web.Renderer
	logger   *slog.Logger
}

func NewHistoryHandler(history *appsvc.HistoryService, renderer *web.Renderer, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{history: history, renderer: renderer, logger: logger}
}

func (h *HistoryHandler) List(c *gin.Context) {
	user := userOf(c)
	page := web.HistoryPage{Enabled: h.history != nil}
	page.Title = "History"
	page.User = user

	if h.history == nil {
		if response.WantsJSON(c) {
			response.Error(c, http.StatusNotFound, response.CodeHistoryDisabled, "history is disabled")
			return
		}
		render(c, h.renderer, h.logger, http.StatusOK, web.PageHistory, page)
		return
	}

	records, err := h.history.List(c.Request.Context(), user.Email)
	if err != nil {
		h.logger.Error("list history failed", "error", err)
		if response.WantsJSON(c) {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list history failed")
			return
		}
		page.Error = "Could not load your history. Please try again."
		render(c, h.renderer, h.logger, http.StatusInternalServerError, web.PageHistory, page)
		return
	}
	if response.WantsJSON(c) {
		response.OK(c, records)
		return
	}
	page.Records = records
	render(c, h.renderer, h.logger, http.StatusOK, web.PageHistory, page)
}
