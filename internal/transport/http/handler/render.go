package handler

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"cropcare/web"
)

func render(c *gin.Context, r *web.Renderer, logger *slog.Logger, status int, page string, data any) {
	var buf bytes.Buffer
	if err := r.Render(&buf, page, data); err != nil {
		logger.Error("render page failed", "page", page, "error", err)
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
