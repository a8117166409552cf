package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"cropcare/internal/analysis"
	"cropcare/internal/model"
	"cropcare/internal/session"
	"cropcare/internal/transport/http/middleware"
	"cropcare/internal/transport/http/response"
	"cropcare/internal/upload"
	"cropcare/internal/workspace"
	"cropcare/web"
)

// PageHandler serves the analysis page and the actions posted from it.
type PageHandler struct {
	workspaces *workspace.Manager
	renderer   *web.Renderer
	logger     *slog.Logger
}

func NewPageHandler(workspaces *workspace.Manager, renderer *web.Renderer, logger *slog.Logger) *PageHandler {
	return &PageHandler{workspaces: workspaces, renderer: renderer, logger: logger}
}

func (h *PageHandler) Home(c *gin.Context) {
	current, ws := h.workspace(c)
	render(c, h.renderer, h.logger, http.StatusOK, web.PageHome, web.NewHomePage(current.User, ws.State()))
}

func (h *PageHandler) State(c *gin.Context) {
	_, ws := h.workspace(c)
	response.OK(c, newStateResponse(ws.State()))
}

func (h *PageHandler) Upload(c *gin.Context) {
	_, ws := h.workspace(c)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(c, http.StatusRequestEntityTooLarge, response.CodeTooLarge, "file too large")
			return
		}
		h.reject(c, http.StatusBadRequest, response.CodeNoFile, "no file selected")
		return
	}

	f, err := header.Open()
	if err != nil {
		h.logger.Error("open uploaded file failed", "error", err)
		h.reject(c, http.StatusInternalServerError, response.CodeInternalServer, "read upload failed")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		h.logger.Error("read uploaded file failed", "error", err)
		h.reject(c, http.StatusInternalServerError, response.CodeInternalServer, "read upload failed")
		return
	}

	ws.Select(model.LeafImage{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	h.done(c, ws)
}

func (h *PageHandler) Analyze(c *gin.Context) {
	_, ws := h.workspace(c)

	err := ws.Analyze()
	switch {
	case err == nil:
	case errors.Is(err, upload.ErrNoFile):
		h.reject(c, http.StatusBadRequest, response.CodeNoFile, err.Error())
		return
	case errors.Is(err, upload.ErrBusy), errors.Is(err, analysis.ErrBusy):
		h.reject(c, http.StatusConflict, response.CodeBusy, err.Error())
		return
	default:
		h.logger.Error("submit analysis failed", "error", err)
		h.reject(c, http.StatusInternalServerError, response.CodeInternalServer, "submit failed")
		return
	}
	h.done(c, ws)
}

func (h *PageHandler) Reset(c *gin.Context) {
	_, ws := h.workspace(c)
	ws.Reset()
	h.done(c, ws)
}

// Expand toggles one remedy section of the accordion.
func (h *PageHandler) Expand(c *gin.Context) {
	_, ws := h.workspace(c)
	ws.Expand(c.PostForm("key"), c.PostForm("open") != "false")
	if response.WantsJSON(c) {
		response.OK(c, newStateResponse(ws.State()))
		return
	}
	c.Redirect(http.StatusSeeOther, "/#result")
}

// workspace must run behind middleware.RequireSession.
func (h *PageHandler) workspace(c *gin.Context) (*session.Current, *workspace.Workspace) {
	current, _ := middleware.CurrentSession(c)
	return current, h.workspaces.Get(current.ID, current.User.Email)
}

// done answers a form post with a redirect back to the page, or the new state for API callers.
func (h *PageHandler) done(c *gin.Context, ws *workspace.Workspace) {
	if response.WantsJSON(c) {
		response.OK(c, newStateResponse(ws.State()))
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// reject keeps the page flow going for browsers; the page itself shows why the action was disabled.
func (h *PageHandler) reject(c *gin.Context, status, code int, message string) {
	if response.WantsJSON(c) {
		response.Error(c, status, code, message)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}
