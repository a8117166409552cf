package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"cropcare/internal/model"
	"cropcare/internal/session"
	"cropcare/internal/transport/http/middleware"
	"cropcare/internal/workspace"
	"cropcare/web"
)

type CookieConfig struct {
	Name   string
	MaxAge int
	Secure bool
}

type AuthHandler struct {
	sessions   *session.Service
	workspaces *workspace.Manager
	renderer   *web.Renderer
	logger     *slog.Logger
	cookie     CookieConfig
}

func NewAuthHandler(sessions *session.Service, workspaces *workspace.Manager, renderer *web.Renderer, logger *slog.Logger, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{
		sessions:   sessions,
		workspaces: workspaces,
		renderer:   renderer,
		logger:     logger,
		cookie:     cookie,
	}
}

// Page shows the Sign In / Sign Up tabs. It stays reachable when already signed in.
func (h *AuthHandler) Page(c *gin.Context) {
	page := web.AuthPage{Tab: tab(c.Query("tab"))}
	page.Title = title(page.Tab)
	page.User = userOf(c)
	render(c, h.renderer, h.logger, http.StatusOK, web.PageAuth, page)
}

func (h *AuthHandler) Submit(c *gin.Context) {
	mode := tab(c.PostForm("mode"))

	var (
		token string
		err   error
	)
	if mode == web.TabSignup {
		token, _, err = h.sessions.Signup(c.Request.Context(), session.SignupInput{
			FirstName:       c.PostForm("first_name"),
			LastName:        c.PostForm("last_name"),
			Email:           c.PostForm("email"),
			Password:        c.PostForm("password"),
			ConfirmPassword: c.PostForm("confirm_password"),
		})
	} else {
		token, _, err = h.sessions.Login(c.Request.Context(), session.LoginInput{
			Email:    c.PostForm("email"),
			Password: c.PostForm("password"),
		})
	}
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, session.ErrMissingFields) && !errors.Is(err, session.ErrPasswordMismatch) {
			status = http.StatusInternalServerError
			h.logger.Error("start session failed", "error", err, "mode", mode)
		}
		page := web.AuthPage{
			Tab:       mode,
			Error:     session.Message(err),
			Email:     c.PostForm("email"),
			FirstName: c.PostForm("first_name"),
			LastName:  c.PostForm("last_name"),
		}
		page.Title = title(mode)
		render(c, h.renderer, h.logger, status, web.PageAuth, page)
		return
	}

	h.endPrevious(c)
	h.setCookie(c, token, h.cookie.MaxAge)
	c.Redirect(http.StatusSeeOther, "/")
}

// endPrevious clears the session a re-submitted sign-in replaces.
func (h *AuthHandler) endPrevious(c *gin.Context) {
	current, ok := middleware.CurrentSession(c)
	if !ok {
		return
	}
	h.workspaces.Drop(current.ID)
	if token, err := c.Cookie(h.cookie.Name); err == nil {
		if err := h.sessions.Logout(c.Request.Context(), token); err != nil {
			h.logger.Error("clear previous session failed", "error", err)
		}
	}
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if current, ok := middleware.CurrentSession(c); ok {
		h.workspaces.Drop(current.ID)
	}
	if token, err := c.Cookie(h.cookie.Name); err == nil {
		if err := h.sessions.Logout(c.Request.Context(), token); err != nil {
			h.logger.Error("clear session failed", "error", err)
		}
	}
	h.setCookie(c, "", -1)
	c.Redirect(http.StatusSeeOther, middleware.AuthPath)
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", "", h.cookie.Secure, true)
}

func tab(v string) string {
	if v == web.TabSignup {
		return web.TabSignup
	}
	return web.TabLogin
}

func title(t string) string {
	if t == web.TabSignup {
		return "Sign Up"
	}
	return "Sign In"
}

// userOf is nil-safe for pages rendered outside the session gate.
func userOf(c *gin.Context) *model.User {
	if current, ok := middleware.CurrentSession(c); ok {
		return current.User
	}
	return nil
}
