package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/park285/bonk-chess-server/internal/auth"
	"github.com/park285/bonk-chess-server/internal/bonk"
	"github.com/park285/bonk-chess-server/internal/obslog"
	"github.com/park285/bonk-chess-server/pkg/bonkdto"
	"go.uber.org/zap"
)

type handlers struct {
	deps Deps
}

func (h *handlers) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":      "bonk-chess-server",
		"version":   h.deps.Version,
		"endpoints": endpoints,
	})
}

func (h *handlers) health(c *gin.Context) {
	matches, waiting := h.deps.Directory.Counts()
	c.JSON(http.StatusOK, bonkdto.HealthResponse{
		Status:    "ok",
		Matches:   matches,
		Waiting:   waiting,
		Timestamp: h.deps.Now().UTC().Format(time.RFC3339),
	})
}

var authMessages = []struct {
	err  error
	key  string
	data map[string]any
}{
	{auth.ErrPasswordMismatch, "auth.password_mismatch", nil},
	{auth.ErrUsernameTooShort, "auth.username_short", map[string]any{"Min": auth.MinUsernameLen}},
	{auth.ErrUsernameChars, "auth.username_chars", nil},
	{auth.ErrPasswordTooShort, "auth.password_short", map[string]any{"Min": auth.MinPasswordLen}},
	{auth.ErrUsernameIsPassword, "auth.username_is_password", nil},
	{auth.ErrUsernameTaken, "auth.username_taken", nil},
	{auth.ErrInvalidCredentials, "auth.invalid_credentials", nil},
	{auth.ErrUnavailable, "auth.unavailable", nil},
}

func (h *handlers) authFailure(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	for _, m := range authMessages {
		if errors.Is(err, m.err) {
			c.JSON(status, bonkdto.AuthResponse{Error: h.deps.Catalog.Text(m.key, m.data, m.err.Error())})
			return
		}
	}
	obslog.L().Error("auth_request_failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, bonkdto.AuthResponse{Error: h.deps.Catalog.Text("error.internal", nil, "internal error")})
}

func (h *handlers) register(c *gin.Context) {
	var req bonkdto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bonkdto.AuthResponse{Error: "invalid request body"})
		return
	}
	if h.deps.Registrar == nil {
		h.authFailure(c, auth.ErrUnavailable)
		return
	}
	id, err := h.deps.Registrar.Register(c.Request.Context(), req.Username, req.Password, req.PasswordConfirm)
	if err != nil {
		h.authFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, bonkdto.AuthResponse{Success: true, Username: id.Username})
}

func (h *handlers) login(c *gin.Context) {
	var req bonkdto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bonkdto.AuthResponse{Error: "invalid request body"})
		return
	}
	if h.deps.Authenticator == nil || h.deps.Sessions == nil {
		h.authFailure(c, auth.ErrUnavailable)
		return
	}
	id, err := h.deps.Authenticator.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.authFailure(c, err)
		return
	}
	token, err := h.deps.Sessions.Issue(c.Request.Context(), id)
	if err != nil {
		h.authFailure(c, err)
		return
	}
	obslog.L().Info("user_login", zap.String("username", id.Username))
	c.JSON(http.StatusOK, bonkdto.AuthResponse{Success: true, Username: id.Username, Token: token})
}

func (h *handlers) logout(c *gin.Context) {
	token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
	if token == "" || h.deps.Sessions == nil {
		c.JSON(http.StatusBadRequest, bonkdto.AuthResponse{Error: "missing bearer token"})
		return
	}
	if err := h.deps.Sessions.Revoke(c.Request.Context(), token); err != nil {
		h.authFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, bonkdto.AuthResponse{Success: true})
}

func (h *handlers) listMatches(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Directory.ListJoinable())
}

func (h *handlers) getMatch(c *gin.Context) {
	m, ok := h.deps.Directory.Get(c.Param("id"))
	if !ok {
		h.notFound(c)
		return
	}
	c.JSON(http.StatusOK, m.Snapshot())
}

func (h *handlers) boardPNG(c *gin.Context) {
	m, ok := h.deps.Directory.Get(c.Param("id"))
	if !ok {
		h.notFound(c)
		return
	}
	png, err := h.deps.Renderer.RenderPNG(c.Request.Context(), m.Snapshot())
	if err != nil {
		obslog.L().Error("board_render_failed", zap.String("match_id", m.ID()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, bonkdto.DomainError{Code: bonkdto.CodeInternal, Message: h.deps.Catalog.Text("error.internal", nil, "internal error")})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// legalTargets lists where the piece on ?from= may move in the current position.
func (h *handlers) legalTargets(c *gin.Context) {
	m, ok := h.deps.Directory.Get(c.Param("id"))
	if !ok {
		h.notFound(c)
		return
	}
	from, err := bonk.ParseSquare(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, bonkdto.DomainError{
			Code:    bonkdto.CodeBadRequest,
			Message: h.deps.Catalog.Text("error.bad_request", map[string]string{"Detail": err.Error()}, "bad request"),
		})
		return
	}
	pos := m.Position()
	resp := bonkdto.TargetsResponse{From: from.String(), Targets: []string{}}
	for _, sq := range pos.LegalTargets(from) {
		resp.Targets = append(resp.Targets, sq.String())
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) notFound(c *gin.Context) {
	id := c.Param("id")
	c.JSON(http.StatusNotFound, bonkdto.DomainError{
		Code:    bonkdto.CodeNotFound,
		Message: h.deps.Catalog.Text("error.not_found", map[string]string{"MatchID": id}, "match not found"),
	})
}
