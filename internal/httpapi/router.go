// Package httpapi is the REST surface: accounts, health, match inspection and
// the WebSocket upgrade route.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/park285/bonk-chess-server/internal/auth"
	"github.com/park285/bonk-chess-server/internal/lobby"
	"github.com/park285/bonk-chess-server/internal/msgcat"
	"github.com/park285/bonk-chess-server/internal/obslog"
	"github.com/park285/bonk-chess-server/internal/render"
	"github.com/park285/bonk-chess-server/internal/session"
	"go.uber.org/zap"
)

// Registrar creates accounts. It is nil when accounts live in a remote identity provider.
type Registrar interface {
	Register(ctx context.Context, username, password, confirm string) (auth.Identity, error)
}

type Deps struct {
	Directory     *lobby.Directory
	Registrar     Registrar
	Authenticator auth.Authenticator
	Sessions      session.Store
	Renderer      render.BoardRenderer
	Catalog       *msgcat.Catalog
	WebSocket     http.Handler
	ClientURL     string
	Version       string
	Now           func() time.Time
}

var endpoints = []string{
	"POST /api/auth/register",
	"POST /api/auth/login",
	"POST /api/auth/logout",
	"GET /health",
	"GET /api/matches",
	"GET /api/matches/:id",
	"GET /api/matches/:id/board.png",
	"GET /api/matches/:id/targets?from=e2",
	"GET /ws",
}

func NewRouter(d Deps) *gin.Engine {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Renderer == nil {
		d.Renderer = render.NewSVGBoardRenderer()
	}
	h := &handlers{deps: d}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), cors(d.ClientURL))

	r.GET("/", h.root)
	r.GET("/health", h.health)

	api := r.Group("/api")
	api.POST("/auth/register", h.register)
	api.POST("/auth/login", h.login)
	api.POST("/auth/logout", h.logout)
	api.GET("/matches", h.listMatches)
	api.GET("/matches/:id", h.getMatch)
	api.GET("/matches/:id/board.png", h.boardPNG)
	api.GET("/matches/:id/targets", h.legalTargets)

	if d.WebSocket != nil {
		r.GET("/ws", gin.WrapH(d.WebSocket))
	}
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.FullPath() == "/health" {
			return
		}
		obslog.L().Debug("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// cors allows the configured client origin; "*" allows any.
func cors(clientURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (clientURL == "*" || origin == clientURL) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
