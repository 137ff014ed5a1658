package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/vsharee/vsharee/internal/adapters/signal"
	"github.com/vsharee/vsharee/internal/app"
	"github.com/vsharee/vsharee/internal/auth"
	"github.com/vsharee/vsharee/internal/config"
	"github.com/vsharee/vsharee/internal/domain"
	"github.com/vsharee/vsharee/internal/metrics"
)

// AuthMiddleware resolves the handshake credential before any handler
// runs. The token rides a query parameter (websocket clients cannot set
// headers) or a bearer header for the REST surface.
func AuthMiddleware(resolver auth.IdentityResolver, queryParam string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query(queryParam)
		if token == "" {
			header := c.GetHeader("Authorization")
			token = strings.TrimPrefix(header, "Bearer ")
			if token == header {
				token = ""
			}
		}
		if token == "" {
			metrics.AuthFailures.WithLabelValues("missing_token").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		user, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			metrics.AuthFailures.WithLabelValues("invalid_token").Inc()
			log.Warn().Err(err).Str("module", "adapters.http").Msg("handshake rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set("identity", user)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *signal.Controller, resolver auth.IdentityResolver, registry *app.Registry) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := r.Group("/", AuthMiddleware(resolver, cfg.Auth.TokenQueryParam))

	authed.GET("/ws", func(c *gin.Context) {
		ctl.HandleSignal(ctx, c)
	})

	// Read-only observation of live rooms; membership CRUD lives in the
	// account service, not here.
	api := authed.Group("/api")
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": registry.Rooms()})
	})
	api.GET("/rooms/:id/members", func(c *gin.Context) {
		gid := domain.GroupID(c.Param("id"))
		c.JSON(http.StatusOK, gin.H{"members": registry.RoomMembers(gid)})
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
