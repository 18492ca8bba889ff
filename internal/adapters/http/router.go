package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerlink/internal/adapters/signal"
	"github.com/dkeye/peerlink/internal/app/orch"
	"github.com/dkeye/peerlink/internal/config"
	"github.com/dkeye/peerlink/internal/domain"
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware gives every browser a stable peer id cookie.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("PeerlinkSessions", store))
	r.Use(ClientTokenMiddleware())

	var limiter *signal.RoomRateLimiter
	if cfg.JoinRateLimit > 0 {
		limiter = signal.NewRoomRateLimiter(cfg.JoinRateLimit, cfg.JoinRateInterval)
	}
	ctrl := signal.NewSignalWSController(o, limiter)
	if cfg.ReadLimit > 0 {
		ctrl.ReadLimit = cfg.ReadLimit
	}
	if cfg.PingPeriod > 0 {
		ctrl.PingPeriod = cfg.PingPeriod
	}

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("token", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": o.Rooms.List()})
	})

	api.GET("/rooms/:name/members", func(c *gin.Context) {
		room, ok := o.Rooms.GetRoom(domain.RoomName(c.Param("name")))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room_not_found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"owner": room.Owner(), "members": room.MembersSnapshot()})
	})

	api.DELETE("/rooms/:name", func(c *gin.Context) {
		name := domain.RoomName(c.Param("name"))
		if !o.EvictRoom(name) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room_not_found"})
			return
		}
		log.Info().Str("module", "adapters.http").Str("room", string(name)).Msg("room evicted over http")
		c.Status(http.StatusNoContent)
	})

	return r
}
