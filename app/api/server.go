package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/postsense/postsense/app/cfg"
)

// userIDKey is the gin context key the auth middleware stores the caller's
// user id under.
const userIDKey = "user_id"

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, X-User-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler) {
	cfg := cfg.Get()

	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	if cfg.APIAccessKey != "" {
		api := r.Group("/api")
		api.Use(authMiddleware(cfg.APIAccessKey))
		{
			api.POST("/search", handler.APISearch)
			api.GET("/search/suggestions", handler.APISearchSuggestions)
			api.POST("/embeddings/backfill", handler.APIBackfillEmbeddings)
			api.GET("/embeddings/status", handler.APIEmbeddingStatus)
			api.DELETE("/embeddings", handler.APIClearEmbeddings)
			api.POST("/insights/sync", handler.APISyncInsights)
			api.GET("/insights/sync", handler.APISyncStatus)
		}
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Warn("API endpoints disabled, API access key not set")
	}

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"health": "/health",
			"stats":  "/stats",
		}

		if cfg.APIAccessKey != "" {
			endpoints["search"] = "/api/search (POST, requires X-API-Key and X-User-ID headers)"
			endpoints["suggestions"] = "/api/search/suggestions (requires X-API-Key and X-User-ID headers)"
			endpoints["backfill"] = "/api/embeddings/backfill (POST, requires X-API-Key and X-User-ID headers)"
			endpoints["embedding_status"] = "/api/embeddings/status (requires X-API-Key and X-User-ID headers)"
			endpoints["clear_embeddings"] = "/api/embeddings (DELETE, requires X-API-Key and X-User-ID headers)"
			endpoints["sync"] = "/api/insights/sync (GET/POST, requires X-API-Key and X-User-ID headers)"
		}

		c.JSON(200, gin.H{
			"service":     "PostSense",
			"version":     cfg.Version,
			"description": "Semantic post search with engagement-aware ranking and insight synchronization",
			"endpoints":   endpoints,
			"api_status": map[string]interface{}{
				"enabled":       cfg.APIAccessKey != "",
				"auth_required": cfg.APIAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware authenticates API requests and resolves the acting user.
// Every API endpoint operates on a single user's data, so a missing
// X-User-ID header is rejected before any handler runs.
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "User required",
				"message": "Provide the acting user in the X-User-ID header",
			})
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}
