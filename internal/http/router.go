// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/visaflow/crm-backend/internal/ai"
	"github.com/visaflow/crm-backend/internal/analysis"
	"github.com/visaflow/crm-backend/internal/config"
	"github.com/visaflow/crm-backend/internal/domain"
	"github.com/visaflow/crm-backend/internal/http/handlers"
	"github.com/visaflow/crm-backend/internal/http/middleware"
	"github.com/visaflow/crm-backend/internal/repo"
	"github.com/visaflow/crm-backend/internal/services"
	"github.com/visaflow/crm-backend/internal/snapshot"
	"github.com/visaflow/crm-backend/internal/training"
)

// conversationRepoShim adapts the repository free functions to the
// services.ConversationRepo interface expected by the ConversationService.
// This keeps services decoupled from the concrete repo package while reusing
// existing functions.
type conversationRepoShim struct{}

// CreateConversation proxies repo.CreateConversation.
func (conversationRepoShim) CreateConversation(ctx context.Context, db *gorm.DB, operatorID, title string) (*domain.Conversation, error) {
	return repo.CreateConversation(ctx, db, operatorID, title)
}

// ListConversations proxies repo.ListConversations.
func (conversationRepoShim) ListConversations(ctx context.Context, db *gorm.DB, operatorID string) ([]domain.Conversation, error) {
	return repo.ListConversations(ctx, db, operatorID)
}

// GetConversation proxies repo.GetConversation.
func (conversationRepoShim) GetConversation(ctx context.Context, db *gorm.DB, id, operatorID string) (*domain.Conversation, error) {
	return repo.GetConversation(ctx, db, id, operatorID)
}

// UpdateConversationTitle proxies repo.UpdateConversationTitle.
func (conversationRepoShim) UpdateConversationTitle(ctx context.Context, db *gorm.DB, id, operatorID, title string) error {
	return repo.UpdateConversationTitle(ctx, db, id, operatorID, title)
}

// CountConversations proxies repo.CountConversations (pagination support).
func (conversationRepoShim) CountConversations(ctx context.Context, db *gorm.DB, operatorID string) (int64, error) {
	return repo.CountConversations(ctx, db, operatorID)
}

// ListConversationsPage proxies repo.ListConversationsPage (pagination support).
func (conversationRepoShim) ListConversationsPage(ctx context.Context, db *gorm.DB, operatorID string, offset, limit int) ([]domain.Conversation, error) {
	return repo.ListConversationsPage(ctx, db, operatorID, offset, limit)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per operator/IP, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-AI-Key", // remote AI credential pass-through
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, operatorID, conversationID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, operatorID, conversationID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per operator/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByOperatorOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Operator-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Operator-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Locale used for title casing and intent folding.
	locale, err := language.Parse(cfg.Assistant.Locale)
	if err != nil {
		locale = language.English
	}

	// Answer resolution chain: hybrid remote → classic remote → local.
	aiCfg := ai.Config{
		UseRemoteAI: cfg.AI.UseRemote,
		Provider:    ai.Provider(cfg.AI.Provider),
		APIKey:      cfg.AI.APIKey,
	}
	controller := &analysis.Controller{
		Classifier:   analysis.NewClassifier(locale),
		Registry:     analysis.NewRegistry(rand.New(rand.NewSource(time.Now().UnixNano())), time.Now),
		CompactLocal: cfg.Assistant.CompactLocal,
		Logger:       log.Logger,
	}
	if cfg.AI.HybridBaseURL != "" {
		controller.Hybrid = ai.NewHybridClient(cfg.AI.HybridBaseURL, nil)
	}
	var tester handlers.ConnectionTester
	if cfg.AI.ClassicBaseURL != "" {
		classic := ai.NewClassicClient(cfg.AI.ClassicBaseURL, nil)
		controller.Classic = classic
		tester = classic
	}

	// Dependency injection: services ← repo/db/snapshot/AI
	convSvc := services.NewConversationService(db, conversationRepoShim{})
	asstSvc := &services.AssistantService{
		DB:               db,
		Loader:           snapshot.NewLoader(repo.NewRecordStore(db)),
		Resolver:         controller,
		AI:               aiCfg,
		MaxQuestionRunes: cfg.Assistant.MaxQuestionRunes,
		MaxAnswerRunes:   cfg.Assistant.MaxAnswerRunes,
		TitleMaxLen:      60,
		TitleLocale:      locale,
		Logger:           log.Logger,
	}
	fbSvc := &services.FeedbackService{DB: db, Logger: log.Logger}
	if cfg.AI.TrainingBaseURL != "" {
		fbSvc.Trainer = training.NewCollector(cfg.AI.TrainingBaseURL, nil)
	}
	h := handlers.New(convSvc, asstSvc, fbSvc, tester, aiCfg)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Conversations
		api.POST("/conversations", h.CreateConversation)
		api.GET("/conversations", h.ListConversations)
		api.PUT("/conversations/:id/title", h.UpdateConversationTitle)

		// Assistant
		api.POST("/conversations/:id/ask", h.AskQuestion)
		api.GET("/conversations/:id/messages", h.ListMessages)

		// Feedback
		api.POST("/messages/:id/feedback", h.RecordFeedback)

		// Remote AI diagnostics
		api.GET("/ai/test-connection", h.TestAIConnection)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
