// Route registration and go-chi router setup.
// Public routes (/health, /metrics) vs JWT-protected routes (/api/v1/*).
package api

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/diaflow/diaflow/internal/api/handlers"
	apmiddleware "github.com/diaflow/diaflow/internal/api/middleware"
	"github.com/diaflow/diaflow/internal/domain/artifact"
	"github.com/diaflow/diaflow/internal/domain/diagram"
	"github.com/diaflow/diaflow/internal/domain/generate"
	"github.com/diaflow/diaflow/internal/infra/cache"
	"github.com/diaflow/diaflow/internal/infra/config"
	"github.com/diaflow/diaflow/internal/infra/eventbus"
	"github.com/diaflow/diaflow/internal/infra/llm"
	"github.com/diaflow/diaflow/internal/infra/metrics"
	"github.com/diaflow/diaflow/internal/infra/validator"
)

// NewRouter creates and configures a chi router with all routes.
func NewRouter(db *sql.DB, log *zap.Logger) *chi.Mux {
	cfg := config.Load()
	r := chi.NewRouter()

	// Global middleware (runs on all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apmiddleware.RequestLogger(log))
	r.Use(middleware.Recoverer)

	recorder := metrics.NewRecorder()

	// ===== PUBLIC ROUTES (no auth required) =====

	// Health check, used by load balancers and health probes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	r.Method(http.MethodGet, "/metrics", recorder.Handler())

	// ===== PROTECTED ROUTES (JWT required via AuthMiddleware) =====

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apmiddleware.AuthMiddleware)

		providers := map[string]llm.StreamingProvider{
			"ollama": llm.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel),
		}
		if cfg.GeminiAPIKey != "" {
			providers["gemini"] = llm.NewGeminiProvider(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel)
		}
		llmRouter := llm.NewRouter(providers, cfg.LLMProvider)

		var completionCache cache.CompletionCache = cache.Noop{}
		if cfg.RedisAddr != "" {
			completionCache = cache.New(cfg.RedisAddr, cache.WithTTL(cfg.CacheTTL))
		}

		bus := eventbus.New()
		artifactSvc := artifact.NewService(db, bus, log)
		previewWriter := artifact.NewPreviewWriter(db, bus, log)
		go previewWriter.Start(context.Background())

		registry, err := diagram.NewRegistry()
		if err != nil {
			// The catalog ships inside the binary; a load failure is a build
			// defect, not a runtime condition.
			log.Fatal("diagram catalog invalid", zap.Error(err))
		}

		genSvc := generate.NewService(
			registry,
			llmRouter,
			validator.NewClient(cfg.ValidatorURL),
			artifactSvc,
			completionCache,
			recorder,
			log,
			generate.Options{
				SettleDelay:       cfg.SettleDelay,
				PacingDelay:       cfg.PacingDelay,
				GenerationTimeout: cfg.GenerationTimeout,
				BaseTemperature:   cfg.BaseTemperature,
			},
		)

		generateHandler := handlers.NewGenerateHandler(genSvc)
		projectHandler := handlers.NewProjectHandler(artifactSvc)
		quotaHandler := handlers.NewQuotaHandler(artifactSvc, cfg.DefaultCredits)

		r.Post("/diagrams/generate", generateHandler.Generate) // POST /api/v1/diagrams/generate

		r.Route("/projects/{id}", func(r chi.Router) {
			r.Get("/diagram", projectHandler.GetDiagram)  // GET /api/v1/projects/{id}/diagram
			r.Get("/history", projectHandler.ListHistory) // GET /api/v1/projects/{id}/history
		})

		r.Get("/quota", quotaHandler.GetQuota) // GET /api/v1/quota
	})

	return r
}
