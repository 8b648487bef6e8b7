package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"pagemotion/internal/config"
	"pagemotion/internal/httpapi/handlers"
	"pagemotion/internal/httpkit"
	"pagemotion/internal/ledger"
	"pagemotion/internal/pkg/logger"
	"pagemotion/internal/pkg/middleware"
	"pagemotion/internal/ports"
	"pagemotion/internal/results"
	"pagemotion/internal/worker/queue"
)

// multipartMemory is how much of a multipart body is kept in memory before
// parts spill to temporary files.
const multipartMemory = 32 << 20

type Deps struct {
	Server    config.Server
	Queue     queue.Queue
	Pipelines results.Pipelines
	Ledger    ledger.Store
	SP        ports.StorageProvider
	RDB       *redis.Client
	Log       *logger.Logger
	Version   string
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	r := chi.NewRouter()
	r.Use(middleware.BlockCrawlers)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins: d.Server.CORSOrigins,
		ExposedHeaders: []string{"Content-Disposition", middleware.RequestIDHeader},
		MaxAgeSeconds:  600,
	}))

	h := handlers.New(handlers.Deps{
		Queue:     d.Queue,
		Pipelines: d.Pipelines,
		Ledger:    d.Ledger,
		SP:        d.SP,
		RDB:       d.RDB,
		Log:       log,
		Version:   d.Version,
	})
	wrap := func(fn middleware.ErrorHandlerFunc) http.HandlerFunc {
		return middleware.WrapHandler(log, fn)
	}

	// ---- LIVENESS ----
	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	// ---- SUBMISSION ----
	r.Group(func(r chi.Router) {
		if d.Server.MaxUploadMB > 0 {
			r.Use(chimw.RequestSize(d.Server.MaxUploadMB << 20))
		}
		if d.Server.RateLimit > 0 {
			r.Use(middleware.RateLimit(log, rate.NewLimiter(rate.Limit(d.Server.RateLimit), max(d.Server.RateBurst, 1))))
		}
		r.Use(middleware.SharedSecret(log, d.Server.APIKey, multipartMemory))
		r.Post("/upload", wrap(h.Upload))
	})

	// ---- RESULTS ----
	r.Group(func(r chi.Router) {
		r.Use(middleware.SharedSecret(log, d.Server.APIKey, multipartMemory))
		r.Get("/animation-results", wrap(h.AnimationResults))
		r.Post("/animation-results", wrap(h.AnimationResults))
		r.Get("/form-results", wrap(h.FormResults))
		r.Post("/form-results", wrap(h.FormResults))
		r.Get("/jobs/{jobID}", wrap(h.JobStatus))
	})

	return r
}
