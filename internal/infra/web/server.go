package web

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"prismabox-scraper/internal/infra/redis"
	"prismabox-scraper/internal/usecase"
)

// SubmitLimiter throttles job submissions per client key. Satisfied by the
// redis rate limiter; nil disables throttling.
type SubmitLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Server struct {
	scrapingUC *usecase.ScrapingUseCase
	auth       *AuthManager
	apiKey     string

	limiter      SubmitLimiter
	submitLimit  int
	submitWindow time.Duration

	started time.Time
	dev     bool

	log *zerolog.Logger
}

func NewServer(scrapingUC *usecase.ScrapingUseCase, auth *AuthManager, apiKey string, limiter SubmitLimiter, submitLimit int, submitWindow time.Duration, dev bool, logger *zerolog.Logger) *Server {
	return &Server{
		scrapingUC:   scrapingUC,
		auth:         auth,
		apiKey:       apiKey,
		limiter:      limiter,
		submitLimit:  submitLimit,
		submitWindow: submitWindow,
		started:      time.Now(),
		dev:          dev,
		log:          logger,
	}
}

// Router assembles the full HTTP surface.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/scraping", func(r chi.Router) {
		r.With(s.rateLimitMiddleware).Post("/start", s.startHandler)
		r.Get("/status/{jobID}", s.statusHandler)
		r.Delete("/job/{jobID}", s.cancelHandler)

		r.Group(func(r chi.Router) {
			r.Use(s.adminMiddleware)
			r.Get("/jobs", s.listJobsHandler)
			r.Get("/active", s.activeWorkersHandler)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/session", s.sessionLoginHandler)
		r.Delete("/session", s.sessionLogoutHandler)
	})

	return r
}

// adminMiddleware guards inspection endpoints. It accepts an admin JWT (from
// the session endpoint) or the raw API key as a bearer token. When no API key
// is configured the endpoints are open, which fits single-tenant deployments.
func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		if s.auth != nil {
			if _, err := s.auth.ParseFromRequest(r); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}
		if bearerToken(r) == s.apiKey {
			next.ServeHTTP(w, r)
			return
		}

		writeError(w, http.StatusUnauthorized, "authentication required")
	})
}

// rateLimitMiddleware applies the per-client submission window. Limiter
// errors are logged and let the request through; redis being down must not
// take submissions down with it.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || s.submitLimit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		key := redis.SubmitKey(clientIP(r))
		ok, err := s.limiter.Allow(r.Context(), key, s.submitLimit, s.submitWindow)
		if err != nil {
			s.log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		}
		if !ok {
			writeError(w, http.StatusTooManyRequests, "too many scraping requests, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	hdr := r.Header.Get("Authorization")
	if hdr == "" {
		return ""
	}
	parts := strings.SplitN(hdr, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
