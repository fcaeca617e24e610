package server

import (
	"context"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tunedeck/tunedeck/internal/auth"
	"github.com/tunedeck/tunedeck/internal/catalog"
	"github.com/tunedeck/tunedeck/internal/database"
	"github.com/tunedeck/tunedeck/internal/diagnostics"
	"github.com/tunedeck/tunedeck/internal/httputil"
	"github.com/tunedeck/tunedeck/internal/library"
	"github.com/tunedeck/tunedeck/internal/metrics"
	"github.com/tunedeck/tunedeck/internal/nowplaying"
	"github.com/tunedeck/tunedeck/internal/ratelimit"
	"github.com/tunedeck/tunedeck/internal/validate"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	DB                database.DBTX
	Pinger            Pinger
	Storage           library.ExportStorage
	Catalog           catalog.Searcher
	Player            nowplaying.Transport
	Geo               diagnostics.GeoResolver
	Metrics           prometheus.Gatherer
	WebFS             fs.FS
	AllowedOrigins    []string
	BaseURL           string
	S3PublicEndpoint  string
	JWTSecret         string
	OwnerPasswordHash string
}

type Server struct {
	router      chi.Router
	pinger      Pinger
	metrics     prometheus.Gatherer
	webFS       fs.FS
	authHandler *auth.Handler
	catalog     *catalog.Handler
	library     *library.Handler
	diagnostics *diagnostics.Handler
	nowPlaying  *nowplaying.Handler
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(slogMiddleware)
	r.Use(securityHeaders(SecurityConfig{
		BaseURL:         cfg.BaseURL,
		StorageEndpoint: cfg.S3PublicEndpoint,
	}))
	r.Use(corsMiddleware(cfg.AllowedOrigins))

	secureCookies := strings.HasPrefix(cfg.BaseURL, "https://")
	s := &Server{
		router:      r,
		pinger:      cfg.Pinger,
		metrics:     cfg.Metrics,
		webFS:       cfg.WebFS,
		authHandler: auth.NewHandler(cfg.JWTSecret, cfg.OwnerPasswordHash, secureCookies),
	}

	if cfg.Catalog != nil {
		s.catalog = catalog.NewHandler(cfg.Catalog)
	}

	var recent nowplaying.RecentRecorder
	if cfg.DB != nil {
		s.library = library.NewHandler(cfg.DB, cfg.Storage)
		s.diagnostics = diagnostics.NewHandler(cfg.DB, cfg.Geo)
		recent = s.library.Store()
	}

	if cfg.Player != nil {
		s.nowPlaying = nowplaying.NewHandler(cfg.Player, recent)
	}

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Wait blocks until background writes started by requests have finished.
func (s *Server) Wait() {
	if s.nowPlaying != nil {
		s.nowPlaying.Wait()
	}
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/limits", handleLimits)

	if s.metrics != nil {
		s.router.Handle("/metrics", metrics.Handler(s.metrics))
	}

	authLimiter := ratelimit.NewLimiter(0.5, 5)
	s.router.Route("/api/auth", func(r chi.Router) {
		r.Use(authLimiter.Middleware)
		r.Post("/login", s.authHandler.Login)
		r.Post("/refresh", s.authHandler.Refresh)
		r.Post("/logout", s.authHandler.Logout)
	})

	if s.catalog != nil {
		searchLimiter := ratelimit.NewLimiter(2, 10)
		s.router.With(searchLimiter.Middleware).Get("/api/youtube/search", s.catalog.Search)
	}

	if s.library != nil {
		s.router.Route("/api/recent", func(r chi.Router) {
			r.Get("/", s.library.ListRecent)
			r.With(s.authHandler.Middleware).Post("/", s.library.AddRecent)
		})

		exportLimiter := ratelimit.NewLimiter(0.2, 3)
		s.router.Route("/api/playlists", func(r chi.Router) {
			r.Get("/", s.library.ListPlaylists)
			r.Group(func(r chi.Router) {
				r.Use(s.authHandler.Middleware)
				r.Post("/", s.library.CreatePlaylist)
				r.Put("/{id}", s.library.RenamePlaylist)
				r.Delete("/{id}", s.library.DeletePlaylist)
				r.Post("/{id}/songs", s.library.AddSong)
				r.Delete("/{id}/songs/{videoId}", s.library.RemoveSong)
				r.With(exportLimiter.Middleware).Post("/{id}/export", s.library.ExportPlaylist)
			})
		})

		s.router.With(s.authHandler.Middleware).Post("/api/liked/toggle", s.library.ToggleLiked)
	}

	if s.diagnostics != nil {
		reportLimiter := ratelimit.NewLimiter(1, 20)
		s.router.Route("/api/playback/reports", func(r chi.Router) {
			r.With(reportLimiter.Middleware).Post("/", s.diagnostics.Create)
			r.With(s.authHandler.Middleware).Get("/summary", s.diagnostics.Summary)
		})
	}

	if s.nowPlaying != nil {
		s.router.Route("/api/player", func(r chi.Router) {
			r.Get("/", s.nowPlaying.Get)
			r.Group(func(r chi.Router) {
				r.Use(s.authHandler.Middleware)
				r.Post("/track", s.nowPlaying.SwitchTrack)
				r.Post("/toggle", s.nowPlaying.Toggle)
				r.Post("/seek", s.nowPlaying.Seek)
				r.Post("/stop", s.nowPlaying.Stop)
			})
		})
	}

	if s.webFS != nil {
		spa := newSPAFileServer(s.webFS)
		s.router.NotFound(spa.ServeHTTP)
	} else {
		s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
			httputil.WriteError(w, http.StatusNotFound, "not found")
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","error":"database unreachable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func handleLimits(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, validate.FieldLimits())
}
