// Package server exposes the three game engines over a JSON API. Handlers
// hold no state of their own: every request round-trips through the database,
// so any number of server processes can sit behind one load balancer.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"quote-games/internal/anarchy"
	"quote-games/internal/attribution"
	"quote-games/internal/blackline"
	"quote-games/internal/config"
	"quote-games/internal/quotes"
)

type Server struct {
	db  *gorm.DB
	cfg config.Config
	log *slog.Logger

	quotes      quotes.Store
	anarchy     *anarchy.Service
	blackline   *blackline.Service
	attribution *attribution.Service
}

func New(conn *gorm.DB, cfg config.Config, logger *slog.Logger) *Server {
	store := quotes.NewGormStore(conn)
	return &Server{
		db:          conn,
		cfg:         cfg,
		log:         logger,
		quotes:      store,
		anarchy:     anarchy.New(conn, store, logger, cfg.BlackCardsPath),
		blackline:   blackline.New(conn, store, logger),
		attribution: attribution.New(conn, store, logger),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/quote-anarchy", func(r chi.Router) {
		r.Get("/bootstrap", s.handleAnarchyBootstrap)
		r.Post("/solo/deal", s.handleAnarchySoloDeal)
		r.Post("/sessions", s.handleAnarchyCreate)
		r.Route("/sessions/{sessionCode}", func(r chi.Router) {
			r.Get("/", s.handleAnarchyState)
			r.Post("/join", s.handleAnarchyJoin)
			r.Post("/start", s.handleAnarchyStart)
			r.Post("/submit", s.handleAnarchySubmit)
			r.Post("/pick-winner", s.handleAnarchyPickWinner)
			r.Post("/vote", s.handleAnarchyVote)
			r.Post("/next-round", s.handleAnarchyNextRound)
			r.Post("/end", s.handleAnarchyEnd)
			r.Post("/leave", s.handleAnarchyLeave)
		})
	})

	r.Route("/api/blackline-rush", func(r chi.Router) {
		r.Get("/bootstrap", s.handleBlacklineBootstrap)
		r.Post("/sessions", s.handleBlacklineCreate)
		r.Route("/sessions/{sessionCode}", func(r chi.Router) {
			r.Get("/", s.handleBlacklineState)
			r.Post("/join", s.handleBlacklineJoin)
			r.Post("/start", s.handleBlacklineStart)
			r.Post("/submit-redaction", s.handleBlacklineSubmitRedaction)
			r.Post("/guess", s.handleBlacklineGuess)
			r.Post("/end-turn", s.handleBlacklineEndTurn)
			r.Post("/next-turn", s.handleBlacklineNextTurn)
			r.Post("/end", s.handleBlacklineEnd)
			r.Post("/leave", s.handleBlacklineLeave)
		})
	})

	r.Route("/api/who-said-it", func(r chi.Router) {
		r.Get("/bootstrap", s.handleAttributionBootstrap)
		r.Post("/sessions", s.handleAttributionCreate)
		r.Route("/sessions/{sessionCode}", func(r chi.Router) {
			r.Get("/", s.handleAttributionState)
			r.Post("/join", s.handleAttributionJoin)
			r.Post("/start", s.handleAttributionStart)
			r.Post("/answer", s.handleAttributionAnswer)
			r.Post("/end-turn", s.handleAttributionEndTurn)
			r.Post("/next-turn", s.handleAttributionNextTurn)
			r.Post("/end", s.handleAttributionEnd)
			r.Post("/leave", s.handleAttributionLeave)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
