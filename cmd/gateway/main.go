package main

import (
	"context"
	"log"
	"net/http"
	"time"

	api "github.com/driveprep/driveprep/internal/api/http"
	"github.com/driveprep/driveprep/internal/auth"
	authmw "github.com/driveprep/driveprep/internal/auth/middleware"
	"github.com/driveprep/driveprep/internal/bank"
	"github.com/driveprep/driveprep/internal/config"
	"github.com/driveprep/driveprep/internal/db"
	"github.com/driveprep/driveprep/internal/quiz"
	"github.com/driveprep/driveprep/internal/result"
	"github.com/driveprep/driveprep/pkg/resultsink"
	"github.com/driveprep/driveprep/pkg/resultsink/resulthttp"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	// --- Question bank (static, embedded) ---
	qb, err := bank.Load()
	if err != nil {
		log.Fatalf("question bank: %v", err)
	}

	// --- Result sink: local history always; remote submission only when a
	// results service is configured. ---
	store := result.NewSQLStore(dbh)
	var submitter resultsink.Submitter
	if cfg.ResultsURL != "" {
		submitter = resulthttp.New(resulthttp.Config{
			BaseURL:      cfg.ResultsURL,
			Timeout:      cfg.ResultsTimeout,
			TokenURL:     cfg.ResultsTokenURL,
			ClientID:     cfg.ResultsClientID,
			ClientSecret: cfg.ResultsClientSecret,
		})
	}
	sink := resultsink.New(store, submitter, time.Now)
	sink.SubmitTimeout = cfg.ResultsTimeout

	registry := quiz.NewRegistry()
	authSvc := authmw.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Auth
	r.Post("/auth/register", auth.RegisterHandler(authSvc, dbh))
	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))
	if cfg.EnableGuestAuth {
		r.Post("/auth/guest", auth.GuestLoginHandler(authSvc, dbh))
	}

	// Protected API
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(authSvc))

		// Account
		pr.Get("/me", api.MeHandler(dbh))
		pr.Post("/me/password", api.ChangePasswordHandler(dbh))

		// Question sets
		pr.Get("/states", api.ListStatesHandler(qb))
		pr.Get("/states/{state}/tests", api.ListTestsHandler(qb))
		pr.Get("/states/{state}/tests/{testID}", api.GetQuizHandler(qb))

		// Session flow
		pr.Post("/sessions", api.CreateSessionHandler(registry, qb))
		pr.Get("/sessions/{sessionID}", api.GetSessionHandler(registry))
		pr.Post("/sessions/{sessionID}/answer", api.SelectAnswerHandler(registry))
		pr.Post("/sessions/{sessionID}/next", api.AdvanceHandler(registry, sink))
		pr.Post("/sessions/{sessionID}/prev", api.RetreatHandler(registry))

		// History and aggregates
		pr.Get("/results", api.ListResultsHandler(store))
		pr.Get("/results/{resultID}", api.GetResultHandler(store, qb))
		pr.Get("/stats", api.StatsHandler(store))
		pr.Get("/analysis", api.AnalysisHandler(store))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
