package main

import (
	"context"
	"log"
	"net/http"
	"time"

	api "github.com/opencourse/lms-backend/internal/api/http"
	authmw "github.com/opencourse/lms-backend/internal/auth/middleware"
	"github.com/opencourse/lms-backend/internal/config"
	"github.com/opencourse/lms-backend/internal/db"
	"github.com/opencourse/lms-backend/internal/grading"
	"github.com/opencourse/lms-backend/internal/quiz"
	"github.com/opencourse/lms-backend/internal/rbac"
	syncx "github.com/opencourse/lms-backend/internal/sync"

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

	store := quiz.NewSQLStore(dbh, cfg.DBDriver)
	events := syncx.NewEventRepo(dbh)
	svc := quiz.NewService(store, grading.NewDefaultGrader(), events)

	// --- Auth ---
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

	r.Post("/auth/login", authmw.LoginHandler(authSvc, dbh))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(authSvc))
		pr.Use(authmw.AttachRoleFromDB(dbh, cfg.Mode == config.ModeOffline))

		// Authoring (teacher/admin)
		pr.With(rbac.Require("quiz:create")).
			Post("/quizzes", api.CreateQuizHandler(store))
		pr.With(rbac.Require("quiz:update")).
			Put("/quizzes/{quizID}", api.UpdateQuizHandler(store))
		pr.With(rbac.Require("quiz:update")).
			Put("/quizzes/{quizID}/questions", api.ReplaceQuestionsHandler(store))
		pr.With(rbac.RequireAny("quiz:delete-own", "quiz:delete")).
			Delete("/quizzes/{quizID}", api.DeleteQuizHandler(store))

		// Scope assignment (admin)
		pr.With(rbac.Require("quiz:assign")).
			Post("/quizzes/{quizID}/assign", api.AssignQuizHandler(svc))
		pr.With(rbac.Require("quiz:assign")).
			Post("/quizzes/{quizID}/unassign", api.UnassignQuizHandler(svc))
		pr.With(rbac.Require("quiz:assign")).
			Get("/quizzes/unassigned", api.ListUnassignedQuizzesHandler(store))

		// Listings
		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes", api.ListQuizzesHandler(store))
		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes/{quizID}", api.GetQuizHandler(store))
		pr.With(rbac.Require("quiz:view")).
			Get("/courses/{courseID}/quizzes", api.ListCourseQuizzesHandler(store))
		pr.With(rbac.Require("quiz:view")).
			Get("/chapters/{chapterID}/quizzes", api.ListChapterQuizzesHandler(store))
		pr.With(rbac.Require("quiz:view")).
			Get("/videos/{videoID}/quizzes", api.ListVideoQuizzesHandler(store))
		pr.With(rbac.RequireAny("attempt:view-all", "quiz:view")).
			Get("/teachers/{teacherID}/quizzes", api.ListTeacherQuizzesHandler(store))

		// Student flow
		pr.With(rbac.Require("attempt:submit")).
			Post("/quizzes/{quizID}/submit", api.SubmitQuizHandler(svc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/quizzes/{quizID}/result", api.QuizResultHandler(svc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/quizzes/{quizID}/review", api.QuizReviewHandler(svc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/quizzes/{quizID}/attempted", api.AttemptStatusHandler(svc))
		pr.With(rbac.Require("attempt:reset-own")).
			Post("/quizzes/{quizID}/reset", api.ResetAttemptHandler(svc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
