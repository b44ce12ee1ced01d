package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.withRequestID)
	r.Use(s.withAccessLog)
	r.Use(s.withRecovery)
	r.Use(s.withCORS)
	r.Use(s.withBodyLimit)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	// Completion callback from workers without a broker consumer.
	r.Post("/respond", s.handleRespond)

	// Credential endpoints
	r.Group(func(r chi.Router) {
		r.Use(s.limiter.middleware)
		r.Put("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
	})

	// Mutating routes verify the token themselves, after body validation.
	r.Route("/course", func(r chi.Router) {
		r.Put("/", s.handleCreateCourse)
		r.Get("/", s.handleListCourses)
		r.Get("/{id}", s.handleGetCourse)
		r.Post("/{id}", s.handleUpdateCourse)
		r.Delete("/{id}", s.handleDeleteCourse)
	})

	r.Route("/wish", func(r chi.Router) {
		r.Put("/", s.handleCreateWish)
		r.Get("/", s.handleListWishes)
		r.Get("/{id}", s.handleGetWish)
		r.Post("/{id}", s.handleUpdateWish)
		r.Delete("/{id}", s.handleDeleteWish)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)

		r.Route("/stats", func(r chi.Router) {
			r.Get("/login", s.handleLoginStats)
			r.Get("/registration", s.handleRegistrationStats)
			r.Get("/course/create/{username}", s.counterStats("COURSE_CREATE", "course", "create", "username"))
			r.Get("/course/fetch", s.counterStats("COURSE_FETCH", "course", "fetch", ""))
			r.Get("/course/fetch/{courseId}", s.counterStats("COURSE_FETCH", "course", "fetch", "courseId"))
			r.Get("/course/update/{courseId}", s.counterStats("COURSE_UPDATE", "course", "update", "courseId"))
			r.Get("/course/delete/{username}", s.counterStats("COURSE_DELETE", "course", "delete", "username"))
			r.Get("/wish/create/{username}", s.counterStats("WISH_CREATE", "wish", "create", "username"))
			r.Get("/wish/fetch", s.counterStats("WISH_FETCH", "wish", "fetch", ""))
			r.Get("/wish/fetch/{wishId}", s.counterStats("WISH_FETCH", "wish", "fetch", "wishId"))
			r.Get("/wish/update/{wishId}", s.counterStats("WISH_UPDATE", "wish", "update", "wishId"))
			r.Get("/wish/delete/{username}", s.counterStats("WISH_DELETE", "wish", "delete", "username"))
		})

		r.Get("/audit", s.handleListAudit)
		r.Get(s.wsPath(), s.handleWebSocket)
	})

	return r
}

// wsPath returns the configured completion stream path.
func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}
