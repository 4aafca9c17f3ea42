/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. Metrics:    Prometheus request counters and latency
  5. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/members/*        Member management and statements
  /api/tontines/*       Tontines, enrollment, rosters, eligibility
  /api/sessions/*       Session lifecycle and reports
  /api/contributions/*  Contribution listing and bulk insert
  /api/penalties/*      Penalty management
  /api/credits/*        Credit lifecycle
  /api/tours/*          Payout rotation
  /api/projects/*       Project funding
  /api/reports/*        Dashboard and synthesis
  /api/scenarios/*      Demo data loading (development only)
  /metrics              Prometheus scrape endpoint
  /healthz              Liveness probe

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Member routes
		r.Route("/members", func(r chi.Router) {
			r.Get("/", h.ListMembers)
			r.Post("/", h.CreateMember)
			r.Get("/{id}", h.GetMember)
			r.Put("/{id}", h.UpdateMember)
			r.Delete("/{id}", h.DeleteMember)
			r.Get("/{id}/statement", h.GetMemberStatement)
			r.Get("/{id}/tontines", h.GetMemberParticipations)
		})

		// Tontine routes
		r.Route("/tontines", func(r chi.Router) {
			r.Get("/", h.ListTontines)
			r.Post("/", h.CreateTontine)
			r.Get("/{id}", h.GetTontine)
			r.Put("/{id}", h.UpdateTontine)
			r.Delete("/{id}", h.DeleteTontine)
			r.Get("/{id}/roster", h.GetRoster)
			r.Post("/{id}/enroll", h.Enroll)
			r.Get("/{id}/eligible", h.GetEligible)
			r.Get("/{id}/next-number", h.GetNextTourNumber)
		})

		// Session routes
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.ListSessions)
			r.Post("/", h.CreateSession)
			r.Get("/{id}", h.GetSession)
			r.Put("/{id}", h.UpdateSession)
			r.Post("/{id}/record", h.RecordMeeting)
			r.Post("/{id}/close", h.CloseSession)
			r.Post("/{id}/cancel", h.CancelSession)
			r.Get("/{id}/attendance", h.GetAttendance)
			r.Get("/{id}/report", h.GetSessionReport)
		})

		// Contribution routes
		r.Route("/contributions", func(r chi.Router) {
			r.Get("/", h.ListContributions)
			r.Post("/bulk", h.BulkContributions)
		})

		// Penalty routes
		r.Route("/penalties", func(r chi.Router) {
			r.Get("/", h.ListPenalties)
			r.Post("/", h.CreatePenalty)
			r.Put("/{id}", h.UpdatePenalty)
			r.Delete("/{id}", h.DeletePenalty)
		})

		// Credit routes
		r.Route("/credits", func(r chi.Router) {
			r.Get("/", h.ListCredits)
			r.Post("/", h.CreateCredit)
			r.Get("/{id}", h.GetCredit)
			r.Post("/{id}/repay", h.RepayCredit)
			r.Post("/reclassify", h.ReclassifyCredits)
		})

		// Tour routes
		r.Route("/tours", func(r chi.Router) {
			r.Get("/", h.ListTours)
			r.Post("/", h.CreateTour)
			r.Get("/{id}", h.GetTour)
			r.Delete("/{id}", h.DeleteTour)
		})

		// Project routes
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.CreateProject)
			r.Get("/{id}", h.GetProject)
			r.Post("/{id}/allocate", h.AllocateFunds)
			r.Post("/{id}/complete", h.CompleteProject)
			r.Get("/{id}/participants", h.ListProjectParticipants)
			r.Post("/{id}/participants", h.AddProjectParticipant)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/dashboard", h.GetDashboard)
			r.Get("/synthesis", h.GetSynthesis)
		})

		// Demo scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	// Observability
	r.Handle("/metrics", MetricsHandler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
