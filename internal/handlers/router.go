package handlers

import (
	"net/http"

	"dance-ops/internal/authz"
	"dance-ops/internal/config"
	"dance-ops/internal/metrics"
	appmw "dance-ops/internal/middleware"
	"dance-ops/internal/reconcile"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Deps is everything the router needs.
type Deps struct {
	Config     *config.Config
	Store      Store
	Reconciler *reconcile.Service
	Authz      *authz.Authorizer
	Metrics    *metrics.Metrics
	Log        *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	authH := NewAuthHandler(d.Config, d.Store, log)
	studentsH := NewStudentsHandler(d.Config, d.Store, d.Reconciler, log)
	sectionsH := NewSectionsHandler(d.Config, d.Store, d.Reconciler, log)
	contactH := NewContactHandler(d.Config, d.Store, d.Reconciler, log)
	opsH := NewOpsHandler(d.Config, d.Store, d.Reconciler, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if d.Metrics != nil {
		r.Use(appmw.Instrument(d.Metrics))
	}
	r.Use(appmw.RequestLogger(log))
	r.Use(middleware.Recoverer)

	// Applied per group so the full reconcile can outlive the request timeout.
	bounded := func(r chi.Router) {
		if d.Config.RequestTimeout > 0 {
			r.Use(middleware.Timeout(d.Config.RequestTimeout))
		}
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Public routes
	r.Group(func(r chi.Router) {
		bounded(r)
		r.Post("/login", authH.Login)
		r.Post("/logout", authH.Logout)
		r.Get("/healthz", opsH.Health)
		if d.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
		}
	})

	can := func(object, action string) func(http.Handler) http.Handler {
		return appmw.Authorize(d.Authz, log, object, action)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(appmw.RequireAuth(d.Config.SessionSecret))

		// Runs on its own deadline in the handler.
		r.With(can(authz.ObjReconcile, authz.ActWrite)).Post("/reconcile", opsH.Reconcile)

		r.Group(func(r chi.Router) {
			bounded(r)

			r.With(can(authz.ObjAccount, authz.ActRead)).Get("/me", authH.Me)

			r.Route("/students", func(r chi.Router) {
				r.With(can(authz.ObjStudents, authz.ActRead)).Get("/", studentsH.List)
				r.With(can(authz.ObjStudents, authz.ActWrite)).Post("/", studentsH.Create)
				r.With(can(authz.ObjStudents, authz.ActRead)).Get("/{id}", studentsH.Get)
				r.With(can(authz.ObjPayments, authz.ActWrite)).Post("/{id}/payment", studentsH.UpdatePayment)
				r.With(can(authz.ObjEnrollments, authz.ActWrite)).Post("/{id}/move", studentsH.Move)
				r.With(can(authz.ObjEnrollments, authz.ActWrite)).Post("/{id}/session", studentsH.ChangeSession)
				r.With(can(authz.ObjEnrollments, authz.ActWrite)).Post("/{id}/enroll", studentsH.Enroll)
				r.With(can(authz.ObjExports, authz.ActRead)).Get("/{id}/statement.pdf", studentsH.Statement)
			})

			r.Route("/sections", func(r chi.Router) {
				r.With(can(authz.ObjSections, authz.ActRead)).Get("/", sectionsH.List)
				r.With(can(authz.ObjSections, authz.ActWrite)).Post("/", sectionsH.Create)
				r.With(can(authz.ObjWaitlist, authz.ActRead)).Get("/{id}/waitlist", sectionsH.Waitlist)
				r.With(can(authz.ObjWaitlist, authz.ActWrite)).Post("/{id}/waitlist/promote", sectionsH.Promote)
				r.With(can(authz.ObjWaitlist, authz.ActWrite)).Delete("/{id}/waitlist/{enrollmentID}", sectionsH.RemoveFromWaitlist)
				r.With(can(authz.ObjContact, authz.ActRead)).Get("/{id}/contact", contactH.Section)
			})

			r.With(can(authz.ObjEnrollments, authz.ActWrite)).Delete("/enrollments/{id}", sectionsH.DropEnrollment)
			r.With(can(authz.ObjContact, authz.ActRead)).Get("/contact/unpaid", contactH.Unpaid)
			r.With(can(authz.ObjExports, authz.ActRead)).Get("/export/roster.xlsx", opsH.Roster)
			r.With(can(authz.ObjPrices, authz.ActRead)).Get("/prices", opsH.Prices)
		})
	})

	return r
}
