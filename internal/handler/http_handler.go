package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pesio-ai/be-plt-grc/internal/logger"
	"github.com/pesio-ai/be-plt-grc/internal/service"
)

// Services bundles the application services exposed by the transports.
type Services struct {
	Auth       *service.AuthService
	Users      *service.UserService
	Roles      *service.RoleService
	Vendors    *service.VendorService
	Templates  *service.TemplateService
	Compliance *service.ComplianceService
	VAPT       *service.VAPTService
	Privacy    *service.PrivacyService
	Settings   *service.SettingsService
	Companies  *service.CompanyService
	Evidence   *service.EvidenceService
}

// HTTPHandler serves the JSON API under /api/v1
type HTTPHandler struct {
	svc *Services
	log *logger.Logger
	// ready reports storage health for /readyz. Nil means always ready.
	ready func(r *http.Request) error
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(svc *Services, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, log: log}
}

// WithReadiness sets the readiness probe used by /readyz
func (h *HTTPHandler) WithReadiness(fn func(r *http.Request) error) *HTTPHandler {
	h.ready = fn
	return h
}

// Routes builds the router
func (h *HTTPHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Login)
		r.Post("/auth/refresh", h.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(requireSession(h.svc.Auth, h.log))

			r.Post("/auth/logout", h.Logout)
			r.Post("/auth/password", h.ChangePassword)
			r.Get("/auth/me", h.Me)

			r.Get("/permissions/check", h.CheckPermission)
			r.Post("/risk/score", h.ComputeRiskScore)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.ListUsers)
				r.Post("/", h.CreateUser)
				r.Get("/{id}", h.GetUser)
				r.Patch("/{id}", h.UpdateUser)
				r.Delete("/{id}", h.DeleteUser)
				r.Post("/{id}/reset-password", h.ResetPassword)
				r.Get("/{id}/permissions", h.GetUserPermissions)
			})

			r.Route("/vendors", func(r chi.Router) {
				r.Get("/", h.ListVendors)
				r.Post("/", h.CreateVendor)
				r.Get("/{id}", h.GetVendor)
				r.Delete("/{id}", h.DeleteVendor)
				r.Put("/{id}/status", h.UpdateVendorStatus)
				r.Put("/{id}/responses", h.UpdateVendorResponses)
				r.Put("/{id}/template", h.AssignVendorTemplate)
				r.Get("/{id}/score", h.VendorScoreBreakdown)
				r.Get("/{id}/audit", h.GetAuditResponses)
				r.Post("/{id}/audit", h.SaveAuditResponses)
				r.Post("/{id}/summary", h.DraftVendorSummary)
			})
			r.Get("/audit-templates", h.ListAuditTemplates)
			r.Post("/audit-templates", h.CreateAuditTemplate)

			r.Route("/compliance", func(r chi.Router) {
				r.Get("/frameworks", h.ListFrameworks)
				r.Post("/frameworks", h.LoadFramework)
				r.Delete("/frameworks/{framework}", h.DeleteFramework)
				r.Get("/summary", h.ComplianceSummaries)
				r.Get("/frameworks/{framework}/summary", h.ComplianceSummary)
				r.Get("/controls", h.ListControls)
				r.Patch("/controls/{id}", h.UpdateControl)
				r.Get("/controls/{id}/revisions", h.ControlRevisions)
				r.Get("/controls/{id}/history", h.ControlHistory)
			})

			r.Route("/vapt/reports", func(r chi.Router) {
				r.Get("/", h.ListReports)
				r.Post("/", h.CreateReport)
				r.Get("/{id}", h.GetReport)
				r.Patch("/{id}", h.UpdateReport)
				r.Delete("/{id}", h.DeleteReport)
				r.Get("/{id}/severity", h.SeverityCounts)
				r.Post("/{id}/summary", h.DraftReportSummary)
				r.Post("/{id}/findings", h.AddFinding)
				r.Put("/{id}/findings/{findingID}", h.UpdateFinding)
				r.Delete("/{id}/findings/{findingID}", h.RemoveFinding)
			})

			r.Route("/privacy/records", func(r chi.Router) {
				r.Get("/", h.ListPrivacyRecords)
				r.Post("/", h.CreatePrivacyRecord)
				r.Get("/{id}", h.GetPrivacyRecord)
				r.Put("/{id}", h.UpdatePrivacyRecord)
				r.Delete("/{id}", h.DeletePrivacyRecord)
			})

			r.Get("/settings", h.GetSettings)
			r.Patch("/settings", h.UpdateSettings)
			r.Put("/settings/ai-key", h.SetAIKey)
			r.Delete("/settings/ai-key", h.ClearAIKey)

			r.Get("/companies", h.ListCompanies)
			r.Post("/companies", h.CreateCompany)

			r.Get("/evidence", h.ListEvidence)
			r.Post("/evidence", h.UploadEvidence)
			r.Get("/evidence/{id}", h.DownloadEvidence)
			r.Delete("/evidence/{id}", h.DeleteEvidence)
		})
	})

	return r
}

// Healthz reports liveness
func (h *HTTPHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports whether storage is reachable
func (h *HTTPHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r); err != nil {
			h.log.Warn().Err(err).Msg("Readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
