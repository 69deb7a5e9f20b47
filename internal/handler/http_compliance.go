package handler

import (
	"net/http"

	"github.com/pesio-ai/be-plt-grc/internal/domain"
)

// ListFrameworks returns the built-in catalog
func (h *HTTPHandler) ListFrameworks(w http.ResponseWriter, r *http.Request) {
	tpls, err := h.svc.Compliance.Frameworks(SessionFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, tpls)
}

// LoadFramework bulk-creates controls from a catalog entry, or from an
// inline template when one is supplied.
func (h *HTTPHandler) LoadFramework(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Framework string                  `json:"framework"`
		Template  *domain.ControlTemplate `json:"template"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	sess := SessionFrom(r.Context())
	var (
		controls []*domain.ComplianceControl
		err      error
	)
	if req.Template != nil {
		controls, err = h.svc.Compliance.LoadTemplate(r.Context(), sess, req.Template)
	} else {
		controls, err = h.svc.Compliance.LoadFramework(r.Context(), sess, req.Framework)
	}
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, controls)
}

func (h *HTTPHandler) DeleteFramework(w http.ResponseWriter, r *http.Request) {
	framework, err := pathParam(r, "framework")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	n, err := h.svc.Compliance.DeleteFramework(r.Context(), SessionFrom(r.Context()), framework)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *HTTPHandler) ListControls(w http.ResponseWriter, r *http.Request) {
	controls, err := h.svc.Compliance.ListControls(r.Context(), SessionFrom(r.Context()), r.URL.Query().Get("framework"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, controls)
}

func (h *HTTPHandler) UpdateControl(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status   *string `json:"status"`
		Evidence *string `json:"evidence"`
		Notes    *string `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	c, err := h.svc.Compliance.UpdateControl(r.Context(), SessionFrom(r.Context()), id, domain.ControlUpdate{
		Status:   req.Status,
		Evidence: req.Evidence,
		Notes:    req.Notes,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *HTTPHandler) ControlRevisions(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	revs, err := h.svc.Compliance.Revisions(r.Context(), SessionFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, revs)
}

func (h *HTTPHandler) ControlHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	history, err := h.svc.Compliance.History(r.Context(), SessionFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *HTTPHandler) ComplianceSummary(w http.ResponseWriter, r *http.Request) {
	framework, err := pathParam(r, "framework")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	sum, err := h.svc.Compliance.Summary(r.Context(), SessionFrom(r.Context()), framework)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *HTTPHandler) ComplianceSummaries(w http.ResponseWriter, r *http.Request) {
	sums, err := h.svc.Compliance.Summaries(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sums)
}
