package handler

import (
	"net/http"

	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/service"
)

func (h *HTTPHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.svc.VAPT.ListReports(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (h *HTTPHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title      string `json:"title"`
		ClientName string `json:"clientName"`
		Summary    string `json:"summary"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	rep, err := h.svc.VAPT.CreateReport(r.Context(), SessionFrom(r.Context()), &service.CreateReportRequest{
		Title:      req.Title,
		ClientName: req.ClientName,
		Summary:    req.Summary,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

func (h *HTTPHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	rep, err := h.svc.VAPT.GetReport(r.Context(), SessionFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *HTTPHandler) UpdateReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title      *string `json:"title"`
		ClientName *string `json:"clientName"`
		Summary    *string `json:"summary"`
		Status     *string `json:"status"`
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
	rep, err := h.svc.VAPT.UpdateReport(r.Context(), SessionFrom(r.Context()), id, &service.UpdateReportRequest{
		Title:      req.Title,
		ClientName: req.ClientName,
		Summary:    req.Summary,
		Status:     req.Status,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *HTTPHandler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.svc.VAPT.DeleteReport(r.Context(), SessionFrom(r.Context()), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) SeverityCounts(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	counts, err := h.svc.VAPT.SeverityCounts(r.Context(), SessionFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *HTTPHandler) DraftReportSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	text, err := h.svc.VAPT.DraftSummary(r.Context(), SessionFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (h *HTTPHandler) AddFinding(w http.ResponseWriter, r *http.Request) {
	var f domain.Finding
	if err := decodeJSON(r, &f); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	rep, err := h.svc.VAPT.AddFinding(r.Context(), SessionFrom(r.Context()), id, f)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

func (h *HTTPHandler) UpdateFinding(w http.ResponseWriter, r *http.Request) {
	var f domain.Finding
	if err := decodeJSON(r, &f); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if f.ID, err = pathParam(r, "findingID"); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	rep, err := h.svc.VAPT.UpdateFinding(r.Context(), SessionFrom(r.Context()), id, f)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *HTTPHandler) RemoveFinding(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	findingID, err := pathParam(r, "findingID")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	rep, err := h.svc.VAPT.RemoveFinding(r.Context(), SessionFrom(r.Context()), id, findingID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
