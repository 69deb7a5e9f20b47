package handler

import (
	"io"
	"mime"
	"net/http"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/service"
)

func (h *HTTPHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Settings.GetSettings(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// UpdateSettings applies a partial update; absent fields are left as they are
func (h *HTTPHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientLogo     *string `json:"clientLogo"`
		AuditorLogo    *string `json:"auditorLogo"`
		PrimaryColor   *string `json:"primaryColor"`
		SecondaryColor *string `json:"secondaryColor"`
		CompanyName    *string `json:"companyName"`
		AIProvider     *string `json:"aiProvider"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	st, err := h.svc.Settings.UpdateSettings(r.Context(), SessionFrom(r.Context()), domain.SettingsUpdate{
		ClientLogo:     req.ClientLogo,
		AuditorLogo:    req.AuditorLogo,
		PrimaryColor:   req.PrimaryColor,
		SecondaryColor: req.SecondaryColor,
		CompanyName:    req.CompanyName,
		AIProvider:     req.AIProvider,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *HTTPHandler) SetAIKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.svc.Settings.SetAIKey(r.Context(), SessionFrom(r.Context()), req.Key); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) ClearAIKey(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Settings.ClearAIKey(r.Context(), SessionFrom(r.Context())); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.svc.Companies.ListCompanies(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

func (h *HTTPHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	c, err := h.svc.Companies.CreateCompany(r.Context(), SessionFrom(r.Context()), req.Name)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *HTTPHandler) ListEvidence(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	files, err := h.svc.Evidence.ListEvidence(r.Context(), SessionFrom(r.Context()), q.Get("category"), q.Get("entityId"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// UploadEvidence stores the "file" part of a multipart form under the
// "category" and optional "entityId" fields.
func (h *HTTPHandler) UploadEvidence(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, r, h.log, apperrors.Validation("invalid multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, fh, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, h.log, apperrors.Validation("file is required"))
		return
	}
	defer f.Close()

	ev, err := h.svc.Evidence.Upload(r.Context(), SessionFrom(r.Context()), &service.UploadRequest{
		Category:    r.FormValue("category"),
		EntityID:    r.FormValue("entityId"),
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (h *HTTPHandler) DownloadEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ev, rc, err := h.svc.Evidence.OpenEvidence(r.Context(), SessionFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	defer rc.Close()

	ct := ev.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": ev.FileName}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.log.Warn().Err(err).Str("evidence_id", id).Msg("Evidence download interrupted")
	}
}

func (h *HTTPHandler) DeleteEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.svc.Evidence.DeleteEvidence(r.Context(), SessionFrom(r.Context()), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
