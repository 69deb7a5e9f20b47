package handler

import (
	"encoding/json"
	"net/http"

	"github.com/pesio-ai/be-plt-grc/internal/domain"
)

type privacyRecordRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// privacyData decodes the type-tagged payload into its register variant
func (req *privacyRecordRequest) privacyData() (domain.PrivacyData, error) {
	t, err := domain.ParsePrivacyType(req.Type)
	if err != nil {
		return nil, err
	}
	return domain.DecodePrivacyData(t, req.Data)
}

func (h *HTTPHandler) ListPrivacyRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.Privacy.ListRecords(r.Context(), SessionFrom(r.Context()), r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *HTTPHandler) CreatePrivacyRecord(w http.ResponseWriter, r *http.Request) {
	var req privacyRecordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	data, err := req.privacyData()
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	rec, err := h.svc.Privacy.CreateRecord(r.Context(), SessionFrom(r.Context()), data)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *HTTPHandler) GetPrivacyRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	rec, err := h.svc.Privacy.GetRecord(r.Context(), SessionFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *HTTPHandler) UpdatePrivacyRecord(w http.ResponseWriter, r *http.Request) {
	var req privacyRecordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	data, err := req.privacyData()
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	rec, err := h.svc.Privacy.UpdateRecord(r.Context(), SessionFrom(r.Context()), id, data)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *HTTPHandler) DeletePrivacyRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.svc.Privacy.DeleteRecord(r.Context(), SessionFrom(r.Context()), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
