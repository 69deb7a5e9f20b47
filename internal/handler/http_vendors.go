package handler

import (
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/service"
)

const maxMultipartMemory = 32 << 20

func (h *HTTPHandler) ListVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.svc.Vendors.ListVendors(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, vendors)
}

func (h *HTTPHandler) CreateVendor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string            `json:"name"`
		Questionnaire string            `json:"questionnaire"`
		Responses     map[string]string `json:"responses"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	v, err := h.svc.Vendors.CreateVendor(r.Context(), SessionFrom(r.Context()), &service.CreateVendorRequest{
		Name:          req.Name,
		Questionnaire: req.Questionnaire,
		Responses:     req.Responses,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *HTTPHandler) GetVendor(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	v, err := h.svc.Vendors.GetVendor(r.Context(), SessionFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *HTTPHandler) DeleteVendor(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.svc.Vendors.DeleteVendor(r.Context(), SessionFrom(r.Context()), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) UpdateVendorStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
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
	v, err := h.svc.Vendors.UpdateStatus(r.Context(), SessionFrom(r.Context()), id, req.Status)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *HTTPHandler) UpdateVendorResponses(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Responses map[string]string `json:"responses"`
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
	v, err := h.svc.Vendors.UpdateResponses(r.Context(), SessionFrom(r.Context()), id, req.Responses)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *HTTPHandler) AssignVendorTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Template string `json:"template"`
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
	v, err := h.svc.Vendors.AssignTemplate(r.Context(), SessionFrom(r.Context()), id, req.Template)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *HTTPHandler) VendorScoreBreakdown(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	sess := SessionFrom(r.Context())
	v, err := h.svc.Vendors.GetVendor(r.Context(), sess, id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	findings, err := h.svc.Vendors.VendorScoreBreakdown(r.Context(), sess, id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, riskScoreResponse{Score: v.RiskScore, Band: v.Band(), Findings: findings})
}

func (h *HTTPHandler) GetAuditResponses(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	responses, err := h.svc.Vendors.GetAuditResponses(r.Context(), SessionFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, responses)
}

type auditAnswerJSON struct {
	ControlID string `json:"controlId"`
	Response  string `json:"response"`
	Remark    string `json:"remark"`
	FileName  string `json:"fileName"`
}

type saveAuditResponse struct {
	Responses []domain.AuditResponse `json:"responses"`
	Warnings  []string               `json:"warnings,omitempty"`
}

// SaveAuditResponses accepts either a JSON array of answers or a multipart
// form with the array in the "responses" field and one optional file part
// per control named "file_<controlId>".
func (h *HTTPHandler) SaveAuditResponses(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	var answers []service.AuditAnswer
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		answers, closers, err = multipartAnswers(r)
	} else {
		var raw []auditAnswerJSON
		if err = decodeJSON(r, &raw); err == nil {
			answers = make([]service.AuditAnswer, 0, len(raw))
			for _, a := range raw {
				answers = append(answers, service.AuditAnswer{
					ControlID: a.ControlID,
					Response:  a.Response,
					Remark:    a.Remark,
					FileName:  a.FileName,
				})
			}
		}
	}
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	res, err := h.svc.Vendors.SaveAuditResponses(r.Context(), SessionFrom(r.Context()), id, answers)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, saveAuditResponse{Responses: res.Responses, Warnings: res.Warnings})
}

func multipartAnswers(r *http.Request) ([]service.AuditAnswer, []io.Closer, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, nil, apperrors.Validation("invalid multipart form")
	}
	var raw []auditAnswerJSON
	if err := json.Unmarshal([]byte(r.FormValue("responses")), &raw); err != nil {
		return nil, nil, apperrors.Validation("responses must be a JSON array")
	}

	answers := make([]service.AuditAnswer, 0, len(raw))
	var closers []io.Closer
	for _, a := range raw {
		ans := service.AuditAnswer{
			ControlID: a.ControlID,
			Response:  a.Response,
			Remark:    a.Remark,
			FileName:  a.FileName,
		}
		if headers := r.MultipartForm.File["file_"+a.ControlID]; len(headers) > 0 {
			f, err := openPart(headers[0])
			if err != nil {
				for _, c := range closers {
					_ = c.Close()
				}
				return nil, nil, err
			}
			closers = append(closers, f)
			ans.File = f
			if ans.FileName == "" {
				ans.FileName = headers[0].Filename
			}
		}
		answers = append(answers, ans)
	}
	return answers, closers, nil
}

func openPart(fh *multipart.FileHeader) (multipart.File, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.Validation("unreadable file part " + fh.Filename)
	}
	return f, nil
}

func (h *HTTPHandler) DraftVendorSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	text, err := h.svc.Vendors.DraftSummary(r.Context(), SessionFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (h *HTTPHandler) ListAuditTemplates(w http.ResponseWriter, r *http.Request) {
	tpls, err := h.svc.Templates.ListTemplates(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, tpls)
}

func (h *HTTPHandler) CreateAuditTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string   `json:"name"`
		ControlIDs []string `json:"controlIds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	tpl, err := h.svc.Templates.CreateTemplate(r.Context(), SessionFrom(r.Context()), req.Name, req.ControlIDs)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}
