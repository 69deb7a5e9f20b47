package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
)

// PrivacyType tags the variant held by a privacy record.
type PrivacyType string

const (
	PrivacyROPA    PrivacyType = "ropa"
	PrivacyPII     PrivacyType = "pii"
	PrivacyDPIA    PrivacyType = "dpia"
	PrivacyConsent PrivacyType = "consent"
	PrivacyDSAR    PrivacyType = "dsar"
)

// ParsePrivacyType validates a type tag.
func ParsePrivacyType(s string) (PrivacyType, error) {
	switch t := PrivacyType(s); t {
	case PrivacyROPA, PrivacyPII, PrivacyDPIA, PrivacyConsent, PrivacyDSAR:
		return t, nil
	}
	return "", errInvalid("privacy record type", s)
}

// PrivacyData is implemented only by the five register variants below.
type PrivacyData interface {
	PrivacyType() PrivacyType
	isPrivacyData()
}

// ROPAData is a record of processing activities entry.
type ROPAData struct {
	Activity       string `json:"activity"`
	Purpose        string `json:"purpose"`
	DataCategories string `json:"dataCategories"`
	LegalBasis     string `json:"legalBasis"`
}

// PIIData is a personal data inventory entry.
type PIIData struct {
	DataElement     string `json:"dataElement"`
	Category        string `json:"category"`
	StorageLocation string `json:"storageLocation"`
	RetentionPeriod string `json:"retentionPeriod"`
}

// DPIAData is a data protection impact assessment entry.
type DPIAData struct {
	ProjectName    string `json:"projectName"`
	RiskLevel      string `json:"riskLevel"`
	Status         string `json:"status"`
	CompletionDate string `json:"completionDate"`
}

// ConsentData is a consent register entry.
type ConsentData struct {
	DataSubject  string `json:"dataSubject"`
	Purpose      string `json:"purpose"`
	ConsentGiven bool   `json:"consentGiven"`
	Date         string `json:"date"`
}

// DSARData is a data subject access request entry.
type DSARData struct {
	RequestID string `json:"requestId"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	DueDate   string `json:"dueDate"`
}

func (ROPAData) PrivacyType() PrivacyType    { return PrivacyROPA }
func (PIIData) PrivacyType() PrivacyType     { return PrivacyPII }
func (DPIAData) PrivacyType() PrivacyType    { return PrivacyDPIA }
func (ConsentData) PrivacyType() PrivacyType { return PrivacyConsent }
func (DSARData) PrivacyType() PrivacyType    { return PrivacyDSAR }

func (ROPAData) isPrivacyData()    {}
func (PIIData) isPrivacyData()     {}
func (DPIAData) isPrivacyData()    {}
func (ConsentData) isPrivacyData() {}
func (DSARData) isPrivacyData()    {}

var privacyFields = map[PrivacyType][]string{
	PrivacyROPA:    {"activity", "dataCategories", "legalBasis", "purpose"},
	PrivacyPII:     {"category", "dataElement", "retentionPeriod", "storageLocation"},
	PrivacyDPIA:    {"completionDate", "projectName", "riskLevel", "status"},
	PrivacyConsent: {"consentGiven", "dataSubject", "date", "purpose"},
	PrivacyDSAR:    {"dueDate", "requestId", "status", "type"},
}

// DecodePrivacyData parses raw JSON into the variant selected by t. The
// object must carry exactly that variant's keys.
func DecodePrivacyData(t PrivacyType, raw []byte) (PrivacyData, error) {
	want, ok := privacyFields[t]
	if !ok {
		return nil, errInvalid("privacy record type", string(t))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, apperrors.Validation(fmt.Sprintf("%s data must be a JSON object", t))
	}
	got := make([]string, 0, len(fields))
	for k := range fields {
		got = append(got, k)
	}
	sort.Strings(got)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		return nil, apperrors.Validation(fmt.Sprintf("%s data must have exactly the fields %s, got %s",
			t, strings.Join(want, ", "), strings.Join(got, ", ")))
	}

	var data PrivacyData
	var err error
	switch t {
	case PrivacyROPA:
		var d ROPAData
		err = decodeStrict(raw, &d)
		data = d
	case PrivacyPII:
		var d PIIData
		err = decodeStrict(raw, &d)
		data = d
	case PrivacyDPIA:
		var d DPIAData
		err = decodeStrict(raw, &d)
		data = d
	case PrivacyConsent:
		var d ConsentData
		err = decodeStrict(raw, &d)
		data = d
	case PrivacyDSAR:
		var d DSARData
		err = decodeStrict(raw, &d)
		data = d
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, fmt.Sprintf("invalid %s data", t))
	}
	return data, nil
}

func decodeStrict(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// PrivacyRecord is one entry of a privacy register.
type PrivacyRecord struct {
	ID        string
	Type      PrivacyType
	Data      PrivacyData
	CompanyID string
	CreatedAt time.Time
}

// NewPrivacyRecord builds a record from a variant. The type tag always comes
// from the variant itself.
func NewPrivacyRecord(id string, data PrivacyData, companyID string, now time.Time) (*PrivacyRecord, error) {
	if data == nil {
		return nil, errRequired("privacy data")
	}
	return &PrivacyRecord{
		ID:        id,
		Type:      data.PrivacyType(),
		Data:      data,
		CompanyID: companyID,
		CreatedAt: now,
	}, nil
}

type privacyRecordJSON struct {
	ID        string          `json:"id"`
	Type      PrivacyType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	CompanyID string          `json:"companyId"`
	CreatedAt time.Time       `json:"createdAt"`
}

func (r PrivacyRecord) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(r.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(privacyRecordJSON{
		ID:        r.ID,
		Type:      r.Type,
		Data:      data,
		CompanyID: r.CompanyID,
		CreatedAt: r.CreatedAt,
	})
}

func (r *PrivacyRecord) UnmarshalJSON(b []byte) error {
	var aux privacyRecordJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	t, err := ParsePrivacyType(string(aux.Type))
	if err != nil {
		return err
	}
	data, err := DecodePrivacyData(t, aux.Data)
	if err != nil {
		return err
	}
	*r = PrivacyRecord{ID: aux.ID, Type: t, Data: data, CompanyID: aux.CompanyID, CreatedAt: aux.CreatedAt}
	return nil
}
