package domain

import (
	"regexp"
	"strings"
	"time"
)

const (
	// SettingsID identifies the deployment-wide settings record.
	SettingsID = "app-settings"
	// DefaultCompanyID identifies the company created at first init.
	DefaultCompanyID = "company-default"
)

// AIProvider selects the text-generation backend.
type AIProvider string

const (
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
	AIProviderLocal     AIProvider = "local"
)

// ParseAIProvider validates a provider name. Empty means none configured.
func ParseAIProvider(s string) (AIProvider, error) {
	switch p := AIProvider(s); p {
	case "", AIProviderOpenAI, AIProviderAnthropic, AIProviderLocal:
		return p, nil
	}
	return "", errInvalid("ai provider", s)
}

// Settings is the single deployment-wide configuration record. The AI API key
// lives in the secret store; AIKeyConfigured only reports its presence.
type Settings struct {
	ID              string     `json:"id"`
	ClientLogo      string     `json:"clientLogo,omitempty"`
	AuditorLogo     string     `json:"auditorLogo,omitempty"`
	PrimaryColor    string     `json:"primaryColor,omitempty"`
	SecondaryColor  string     `json:"secondaryColor,omitempty"`
	CompanyName     string     `json:"companyName,omitempty"`
	AIProvider      AIProvider `json:"aiProvider,omitempty"`
	AIKeyConfigured bool       `json:"aiKeyConfigured"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// DefaultSettings is the record written at first init.
func DefaultSettings(now time.Time) *Settings {
	return &Settings{
		ID:             SettingsID,
		PrimaryColor:   "#1e40af",
		SecondaryColor: "#64748b",
		CompanyName:    "GRC Platform",
		UpdatedAt:      now,
	}
}

// SettingsUpdate is a partial update; nil fields are left unchanged.
type SettingsUpdate struct {
	ClientLogo     *string
	AuditorLogo    *string
	PrimaryColor   *string
	SecondaryColor *string
	CompanyName    *string
	AIProvider     *string
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ApplySettingsUpdate returns the updated copy of s.
func ApplySettingsUpdate(s *Settings, u SettingsUpdate, now time.Time) (*Settings, error) {
	next := *s
	if u.ClientLogo != nil {
		next.ClientLogo = *u.ClientLogo
	}
	if u.AuditorLogo != nil {
		next.AuditorLogo = *u.AuditorLogo
	}
	for _, c := range []struct {
		name string
		in   *string
		out  *string
	}{
		{"primary color", u.PrimaryColor, &next.PrimaryColor},
		{"secondary color", u.SecondaryColor, &next.SecondaryColor},
	} {
		if c.in == nil {
			continue
		}
		if *c.in != "" && !hexColor.MatchString(*c.in) {
			return nil, errInvalid(c.name, *c.in)
		}
		*c.out = *c.in
	}
	if u.CompanyName != nil {
		next.CompanyName = strings.TrimSpace(*u.CompanyName)
	}
	if u.AIProvider != nil {
		p, err := ParseAIProvider(*u.AIProvider)
		if err != nil {
			return nil, err
		}
		next.AIProvider = p
	}
	next.UpdatedAt = now
	return &next, nil
}

// Company is a tenancy tag carried by every business record.
type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewCompany validates a company name.
func NewCompany(id, name string, now time.Time) (*Company, error) {
	if err := required("company name", name); err != nil {
		return nil, err
	}
	return &Company{ID: id, Name: strings.TrimSpace(name), CreatedAt: now}, nil
}

// DefaultCompany is the company created at first init.
func DefaultCompany(now time.Time) *Company {
	return &Company{ID: DefaultCompanyID, Name: "Default Company", CreatedAt: now}
}

// EvidenceFile describes an uploaded evidence blob.
type EvidenceFile struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	EntityID    string    `json:"entityId,omitempty"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	StoragePath string    `json:"storagePath"`
	UploadedAt  time.Time `json:"uploadedAt"`
}
