// Package domain holds the GRC record types and the pure rules that govern
// them: permission lookup, vendor risk scoring and record lifecycle defaults.
package domain

import (
	"fmt"
	"strings"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
)

func errRequired(field string) error {
	return apperrors.Validation(fmt.Sprintf("%s is required", field))
}

func errInvalid(field, value string) error {
	return apperrors.Validation(fmt.Sprintf("invalid %s %q", field, value))
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return errRequired(field)
	}
	return nil
}
