package pathstore

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/studyvault/internal/apperr"
	"github.com/starford/studyvault/internal/models"
)

// ValidateName trims name and checks it can be used for an item of kind.
// Errors are *apperr.ValidationError with a user-facing message.
func ValidateName(name string, kind models.Kind) (string, error) {
	trimmed := strings.TrimSpace(name)
	err := validation.Validate(trimmed,
		validation.Required.Error(fmt.Sprintf("%s name cannot be empty", kind)),
		validation.NotIn(NotebookSuffix).Error(fmt.Sprintf("%s name cannot be %s", kind, NotebookSuffix)),
		validation.NewStringRule(noSep, fmt.Sprintf("%s name cannot contain %q", kind, Sep)),
	)
	if err != nil {
		return "", apperr.Invalid(err.Error())
	}
	return trimmed, nil
}

func noSep(s string) bool { return !strings.Contains(s, Sep) }

// validateField checks an artifact field name.
func validateField(field string) error {
	if field == "" || strings.Contains(field, Sep) {
		return apperr.Invalid(fmt.Sprintf("invalid artifact field %q", field))
	}
	return nil
}
