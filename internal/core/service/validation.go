package service

import (
	"fmt"
	"strings"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/pkg/validation"
)

// maxCredentialBytes is the bcrypt input limit.
const maxCredentialBytes = 72

var validate = validation.New()

// validateInput runs struct tag validation and converts failures into a
// domain.ValidationError naming each offending field.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	if msgs, ok := validation.Messages(err); ok {
		return domain.NewValidationError(msgs...)
	}
	return domain.NewValidationError(err.Error())
}

func validatePlaintext(plaintext string) error {
	if strings.TrimSpace(plaintext) == "" {
		return domain.NewValidationError("password is required")
	}
	if len(plaintext) > maxCredentialBytes {
		return domain.NewValidationError(fmt.Sprintf("password must be at most %d bytes", maxCredentialBytes))
	}
	return nil
}
