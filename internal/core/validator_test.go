package core

import (
	"errors"
	"testing"

	"agendly/internal/types"
)

type validatedDTO struct {
	Name  string `validate:"required"`
	Email string `validate:"required,email"`
	Size  string `validate:"omitempty,oneof=small large"`
}

func TestValidateStruct_Valid(t *testing.T) {
	v := NewValidator()
	err := v.ValidateStruct(validatedDTO{Name: "x", Email: "x@example.com"})
	if err != nil {
		t.Fatalf("ValidateStruct error: %v", err)
	}
}

func TestValidateStruct_CollectsFieldFailures(t *testing.T) {
	v := NewValidator()
	err := v.ValidateStruct(validatedDTO{Email: "not-an-email", Size: "medium"})

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error = %v, want AppError", err)
	}
	if appErr.Code != types.ErrCodeValidationMissingField {
		t.Errorf("code = %s", appErr.Code)
	}

	for _, field := range []string{"name", "email", "size"} {
		if _, ok := appErr.Details[field]; !ok {
			t.Errorf("details missing field %q: %+v", field, appErr.Details)
		}
	}
}
