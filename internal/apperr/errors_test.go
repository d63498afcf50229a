package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationErrorMatching(t *testing.T) {
	err := Invalid("name cannot be empty")
	if !errors.Is(err, ErrValidation) {
		t.Error("Invalid should match ErrValidation")
	}
	if errors.Is(err, ErrAlreadyExists) {
		t.Error("Invalid should not match ErrAlreadyExists")
	}
	if err.Error() != "name cannot be empty" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestDuplicateMatchesBoth(t *testing.T) {
	err := fmt.Errorf("create: %w", Duplicate("GROUP with same name already exists!"))
	if !errors.Is(err, ErrValidation) {
		t.Error("Duplicate should match ErrValidation")
	}
	if !errors.Is(err, ErrAlreadyExists) {
		t.Error("Duplicate should match ErrAlreadyExists")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("errors.As should find ValidationError")
	}
}
