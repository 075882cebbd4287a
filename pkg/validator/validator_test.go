package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type joinRequest struct {
	RoomID   string `json:"roomId" validate:"required"`
	Username string `json:"username" validate:"required,min=2"`
}

func TestValidateStructSuccess(t *testing.T) {
	req := joinRequest{
		RoomID:   "room-42",
		Username: "alice",
	}

	if err := ValidateStruct(req); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	req := joinRequest{
		RoomID:   "",
		Username: "a",
	}

	err := ValidateStruct(req)
	if err == nil {
		t.Fatal("expected validation error")
	}

	vErrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	if len(vErrs) != 2 {
		t.Fatalf("expected 2 validation errors, got %d", len(vErrs))
	}

	foundRoom := false
	for _, v := range vErrs {
		if v.Field == "roomId" {
			foundRoom = true
		}
	}

	if !foundRoom {
		t.Fatal("expected roomId field to be present in validation errors")
	}
}

func TestRegisterValidation(t *testing.T) {
	err := RegisterValidation("runtime", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "python", "node", "c", "cpp", "java":
			return true
		}
		return false
	})
	if err != nil {
		t.Fatalf("register validation: %v", err)
	}

	type runRequest struct {
		Runtime string `validate:"runtime"`
	}

	if err := ValidateStruct(runRequest{Runtime: "python"}); err != nil {
		t.Fatalf("expected validation to pass, got %v", err)
	}
	if err := ValidateStruct(runRequest{Runtime: "fortran"}); err == nil {
		t.Fatal("expected validation to fail for unsupported runtime")
	}
}
