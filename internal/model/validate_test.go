package model

import (
	"encoding/json"
	"testing"
)

// fieldErrors extracts a *ValidationError from err or fails the test.
func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	return ve.Errors
}

func TestValidateDrawing_ReportsEveryField(t *testing.T) {
	d := &Drawing{DrawingType: DrawingStroke, Color: "red", BrushSize: 3, PathData: json.RawMessage(`[]`)}
	errs := fieldErrors(t, ValidateDrawing(d, nil))
	got := map[string]bool{}
	for _, fe := range errs {
		got[fe.Field] = true
	}
	for _, f := range []string{"map_id", "color", "path_data"} {
		if !got[f] {
			t.Errorf("missing error for %s in %v", f, errs)
		}
	}
}

func TestValidationError_Error(t *testing.T) {
	ve := &ValidationError{
		Errors: []FieldError{
			{Field: "color", Message: "Invalid color format"},
			{Field: "path_data", Message: "Path data cannot be empty"},
		},
	}
	got := ve.Error()
	want := "validation failed: color: Invalid color format; path_data: Path data cannot be empty"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	ve := &ValidationError{}
	if ve.HasErrors() {
		t.Error("HasErrors() should be false for empty Errors slice")
	}
	ve.Errors = append(ve.Errors, FieldError{Field: "x", Message: "y"})
	if !ve.HasErrors() {
		t.Error("HasErrors() should be true when Errors is non-empty")
	}
}

func TestValidationError_Fields(t *testing.T) {
	ve := &ValidationError{Errors: []FieldError{
		{Field: "color", Message: "first"},
		{Field: "brush_size", Message: "too big"},
		{Field: "color", Message: "second"},
	}}
	f := ve.Fields()
	if len(f) != 2 || f["color"] != "second" || f["brush_size"] != "too big" {
		t.Errorf("Fields() = %v", f)
	}
}
