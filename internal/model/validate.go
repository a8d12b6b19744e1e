package model

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// MaxPathDataBytes bounds the encoded size of a drawing path.
const MaxPathDataBytes = 65535

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Fields returns the errors keyed by field name. Later messages for the same
// field win.
func (e *ValidationError) Fields() map[string]string {
	m := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		m[fe.Field] = fe.Message
	}
	return m
}

// NormalizeDrawing fills defaults on d and clamps the brush size. The path
// is left untouched.
func NormalizeDrawing(d *Drawing) {
	if d.DrawingType != DrawingErase {
		d.DrawingType = DrawingStroke
	}
	d.Color = strings.TrimSpace(d.Color)
	if d.Color == "" {
		d.Color = "#000000"
	}
	switch {
	case d.BrushSize == 0:
		d.BrushSize = 3
	case d.BrushSize < 1:
		d.BrushSize = 1
	case d.BrushSize > 50:
		d.BrushSize = 50
	}
}

// ValidateDrawing checks a normalized drawing and its path.
// It returns a *ValidationError if any rules fail, or nil if the drawing is valid.
// Decoded JSON never holds NaN or infinities, but paths built in code can.
func ValidateDrawing(d *Drawing, path []Point) error {
	var ve ValidationError

	if d.MapID <= 0 {
		ve.Errors = append(ve.Errors, FieldError{Field: "map_id", Message: "Map ID is required"})
	}
	if !hexColor.MatchString(d.Color) {
		ve.Errors = append(ve.Errors, FieldError{Field: "color", Message: "Invalid color format"})
	}

	if len(path) == 0 {
		ve.Errors = append(ve.Errors, FieldError{Field: "path_data", Message: "Path data cannot be empty"})
	}
	for i, p := range path {
		if math.IsNaN(p.X) || math.IsInf(p.X, 0) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   "path_data",
				Message: fmt.Sprintf("Point at index %d coordinates must be finite numbers", i),
			})
			break
		}
	}
	if len(d.PathData) > MaxPathDataBytes {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "path_data",
			Message: fmt.Sprintf("Path data is too large (maximum %d bytes)", MaxPathDataBytes),
		})
	} else if len(d.PathData) > 0 && !json.Valid(d.PathData) {
		ve.Errors = append(ve.Errors, FieldError{Field: "path_data", Message: "contains invalid JSON"})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
