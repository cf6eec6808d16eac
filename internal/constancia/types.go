// Package constancia generates school certificates (constancias) as PDFs,
// either from a stored student or from the text of an existing constancia PDF.
package constancia

import (
	"context"

	"github.com/garyellow/school-records-go/internal/stringutil"
	"github.com/garyellow/school-records-go/internal/storage"
)

// Type is the kind of certificate.
type Type string

const (
	TypeEstudio        Type = "estudio"
	TypeCalificaciones Type = "calificaciones"
	TypeTraslado       Type = "traslado"
)

// DefaultType is used when the request names no type.
const DefaultType = TypeEstudio

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	switch t {
	case TypeEstudio, TypeCalificaciones, TypeTraslado:
		return true
	}
	return false
}

// Title returns the heading printed on the certificate.
func (t Type) Title() string {
	switch t {
	case TypeCalificaciones:
		return "CONSTANCIA DE CALIFICACIONES"
	case TypeTraslado:
		return "CONSTANCIA DE TRASLADO"
	default:
		return "CONSTANCIA DE ESTUDIOS"
	}
}

// ParseType maps free text ("estudios", "de calificaciones", "traslado") to a Type.
func ParseType(s string) (Type, bool) {
	switch f := stringutil.Fold(s); {
	case f == "":
		return "", false
	case containsWord(f, "calificaciones", "calificacion", "boleta", "notas"):
		return TypeCalificaciones, true
	case containsWord(f, "traslado", "cambio", "transferencia"):
		return TypeTraslado, true
	case containsWord(f, "estudio", "estudios", "inscripcion"):
		return TypeEstudio, true
	}
	return "", false
}

func containsWord(folded string, words ...string) bool {
	for _, w := range stringutil.Words(folded) {
		for _, want := range words {
			if w == want {
				return true
			}
		}
	}
	return false
}

// Result describes a generated certificate. Data holds the student row the
// certificate was built from.
type Result struct {
	OK      bool
	Path    string
	Data    storage.Row
	Message string
}

// Service is the constancia generator the chat layer consumes.
type Service interface {
	// GenerateFromStudent renders a certificate for a stored student.
	// With preview set the PDF goes to the temp dir and nothing is recorded.
	GenerateFromStudent(ctx context.Context, id int64, typ Type, includePhoto, preview bool) (Result, error)
	// GenerateFromPDF extracts student data from an existing constancia and
	// renders a new one of typ. persistStudent upserts the extracted student.
	GenerateFromPDF(ctx context.Context, pdfPath string, typ Type, includePhoto, persistStudent, preview bool) (Result, error)
}
