package storage

import (
	"encoding/json"
	"time"
)

// Student is one row of the alumnos table.
type Student struct {
	ID              int64
	CURP            string
	Nombre          string
	Matricula       string
	FechaNacimiento string
	Grado           int
	Grupo           string
	Turno           string // MATUTINO or VESPERTINO
	CicloEscolar    string
	Escuela         string
	CCT             string
	// Calificaciones is the raw JSON array of subject grades as stored.
	Calificaciones string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Row converts the student into the generic row shape SQL templates return,
// with calificaciones decoded.
func (s *Student) Row() Row {
	return Row{
		"id":               s.ID,
		"curp":             s.CURP,
		"nombre":           s.Nombre,
		"matricula":        s.Matricula,
		"fecha_nacimiento": s.FechaNacimiento,
		"grado":            int64(s.Grado),
		"grupo":            s.Grupo,
		"turno":            s.Turno,
		"ciclo_escolar":    s.CicloEscolar,
		"escuela":          s.Escuela,
		"cct":              s.CCT,
		"calificaciones":   DecodeGrades(s.Calificaciones),
	}
}

// Constancia records a generated certificate.
type Constancia struct {
	ID              int64
	AlumnoID        int64
	Tipo            string
	RutaArchivo     string
	IncluyeFoto     bool
	FechaGeneracion time.Time
}

// Grade is one subject entry of calificaciones; its keys are opaque.
type Grade = map[string]any

// DecodeGrades parses a calificaciones JSON string. Empty or malformed input
// yields an empty, non-nil slice so callers never see raw JSON.
func DecodeGrades(raw string) []Grade {
	if raw == "" {
		return []Grade{}
	}
	var grades []Grade
	if err := json.Unmarshal([]byte(raw), &grades); err != nil || grades == nil {
		return []Grade{}
	}
	return grades
}
