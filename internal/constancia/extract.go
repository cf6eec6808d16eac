package constancia

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/garyellow/school-records-go/internal/storage"
)

var (
	curpPattern = regexp.MustCompile(`\b[A-Z]{4}\d{6}[HM][A-Z]{5}[A-Z0-9]\d\b`)

	// Labels as printed by renderHTML and by the school's older certificates.
	fieldPatterns = map[string]*regexp.Regexp{
		"nombre":           regexp.MustCompile(`(?im)^\s*(?:nombre(?: del alumno)?|alumno\(a\))\s*:\s*(.+?)\s*$`),
		"matricula":        regexp.MustCompile(`(?im)^\s*matr[ií]cula\s*:\s*(\S+)`),
		"fecha_nacimiento": regexp.MustCompile(`(?im)^\s*fecha de nacimiento\s*:\s*(\S+)`),
		"grado":            regexp.MustCompile(`(?im)^\s*grado\s*:\s*(\d)`),
		"grupo":            regexp.MustCompile(`(?im)^\s*grupo\s*:\s*([A-F])\b`),
		"turno":            regexp.MustCompile(`(?im)^\s*turno\s*:\s*(matutino|vespertino)`),
		"ciclo_escolar":    regexp.MustCompile(`(?im)^\s*ciclo escolar\s*:\s*(\d{4}\s*-\s*\d{4})`),
		"cct":              regexp.MustCompile(`(?i)\bCCT\s*:?\s*([0-9]{2}[A-Z]{3}[0-9]{4}[A-Z])\b`),
	}

	gradeRow = regexp.MustCompile(`(?m)^[ \t]*([A-ZÁÉÍÓÚÑ][A-ZÁÉÍÓÚÑ .]+?)[ \t]{2,}(\d{1,2}(?:\.\d+)?)[ \t]*$`)
)

// ParseText extracts the student described by a constancia's plain text.
// It reports false when neither a name nor a CURP can be found.
func ParseText(text string) (*storage.Student, bool) {
	s := &storage.Student{}

	if m := curpPattern.FindString(strings.ToUpper(text)); m != "" {
		s.CURP = m
	}
	field := func(key string) string {
		if m := fieldPatterns[key].FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
		return ""
	}

	s.Nombre = strings.ToUpper(field("nombre"))
	s.Matricula = strings.ToUpper(field("matricula"))
	s.FechaNacimiento = field("fecha_nacimiento")
	if g, err := strconv.Atoi(field("grado")); err == nil {
		s.Grado = g
	}
	s.Grupo = strings.ToUpper(field("grupo"))
	s.Turno = strings.ToUpper(field("turno"))
	s.CicloEscolar = strings.ReplaceAll(field("ciclo_escolar"), " ", "")
	s.CCT = strings.ToUpper(field("cct"))
	s.Calificaciones = parseGrades(text)

	return s, s.Nombre != "" || s.CURP != ""
}

// parseGrades reads "MATERIA   9.5" rows into the calificaciones JSON shape.
func parseGrades(text string) string {
	var grades []storage.Grade
	for _, m := range gradeRow.FindAllStringSubmatch(text, -1) {
		avg, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		grades = append(grades, storage.Grade{"materia": strings.TrimSpace(m[1]), "promedio": avg})
	}
	if len(grades) == 0 {
		return ""
	}
	raw, err := json.Marshal(grades)
	if err != nil {
		return ""
	}
	return string(raw)
}
