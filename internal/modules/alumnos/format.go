package alumnos

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/garyellow/school-records-go/internal/intent"
	"github.com/garyellow/school-records-go/internal/sqltemplate"
	"github.com/garyellow/school-records-go/internal/storage"
)

// fieldLabels maps columns to the label used in replies.
var fieldLabels = map[string]string{
	"nombre":           "el nombre",
	"curp":             "la CURP",
	"matricula":        "la matrícula",
	"fecha_nacimiento": "la fecha de nacimiento",
	"grado":            "el grado",
	"grupo":            "el grupo",
	"turno":            "el turno",
	"ciclo_escolar":    "el ciclo escolar",
	"escuela":          "la escuela",
	"cct":              "la CCT",
	"calificaciones":   "las calificaciones",
}

// fieldAliases maps what users and the model call a field to its column.
var fieldAliases = map[string]string{
	"fecha":        "fecha_nacimiento",
	"nacimiento":   "fecha_nacimiento",
	"cumpleanos":   "fecha_nacimiento",
	"ciclo":        "ciclo_escolar",
	"notas":        "calificaciones",
	"promedio":     "calificaciones",
	"boleta":       "calificaciones",
	"calificacion": "calificaciones",
}

// FormatStudent renders the detail summary of one student. Columns missing
// from the row are skipped.
func FormatStudent(row storage.Row) string {
	var sb strings.Builder
	sb.WriteString("Información del alumno:\n")
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "• %s: %s\n", label, value)
		}
	}
	line("Nombre", row.String("nombre"))
	line("CURP", row.String("curp"))
	line("Matrícula", row.String("matricula"))
	line("Fecha de nacimiento", row.String("fecha_nacimiento"))
	line("Grado y grupo", gradeGroup(row))
	line("Turno", row.String("turno"))
	line("Ciclo escolar", row.String("ciclo_escolar"))
	if grades, ok := row["calificaciones"].([]storage.Grade); ok {
		if len(grades) == 0 {
			line("Calificaciones", "sin registrar")
		} else {
			line("Calificaciones", formatGrades(grades))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatField answers a question about one column of one student.
func FormatField(row storage.Row, field string) string {
	column := normalizeField(field)
	name := row.String("nombre")
	label, known := fieldLabels[column]
	if !known {
		return FormatStudent(row)
	}

	var value string
	switch column {
	case "calificaciones":
		grades := row.Grades()
		if len(grades) == 0 {
			return fmt.Sprintf("%s no tiene calificaciones registradas.", name)
		}
		value = formatGrades(grades)
	case "grado":
		value = row.String("grado") + "°"
	default:
		value = row.String(column)
	}
	if value == "" {
		return fmt.Sprintf("No tengo registrado ese dato de %s.", name)
	}
	return fmt.Sprintf("%s de %s: %s", capitalize(label), name, value)
}

func normalizeField(field string) string {
	f := strings.ToLower(strings.TrimSpace(field))
	f = strings.ReplaceAll(f, " ", "_")
	f = strings.NewReplacer("í", "i", "á", "a", "ñ", "n").Replace(f)
	if alias, ok := fieldAliases[f]; ok {
		return alias
	}
	return f
}

// FormatList renders up to pageSize rows and a hint when more remain.
func FormatList(rows []storage.Row, pageSize int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Encontré %d alumnos:\n", len(rows))
	writeRows(&sb, rows, pageSize)
	if len(rows) > pageSize {
		fmt.Fprintf(&sb, "\n… y %d más. Agrega un grado, grupo o turno para acotar la búsqueda.", len(rows)-pageSize)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatSelection asks the user to pick one of several matches.
func FormatSelection(rows []storage.Row, pageSize int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Encontré %d alumnos que coinciden. ¿Cuál de ellos?\n", len(rows))
	writeRows(&sb, rows, pageSize)
	if len(rows) > pageSize {
		fmt.Fprintf(&sb, "\nSolo puedes elegir entre los %d mostrados; %d más quedaron fuera. Si no está en la lista, escribe \"cancelar\" y agrega un grado o grupo.", pageSize, len(rows)-pageSize)
	}
	sb.WriteString("\nResponde con el número o el nombre completo, o escribe \"cancelar\".")
	return sb.String()
}

func writeRows(sb *strings.Builder, rows []storage.Row, limit int) {
	for i, row := range rows {
		if i >= limit {
			break
		}
		fmt.Fprintf(sb, "%d. %s", i+1, row.String("nombre"))
		details := make([]string, 0, 2)
		if gg := gradeGroup(row); gg != "" {
			details = append(details, gg)
		}
		if t := row.String("turno"); t != "" {
			details = append(details, t)
		}
		if len(details) > 0 {
			fmt.Fprintf(sb, " (%s)", strings.Join(details, ", "))
		}
		sb.WriteByte('\n')
	}
}

// FormatTotal renders the total student count.
func FormatTotal(total int) string {
	switch total {
	case 0:
		return "No hay alumnos registrados."
	case 1:
		return "Hay 1 alumno registrado."
	default:
		return fmt.Sprintf("Hay %d alumnos registrados.", total)
	}
}

// FormatGradeStats renders estadisticas_por_grado rows.
func FormatGradeStats(rows []storage.Row) string {
	if len(rows) == 0 {
		return "No hay alumnos registrados."
	}
	var sb strings.Builder
	sb.WriteString("Alumnos por grado:\n")
	total := int64(0)
	for _, row := range rows {
		n, _ := row.Int64("total")
		total += n
		fmt.Fprintf(&sb, "• %s°: %d\n", row.String("grado"), n)
	}
	fmt.Fprintf(&sb, "Total: %d", total)
	return sb.String()
}

// FormatFilteredCount renders the count for the grade, group, shift or
// grades filters in e.
func FormatFilteredCount(n int, e intent.Entities) string {
	var parts []string
	if g, ok := gradeFilter(e); ok {
		parts = append(parts, g+"° grado")
	}
	if g, ok := e.Filter("grupo"); ok {
		parts = append(parts, "grupo "+strings.ToUpper(g))
	}
	if t, ok := shiftFilter(e); ok {
		parts = append(parts, "turno "+strings.ToLower(t))
	}
	if name, _, ok := templateFromEntities(e); ok {
		switch name {
		case sqltemplate.AlumnosConCalificaciones:
			parts = append(parts, "con calificaciones registradas")
		case sqltemplate.AlumnosSinCalificaciones:
			parts = append(parts, "sin calificaciones registradas")
		}
	}

	noun := "alumnos"
	if n == 1 {
		noun = "alumno"
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Hay %d %s que coinciden con la búsqueda.", n, noun)
	}
	scope := strings.Join(parts, " ")
	if strings.HasPrefix(scope, "con ") || strings.HasPrefix(scope, "sin ") {
		return fmt.Sprintf("Hay %d %s %s.", n, noun, scope)
	}
	return fmt.Sprintf("Hay %d %s en %s.", n, noun, scope)
}

func gradeGroup(row storage.Row) string {
	grade, group := row.String("grado"), row.String("grupo")
	switch {
	case grade != "" && group != "":
		return grade + "° " + group
	case grade != "":
		return grade + "°"
	default:
		return group
	}
}

// formatGrades renders "MATERIA promedio" pairs; entries without those keys
// fall back to their sorted key=value pairs.
func formatGrades(grades []storage.Grade) string {
	parts := make([]string, 0, len(grades))
	for _, g := range grades {
		row := storage.Row(g)
		subject, score := row.String("materia"), row.String("promedio")
		if subject != "" && score != "" {
			parts = append(parts, subject+" "+score)
			continue
		}
		keys := make([]string, 0, len(g))
		for k := range g {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		kv := make([]string, 0, len(keys))
		for _, k := range keys {
			kv = append(kv, k+"="+row.String(k))
		}
		parts = append(parts, strings.Join(kv, " "))
	}
	return strings.Join(parts, ", ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
