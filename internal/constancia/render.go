package constancia

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/garyellow/school-records-go/internal/storage"
)

// SchoolInfo is printed on every certificate.
type SchoolInfo struct {
	Name string
	CCT  string
}

type documentData struct {
	Title        string
	Type         Type
	School       SchoolInfo
	Student      *storage.Student
	Grades       []storage.Grade
	IncludePhoto bool
	Date         string
}

var documentTemplate = template.Must(template.New("constancia").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: serif; margin: 2cm; }
h1 { text-align: center; font-size: 18pt; }
.foto { float: right; width: 3cm; height: 4cm; border: 1px solid #000; }
table { border-collapse: collapse; width: 100%; }
td, th { border: 1px solid #000; padding: 4px; }
</style>
</head>
<body>
{{if .IncludePhoto}}<div class="foto">FOTO</div>{{end}}
<h1>{{.Title}}</h1>
<p>La Dirección de la escuela {{.School.Name}} con CCT {{.School.CCT}} hace constar que:</p>
<p>
Nombre: {{.Student.Nombre}}<br>
CURP: {{.Student.CURP}}<br>
Matrícula: {{.Student.Matricula}}<br>
Fecha de nacimiento: {{.Student.FechaNacimiento}}<br>
Grado: {{.Student.Grado}}<br>
Grupo: {{.Student.Grupo}}<br>
Turno: {{.Student.Turno}}<br>
Ciclo escolar: {{.Student.CicloEscolar}}
</p>
{{- if eq .Type "calificaciones"}}
<table>
<tr><th>Materia</th><th>Promedio</th></tr>
{{range .Grades}}<tr><td>{{index . "materia"}}</td><td>{{index . "promedio"}}</td></tr>
{{end}}</table>
{{- else if eq .Type "traslado"}}
<p>Se extiende la presente para los trámites de traslado a otra institución educativa.</p>
{{- else}}
<p>Se encuentra inscrito(a) y cursando sus estudios en este plantel.</p>
{{- end}}
<p>Se expide la presente a {{.Date}}.</p>
</body>
</html>
`))

// renderHTML returns the certificate document for s.
func renderHTML(typ Type, school SchoolInfo, s *storage.Student, includePhoto bool, now time.Time) ([]byte, error) {
	data := documentData{
		Title:        typ.Title(),
		Type:         typ,
		School:       school,
		Student:      s,
		Grades:       storage.DecodeGrades(s.Calificaciones),
		IncludePhoto: includePhoto,
		Date:         now.Format("02/01/2006"),
	}
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render constancia: %w", err)
	}
	return buf.Bytes(), nil
}
