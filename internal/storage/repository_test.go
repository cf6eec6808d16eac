package storage

import (
	"context"
	"strings"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewSeededTestDB(context.Background())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestExecuteReturnsRows(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	rows, err := db.Execute(ctx, `SELECT id, nombre, grado FROM alumnos WHERE grado = 2 ORDER BY nombre`)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	if got := rows[0].String("nombre"); got != "JUAN GARCIA LOPEZ" {
		t.Errorf("first row nombre = %q", got)
	}
	if g, ok := rows[0].Int64("grado"); !ok || g != 2 {
		t.Errorf("grado = (%v, %v), want (2, true)", g, ok)
	}
	if _, ok := rows[0].ID(); !ok {
		t.Error("id column should be an integer")
	}
}

func TestExecuteRejectsWrites(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Execute(context.Background(), `DELETE FROM alumnos`)
	if err == nil {
		t.Fatal("Execute should reject non-SELECT statements")
	}

	n, _ := db.CountStudents(context.Background())
	if n != len(SampleStudents()) {
		t.Errorf("students after rejected delete = %d", n)
	}
}

func TestExecuteReportsSQLError(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Execute(context.Background(), `SELECT missing_column FROM alumnos`)
	if err == nil || !strings.Contains(err.Error(), "missing_column") {
		t.Errorf("Execute error = %v, want no such column", err)
	}
}

func TestSaveAndGetStudent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	student := &Student{
		CURP:   "pecl130101hdfrrs04",
		Nombre: "  LUIS PEREZ CRUZ ",
		Grado:  1,
		Grupo:  "c",
		Turno:  "matutino",
	}
	id, err := db.SaveStudent(ctx, student)
	if err != nil {
		t.Fatalf("SaveStudent failed: %v", err)
	}

	got, err := db.GetStudentByID(ctx, id)
	if err != nil {
		t.Fatalf("GetStudentByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected student, got nil")
	}
	if got.CURP != "PECL130101HDFRRS04" || got.Nombre != "LUIS PEREZ CRUZ" {
		t.Errorf("normalization failed: %+v", got)
	}
	if got.Grupo != "C" || got.Turno != "MATUTINO" {
		t.Errorf("grupo/turno not uppercased: %q %q", got.Grupo, got.Turno)
	}

	// Same CURP updates in place.
	student.Grado = 2
	id2, err := db.SaveStudent(ctx, student)
	if err != nil {
		t.Fatalf("SaveStudent update failed: %v", err)
	}
	if id2 != id {
		t.Errorf("upsert returned id %d, want %d", id2, id)
	}
	got, _ = db.GetStudentByID(ctx, id)
	if got.Grado != 2 {
		t.Errorf("Grado after update = %d, want 2", got.Grado)
	}
}

func TestSaveStudentValidation(t *testing.T) {
	db := setupTestDB(t)

	if _, err := db.SaveStudent(context.Background(), &Student{Nombre: "SIN CURP"}); err == nil {
		t.Error("SaveStudent without CURP should fail")
	}
	if _, err := db.SaveStudent(context.Background(), &Student{CURP: "X"}); err == nil {
		t.Error("SaveStudent without name should fail")
	}
}

func TestGetStudentNotFound(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.GetStudentByID(context.Background(), 9999)
	if err != nil {
		t.Fatalf("GetStudentByID failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing student, got %+v", got)
	}
}

func TestSaveConstancia(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	c := &Constancia{AlumnoID: 1, Tipo: "estudio", RutaArchivo: "constancias/a.pdf", FechaGeneracion: time.Unix(1700000000, 0)}
	id, err := db.SaveConstancia(ctx, c)
	if err != nil {
		t.Fatalf("SaveConstancia failed: %v", err)
	}
	if id == 0 || c.ID != id {
		t.Errorf("constancia id not set: %d", id)
	}

	list, err := db.ListConstancias(ctx, 1)
	if err != nil {
		t.Fatalf("ListConstancias failed: %v", err)
	}
	if len(list) != 1 || list[0].Tipo != "estudio" {
		t.Errorf("ListConstancias = %+v", list)
	}

	if _, err := db.SaveConstancia(ctx, &Constancia{AlumnoID: 999, Tipo: "estudio"}); err == nil {
		t.Error("foreign key should reject an unknown student")
	}
}

func TestStudentRowDecodesGrades(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	s, err := db.GetStudentByID(ctx, 1)
	if err != nil || s == nil {
		t.Fatalf("GetStudentByID(1) = %v, %v", s, err)
	}
	row := s.Row()
	if len(row.Grades()) != 2 {
		t.Errorf("Grades() = %v, want 2 entries", row.Grades())
	}

	bad, _ := db.GetStudentByID(ctx, 3)
	if g := bad.Row().Grades(); g == nil || len(g) != 0 {
		t.Errorf("malformed calificaciones should decode to empty slice, got %v", g)
	}
}

func TestDecodeGrades(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{"null", 0},
		{"{", 0},
		{`[]`, 0},
		{`[{"materia":"HISTORIA","promedio":7}]`, 1},
	}
	for _, tt := range tests {
		got := DecodeGrades(tt.raw)
		if got == nil || len(got) != tt.want {
			t.Errorf("DecodeGrades(%q) = %v, want %d entries", tt.raw, got, tt.want)
		}
	}
}

func TestRowString(t *testing.T) {
	r := Row{"a": int64(3), "b": nil, "c": 2.5, "d": "x"}
	if r.String("a") != "3" || r.String("b") != "" || r.String("c") != "2.5" || r.String("d") != "x" {
		t.Errorf("Row.String conversions wrong: %v", r)
	}
	if r.String("missing") != "" {
		t.Error("missing key should be empty")
	}
}
