package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Table names referenced by the SQL template catalogue.
const (
	TableStudents    = "alumnos"
	TableConstancias = "constancias"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS alumnos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		curp TEXT NOT NULL UNIQUE,
		nombre TEXT NOT NULL,
		matricula TEXT,
		fecha_nacimiento TEXT,
		grado INTEGER,
		grupo TEXT,
		turno TEXT,
		ciclo_escolar TEXT,
		escuela TEXT,
		cct TEXT,
		calificaciones TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alumnos_nombre ON alumnos(nombre)`,
	`CREATE INDEX IF NOT EXISTS idx_alumnos_grado_grupo ON alumnos(grado, grupo)`,
	`CREATE INDEX IF NOT EXISTS idx_alumnos_matricula ON alumnos(matricula)`,
	`CREATE TABLE IF NOT EXISTS constancias (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		alumno_id INTEGER NOT NULL REFERENCES alumnos(id) ON DELETE CASCADE,
		tipo TEXT NOT NULL,
		ruta_archivo TEXT,
		incluye_foto INTEGER NOT NULL DEFAULT 0,
		fecha_generacion INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_constancias_alumno ON constancias(alumno_id)`,
}

// InitSchema creates all tables and indexes if they do not exist.
func InitSchema(ctx context.Context, conn *sql.DB) error {
	for _, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}
