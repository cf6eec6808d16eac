package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Execute runs a read-only statement and returns every row as a Row.
// Only SELECT and WITH statements are accepted.
func (db *DB) Execute(ctx context.Context, query string) ([]Row, error) {
	head := strings.ToUpper(strings.TrimSpace(query))
	if !strings.HasPrefix(head, "SELECT") && !strings.HasPrefix(head, "WITH") {
		return nil, errors.New("only read-only statements can be executed")
	}

	start := time.Now()
	defer db.observe(ctx, "execute", start)

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

const studentColumns = `id, curp, nombre, matricula, fecha_nacimiento, grado, grupo, turno,
	ciclo_escolar, escuela, cct, calificaciones, created_at, updated_at`

// GetStudentByID returns the student or (nil, nil) when it does not exist.
func (db *DB) GetStudentByID(ctx context.Context, id int64) (*Student, error) {
	start := time.Now()
	defer db.observe(ctx, "get_student", start)

	row := db.conn.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM alumnos WHERE id = ?`, id)

	var (
		s                                     Student
		matricula, fecha, grupo, turno, ciclo sql.NullString
		escuela, cct, calificaciones          sql.NullString
		grado                                 sql.NullInt64
		createdAt, updatedAt                  int64
	)
	err := row.Scan(&s.ID, &s.CURP, &s.Nombre, &matricula, &fecha, &grado, &grupo, &turno,
		&ciclo, &escuela, &cct, &calificaciones, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student %d: %w", id, err)
	}

	s.Matricula = matricula.String
	s.FechaNacimiento = fecha.String
	s.Grado = int(grado.Int64)
	s.Grupo = grupo.String
	s.Turno = turno.String
	s.CicloEscolar = ciclo.String
	s.Escuela = escuela.String
	s.CCT = cct.String
	s.Calificaciones = calificaciones.String
	s.CreatedAt = time.Unix(createdAt, 0)
	s.UpdatedAt = time.Unix(updatedAt, 0)
	return &s, nil
}

// SaveStudent inserts the student or updates the row with the same CURP.
// Returns the row ID.
func (db *DB) SaveStudent(ctx context.Context, s *Student) (int64, error) {
	if strings.TrimSpace(s.CURP) == "" {
		return 0, errors.New("student CURP is required")
	}
	if strings.TrimSpace(s.Nombre) == "" {
		return 0, errors.New("student name is required")
	}

	start := time.Now()
	defer db.observe(ctx, "save_student", start)

	now := time.Now().Unix()
	query := `
		INSERT INTO alumnos (curp, nombre, matricula, fecha_nacimiento, grado, grupo, turno,
			ciclo_escolar, escuela, cct, calificaciones, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(curp) DO UPDATE SET
			nombre = excluded.nombre,
			matricula = excluded.matricula,
			fecha_nacimiento = excluded.fecha_nacimiento,
			grado = excluded.grado,
			grupo = excluded.grupo,
			turno = excluded.turno,
			ciclo_escolar = excluded.ciclo_escolar,
			escuela = excluded.escuela,
			cct = excluded.cct,
			calificaciones = COALESCE(excluded.calificaciones, alumnos.calificaciones),
			updated_at = excluded.updated_at
		RETURNING id`

	var id int64
	err := db.conn.QueryRowContext(ctx, query,
		strings.ToUpper(strings.TrimSpace(s.CURP)),
		strings.TrimSpace(s.Nombre),
		nullString(s.Matricula),
		nullString(s.FechaNacimiento),
		nullInt(s.Grado),
		nullString(strings.ToUpper(s.Grupo)),
		nullString(strings.ToUpper(s.Turno)),
		nullString(s.CicloEscolar),
		nullString(s.Escuela),
		nullString(s.CCT),
		nullString(s.Calificaciones),
		now, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save student: %w", err)
	}
	s.ID = id
	return id, nil
}

// SaveStudents imports a batch in one transaction.
func (db *DB) SaveStudents(ctx context.Context, students []*Student) (int, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().Unix()
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO alumnos (curp, nombre, matricula, fecha_nacimiento, grado, grupo, turno,
			ciclo_escolar, escuela, cct, calificaciones, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(curp) DO UPDATE SET
			nombre = excluded.nombre,
			grado = excluded.grado,
			grupo = excluded.grupo,
			turno = excluded.turno,
			calificaciones = COALESCE(excluded.calificaciones, alumnos.calificaciones),
			updated_at = excluded.updated_at`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare import: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, s := range students {
		if s.CURP == "" || s.Nombre == "" {
			return 0, fmt.Errorf("student %d: CURP and name are required", i+1)
		}
		if _, err := stmt.ExecContext(ctx,
			strings.ToUpper(s.CURP), s.Nombre, nullString(s.Matricula), nullString(s.FechaNacimiento),
			nullInt(s.Grado), nullString(strings.ToUpper(s.Grupo)), nullString(strings.ToUpper(s.Turno)),
			nullString(s.CicloEscolar), nullString(s.Escuela), nullString(s.CCT),
			nullString(s.Calificaciones), now, now,
		); err != nil {
			return 0, fmt.Errorf("student %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return len(students), nil
}

// SaveConstancia records a generated constancia and returns its ID.
func (db *DB) SaveConstancia(ctx context.Context, c *Constancia) (int64, error) {
	start := time.Now()
	defer db.observe(ctx, "save_constancia", start)

	generated := c.FechaGeneracion
	if generated.IsZero() {
		generated = time.Now()
	}
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO constancias (alumno_id, tipo, ruta_archivo, incluye_foto, fecha_generacion)
		 VALUES (?, ?, ?, ?, ?)`,
		c.AlumnoID, c.Tipo, nullString(c.RutaArchivo), c.IncluyeFoto, generated.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to save constancia: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read constancia id: %w", err)
	}
	c.ID = id
	return id, nil
}

// ListConstancias returns the constancias of a student, newest first.
func (db *DB) ListConstancias(ctx context.Context, alumnoID int64) ([]Constancia, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, alumno_id, tipo, COALESCE(ruta_archivo, ''), incluye_foto, fecha_generacion
		 FROM constancias WHERE alumno_id = ? ORDER BY fecha_generacion DESC, id DESC`, alumnoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list constancias: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Constancia
	for rows.Next() {
		var (
			c       Constancia
			created int64
		)
		if err := rows.Scan(&c.ID, &c.AlumnoID, &c.Tipo, &c.RutaArchivo, &c.IncluyeFoto, &created); err != nil {
			return nil, fmt.Errorf("failed to scan constancia: %w", err)
		}
		c.FechaGeneracion = time.Unix(created, 0)
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountStudents returns the number of stored students.
func (db *DB) CountStudents(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM alumnos`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}
