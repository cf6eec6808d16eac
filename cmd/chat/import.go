package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garyellow/school-records-go/internal/logger"
	"github.com/garyellow/school-records-go/internal/storage"
)

// studentRecord is the import file shape. calificaciones may be an array
// or a JSON-encoded string.
type studentRecord struct {
	CURP            string          `json:"curp"`
	Nombre          string          `json:"nombre"`
	Matricula       string          `json:"matricula"`
	FechaNacimiento string          `json:"fecha_nacimiento"`
	Grado           int             `json:"grado"`
	Grupo           string          `json:"grupo"`
	Turno           string          `json:"turno"`
	CicloEscolar    string          `json:"ciclo_escolar"`
	Escuela         string          `json:"escuela"`
	CCT             string          `json:"cct"`
	Calificaciones  json.RawMessage `json:"calificaciones"`
}

func newImportCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <students.json>",
		Short: "Importa alumnos desde un archivo JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			students, err := decodeStudents(f)
			if err != nil {
				return err
			}

			db, err := storage.New(cmd.Context(), cfg.DatabasePath, logger.NewWithWriter(cfg.LogLevel, os.Stderr))
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			defer func() { _ = db.Close() }()

			n, err := db.SaveStudents(cmd.Context(), students)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d alumnos importados en %s\n", n, cfg.DatabasePath)
			return nil
		},
	}
}

func decodeStudents(r io.Reader) ([]*storage.Student, error) {
	var records []studentRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode students: %w", err)
	}

	out := make([]*storage.Student, 0, len(records))
	for i, rec := range records {
		grades, err := gradesJSON(rec.Calificaciones)
		if err != nil {
			return nil, fmt.Errorf("student %d: %w", i+1, err)
		}
		out = append(out, &storage.Student{
			CURP:            strings.TrimSpace(rec.CURP),
			Nombre:          strings.ToUpper(strings.TrimSpace(rec.Nombre)),
			Matricula:       rec.Matricula,
			FechaNacimiento: rec.FechaNacimiento,
			Grado:           rec.Grado,
			Grupo:           rec.Grupo,
			Turno:           rec.Turno,
			CicloEscolar:    rec.CicloEscolar,
			Escuela:         rec.Escuela,
			CCT:             rec.CCT,
			Calificaciones:  grades,
		})
	}
	return out, nil
}

// gradesJSON normalizes calificaciones to the stored JSON text.
func gradesJSON(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	switch {
	case trimmed == "" || trimmed == "null":
		return "", nil
	case strings.HasPrefix(trimmed, `"`):
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("calificaciones: %w", err)
		}
		return s, nil
	case strings.HasPrefix(trimmed, "["):
		return trimmed, nil
	}
	return "", fmt.Errorf("calificaciones must be an array or a string")
}
