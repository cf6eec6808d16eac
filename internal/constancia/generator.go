package constancia

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	domerrors "github.com/garyellow/school-records-go/internal/errors"
	"github.com/garyellow/school-records-go/internal/logger"
	"github.com/garyellow/school-records-go/internal/storage"
)

// Options configures a Generator.
type Options struct {
	School    SchoolInfo
	OutputDir string // Permanent constancias directory
	TempDir   string // Preview directory, never the same as OutputDir
	Converter Converter
	Extractor Extractor
	Logger    *logger.Logger
	Now       func() time.Time
}

// Generator implements Service with an HTML template, an external converter
// and the student repository.
type Generator struct {
	store     storage.StudentRepository
	school    SchoolInfo
	outputDir string
	tempDir   string
	converter Converter
	extractor Extractor
	logger    *logger.Logger
	now       func() time.Time
}

var _ Service = (*Generator)(nil)

// NewGenerator creates a Generator. Missing converter/extractor default to
// wkhtmltopdf and pdftotext.
func NewGenerator(store storage.StudentRepository, opts Options) *Generator {
	if opts.Converter == nil {
		opts.Converter = CommandConverter{}
	}
	if opts.Extractor == nil {
		opts.Extractor = CommandExtractor{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Generator{
		store:     store,
		school:    opts.School,
		outputDir: opts.OutputDir,
		tempDir:   opts.TempDir,
		converter: opts.Converter,
		extractor: opts.Extractor,
		logger:    opts.Logger.WithModule("constancia"),
		now:       opts.Now,
	}
}

// GenerateFromStudent implements Service.
func (g *Generator) GenerateFromStudent(ctx context.Context, id int64, typ Type, includePhoto, preview bool) (Result, error) {
	const op = "generate_from_student"
	typ = normalizeType(typ)

	student, err := g.store.GetStudentByID(ctx, id)
	if err != nil {
		return Result{}, domerrors.Wrap(err, domerrors.KindStoreError, op, "")
	}
	if student == nil {
		return Result{}, domerrors.Wrap(domerrors.ErrNotFound, domerrors.KindNoMatch, op,
			fmt.Sprintf("No encontré al alumno con id %d.", id))
	}

	path, err := g.render(ctx, typ, student, includePhoto, preview)
	if err != nil {
		return Result{}, err
	}
	if !preview {
		if err := g.record(ctx, student.ID, typ, path, includePhoto); err != nil {
			return Result{}, err
		}
	}

	return Result{
		OK:      true,
		Path:    path,
		Data:    student.Row(),
		Message: fmt.Sprintf("%s generada para %s.", titleCase(typ.Title()), student.Nombre),
	}, nil
}

// GenerateFromPDF implements Service.
func (g *Generator) GenerateFromPDF(ctx context.Context, pdfPath string, typ Type, includePhoto, persistStudent, preview bool) (Result, error) {
	const op = "generate_from_pdf"
	typ = normalizeType(typ)

	if pdfPath == "" {
		return Result{}, domerrors.Wrap(domerrors.ErrMissingParameter, domerrors.KindMissingParameter, op,
			"Primero carga un PDF de constancia.")
	}
	text, err := g.extractor.Extract(ctx, pdfPath)
	if err != nil {
		return Result{}, domerrors.Wrap(err, domerrors.KindInternal, op, "No pude leer el PDF cargado.")
	}
	student, ok := ParseText(text)
	if !ok {
		return Result{}, domerrors.New(domerrors.KindParseFailure, op,
			"No encontré datos de alumno en el PDF. ¿Es una constancia escolar?")
	}
	if student.Escuela == "" {
		student.Escuela = g.school.Name
	}
	if student.CCT == "" {
		student.CCT = g.school.CCT
	}

	if persistStudent {
		if student.CURP == "" {
			return Result{}, domerrors.New(domerrors.KindInvalidInput, op,
				"El PDF no trae una CURP válida; no puedo guardarlo en la base de datos.")
		}
		id, err := g.store.SaveStudent(ctx, student)
		if err != nil {
			return Result{}, domerrors.Wrap(err, domerrors.KindStoreError, op, "")
		}
		student.ID = id
		g.logger.WithField("alumno_id", id).Info("student persisted from pdf")
	}

	path, err := g.render(ctx, typ, student, includePhoto, preview)
	if err != nil {
		return Result{}, err
	}
	if !preview && student.ID > 0 {
		if err := g.record(ctx, student.ID, typ, path, includePhoto); err != nil {
			return Result{}, err
		}
	}

	msg := fmt.Sprintf("%s generada a partir del PDF para %s.", titleCase(typ.Title()), student.Nombre)
	if persistStudent {
		msg = fmt.Sprintf("Datos de %s guardados en la base de datos (id %d).", student.Nombre, student.ID)
	}
	return Result{OK: true, Path: path, Data: student.Row(), Message: msg}, nil
}

// render writes the PDF to the temp dir (preview) or the output dir.
func (g *Generator) render(ctx context.Context, typ Type, s *storage.Student, includePhoto, preview bool) (string, error) {
	const op = "render_constancia"

	dir := g.outputDir
	if preview {
		dir = g.tempDir
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", domerrors.Wrap(err, domerrors.KindInternal, op, "")
	}

	now := g.now()
	html, err := renderHTML(typ, g.school, s, includePhoto, now)
	if err != nil {
		return "", domerrors.Wrap(err, domerrors.KindInternal, op, "")
	}

	path := filepath.Join(dir, FileName(typ, s, now))
	start := time.Now()
	if err := g.converter.Convert(ctx, html, path); err != nil {
		g.logger.WithError(err).Error("pdf conversion failed")
		return "", domerrors.Wrap(err, domerrors.KindInternal, op, "No pude generar el PDF de la constancia.")
	}
	g.logger.DebugContext(ctx, "constancia rendered",
		slog.String("path", path),
		slog.Bool("preview", preview),
		slog.Duration("duration", time.Since(start)))
	return path, nil
}

func (g *Generator) record(ctx context.Context, alumnoID int64, typ Type, path string, includePhoto bool) error {
	_, err := g.store.SaveConstancia(ctx, &storage.Constancia{
		AlumnoID:        alumnoID,
		Tipo:            string(typ),
		RutaArchivo:     path,
		IncluyeFoto:     includePhoto,
		FechaGeneracion: g.now(),
	})
	return domerrors.Wrap(err, domerrors.KindStoreError, "record_constancia", "")
}

// FileName builds "constancia_<tipo>_<curp|nombre>_<timestamp>_<rand>.pdf".
// The random suffix keeps concurrent previews from colliding.
func FileName(typ Type, s *storage.Student, now time.Time) string {
	who := s.CURP
	if who == "" {
		who = strings.ReplaceAll(strings.ToLower(s.Nombre), " ", "_")
	}
	if who == "" {
		who = "alumno"
	}
	return fmt.Sprintf("constancia_%s_%s_%s_%s.pdf", typ, who, now.Format("20060102_150405"), uuid.NewString()[:8])
}

func normalizeType(t Type) Type {
	if t.Valid() {
		return t
	}
	return DefaultType
}

// titleCase turns "CONSTANCIA DE ESTUDIOS" into "Constancia de estudios".
func titleCase(s string) string {
	lower := strings.ToLower(s)
	if lower == "" {
		return lower
	}
	return strings.ToUpper(lower[:1]) + lower[1:]
}
