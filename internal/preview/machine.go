package preview

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/garyellow/school-records-go/internal/constancia"
	domerrors "github.com/garyellow/school-records-go/internal/errors"
	"github.com/garyellow/school-records-go/internal/logger"
	"github.com/garyellow/school-records-go/internal/metrics"
	"github.com/garyellow/school-records-go/internal/storage"
)

// Archiver receives a constancia after it was saved permanently.
type Archiver interface {
	Archive(ctx context.Context, savedPath string, p Pending) error
}

// Outcome is the result of a decision.
type Outcome struct {
	Option   Option
	Text     string
	FilePath string      // Saved, opened or generated file
	Data     storage.Row // Student data when the persist branch ran
	AskOpen  bool        // The save branch asks whether to open the saved copy
}

// Options configures a Machine.
type Options struct {
	SaveDir  string // Permanent constancias directory
	Opener   FileOpener
	Archiver Archiver // Optional
	Cleaner  *Cleaner // Shared per process
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

// Machine is the per-session preview state: idle or one pending preview.
// It is not safe for concurrent use; the owning session serializes turns.
type Machine struct {
	service  constancia.Service
	saveDir  string
	opener   FileOpener
	archiver Archiver
	cleaner  *Cleaner
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	pending *Pending
	temp    []string // Every preview file this session produced
}

// NewMachine creates an idle Machine.
func NewMachine(service constancia.Service, opts Options) *Machine {
	if opts.Opener == nil {
		opts.Opener = SystemOpener{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.Cleaner == nil {
		opts.Cleaner = NewCleaner(opts.Logger)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Machine{
		service:  service,
		saveDir:  opts.SaveDir,
		opener:   opts.Opener,
		archiver: opts.Archiver,
		cleaner:  opts.Cleaner,
		logger:   opts.Logger.WithModule("preview"),
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
}

// Pending returns the outstanding preview, if any.
func (m *Machine) Pending() (Pending, bool) {
	if m.pending == nil {
		return Pending{}, false
	}
	return *m.pending, true
}

// Begin moves to the pending state. It fails with ErrPreviewOutstanding
// while another preview awaits a decision.
func (m *Machine) Begin(p Pending) error {
	if m.pending != nil {
		return domerrors.Wrap(domerrors.ErrPreviewOutstanding, domerrors.KindInvalidInput, "begin_preview",
			"Primero decide qué hacer con la constancia anterior (1-4).")
	}
	if p.TempPDFPath == "" {
		return domerrors.New(domerrors.KindInternal, "begin_preview", "")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.now()
	}
	m.pending = &p
	m.temp = append(m.temp, p.TempPDFPath)
	return nil
}

// Decide resolves the pending preview. The pending state is cleared before
// Decide returns, whichever branch ran and whether or not it failed.
func (m *Machine) Decide(ctx context.Context, opt Option) (Outcome, error) {
	if m.pending == nil {
		return Outcome{}, domerrors.New(domerrors.KindInvalidInput, "decide_preview",
			"No hay ninguna constancia pendiente.")
	}
	p := *m.pending
	m.pending = nil
	m.metrics.RecordConstanciaDecision(opt.String())

	switch opt {
	case OptionSave:
		return m.save(ctx, p)
	case OptionOpen:
		return m.open(ctx, p)
	case OptionPersist:
		return m.persist(ctx, p)
	case OptionDiscard:
		return Outcome{
			Option: OptionDiscard,
			Text:   "De acuerdo, no haré nada con la constancia. El archivo temporal se borrará al cerrar la sesión.",
		}, nil
	default:
		return Outcome{}, domerrors.New(domerrors.KindInvalidInput, "decide_preview",
			fmt.Sprintf("Opción no válida: %d.", opt))
	}
}

func (m *Machine) save(ctx context.Context, p Pending) (Outcome, error) {
	const op = "save_preview"

	dest := filepath.Join(m.saveDir, savedName(p.TempPDFPath, m.now()))
	if err := copyFile(p.TempPDFPath, dest); err != nil {
		return Outcome{Option: OptionSave}, domerrors.Wrap(err, domerrors.KindInternal, op,
			"No pude guardar la constancia.")
	}
	m.logger.InfoContext(ctx, "constancia saved", slog.String("path", dest))

	if m.archiver != nil {
		if err := m.archiver.Archive(ctx, dest, p); err != nil {
			m.logger.WithError(err).WarnContext(ctx, "constancia archive failed", slog.String("path", dest))
		}
	}

	return Outcome{
		Option:   OptionSave,
		Text:     fmt.Sprintf("Constancia guardada en %s. ¿Deseas abrirla? (sí/no)", dest),
		FilePath: dest,
		AskOpen:  true,
	}, nil
}

func (m *Machine) open(ctx context.Context, p Pending) (Outcome, error) {
	if err := m.opener.Open(ctx, p.TempPDFPath); err != nil {
		return Outcome{Option: OptionOpen}, domerrors.Wrap(err, domerrors.KindInternal, "open_preview",
			"No pude abrir la constancia. El archivo sigue en "+p.TempPDFPath+".")
	}
	return Outcome{
		Option:   OptionOpen,
		Text:     "Abrí la constancia. Ten en cuenta que es un archivo temporal y se borrará al cerrar la sesión.",
		FilePath: p.TempPDFPath,
	}, nil
}

// persist regenerates the constancia as a final document. A PDF origin also
// stores the extracted student.
func (m *Machine) persist(ctx context.Context, p Pending) (Outcome, error) {
	var (
		res constancia.Result
		err error
	)
	if p.Original.SourcePDF != "" {
		res, err = m.service.GenerateFromPDF(ctx, p.Original.SourcePDF, p.Type, p.IncludePhoto, true, false)
	} else {
		res, err = m.service.GenerateFromStudent(ctx, p.Original.StudentID, p.Type, p.IncludePhoto, false)
	}
	if err != nil {
		return Outcome{Option: OptionPersist, Text: domerrors.UserMessage(err)}, err
	}

	text := res.Message + " La constancia quedó registrada en la base de datos."
	if p.Original.SourcePDF != "" {
		text = res.Message + " Los datos del alumno quedaron guardados en la base de datos."
	}
	return Outcome{
		Option:   OptionPersist,
		Text:     text,
		FilePath: res.Path,
		Data:     res.Data,
	}, nil
}

// OpenFile opens a saved constancia after the user accepted the follow-up.
func (m *Machine) OpenFile(ctx context.Context, path string) error {
	if err := m.opener.Open(ctx, path); err != nil {
		return domerrors.Wrap(err, domerrors.KindInternal, "open_saved", "No pude abrir el archivo "+path+".")
	}
	return nil
}

// Close drops the pending preview and deletes every temporary file the
// session produced.
func (m *Machine) Close() {
	m.pending = nil
	for _, path := range m.temp {
		m.cleaner.Remove(path)
	}
	m.temp = nil
}

func savedName(tempPath string, now time.Time) string {
	base := filepath.Base(tempPath)
	ext := filepath.Ext(base)
	return fmt.Sprintf("%s_guardada_%s%s", base[:len(base)-len(ext)], now.Format("20060102_150405"), ext)
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy: %w", err)
	}
	return out.Close()
}
