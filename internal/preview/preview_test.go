package preview

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/school-records-go/internal/constancia"
	domerrors "github.com/garyellow/school-records-go/internal/errors"
	"github.com/garyellow/school-records-go/internal/storage"
)

type fakeService struct {
	fromStudent []int64
	fromPDF     []string
	persisted   []bool
	err         error
}

func (f *fakeService) GenerateFromStudent(_ context.Context, id int64, typ constancia.Type, _, preview bool) (constancia.Result, error) {
	f.fromStudent = append(f.fromStudent, id)
	if f.err != nil {
		return constancia.Result{}, f.err
	}
	return constancia.Result{OK: true, Path: "/final/" + string(typ) + ".pdf", Data: storage.Row{"id": id}, Message: "Constancia generada."}, nil
}

func (f *fakeService) GenerateFromPDF(_ context.Context, path string, _ constancia.Type, _, persist, _ bool) (constancia.Result, error) {
	f.fromPDF = append(f.fromPDF, path)
	f.persisted = append(f.persisted, persist)
	if f.err != nil {
		return constancia.Result{}, f.err
	}
	return constancia.Result{OK: true, Path: "/final/pdf.pdf", Data: storage.Row{"id": int64(9)}, Message: "Constancia generada."}, nil
}

type fakeOpener struct {
	opened []string
	err    error
}

func (f *fakeOpener) Open(_ context.Context, path string) error {
	f.opened = append(f.opened, path)
	return f.err
}

type fakeArchiver struct {
	saved []string
	err   error
}

func (f *fakeArchiver) Archive(_ context.Context, path string, _ Pending) error {
	f.saved = append(f.saved, path)
	return f.err
}

func tempPDF(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "constancia_estudio_X_20240101_120000_abcd1234.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))
	return path
}

func fixedNow() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }

func newMachine(t *testing.T, svc constancia.Service, opener FileOpener, archiver Archiver) (*Machine, string) {
	t.Helper()
	saveDir := filepath.Join(t.TempDir(), "constancias")
	return NewMachine(svc, Options{SaveDir: saveDir, Opener: opener, Archiver: archiver, Now: fixedNow}), saveDir
}

func TestParseOption(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want Option
		ok   bool
	}{
		{"1", OptionSave, true},
		{"opción 2", OptionOpen, true},
		{"3.", OptionPersist, true},
		{"cuatro", OptionDiscard, true},
		{"guárdala", OptionSave, true},
		{"abrir", OptionOpen, true},
		{"imprímela", OptionOpen, true},
		{"guardar en la base de datos", OptionPersist, true},
		{"nada", OptionDiscard, true},
		{"cancelar", OptionDiscard, true},
		{"la opción 2 por favor", OptionOpen, true},
		{"guardar 2 copias", OptionSave, true},
		{"abrir la 1", OptionOpen, true},
		{"2 de 4", 0, false},
		{"¿quién es el primero?", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseOption(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseConfirmation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		yes, ok bool
	}{
		{"sí", true, true},
		{"Sí, ábrela", true, true},
		{"no, gracias", false, true},
		{"luego", false, true},
		{"tal vez", false, false},
	}
	for _, tt := range tests {
		yes, ok := ParseConfirmation(tt.in)
		if yes != tt.yes || ok != tt.ok {
			t.Errorf("ParseConfirmation(%q) = (%v, %v), want (%v, %v)", tt.in, yes, ok, tt.yes, tt.ok)
		}
	}
}

func TestBeginRejectsSecondPreview(t *testing.T) {
	t.Parallel()
	m, _ := newMachine(t, &fakeService{}, &fakeOpener{}, nil)

	require.NoError(t, m.Begin(Pending{TempPDFPath: "/tmp/a.pdf"}))
	err := m.Begin(Pending{TempPDFPath: "/tmp/b.pdf"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domerrors.ErrPreviewOutstanding)

	p, ok := m.Pending()
	require.True(t, ok)
	assert.Equal(t, "/tmp/a.pdf", p.TempPDFPath)
	assert.Equal(t, fixedNow(), p.CreatedAt)
}

func TestDecideSave(t *testing.T) {
	t.Parallel()
	archiver := &fakeArchiver{}
	m, saveDir := newMachine(t, &fakeService{}, &fakeOpener{}, archiver)
	temp := tempPDF(t, t.TempDir())
	require.NoError(t, m.Begin(Pending{TempPDFPath: temp, Type: constancia.TypeEstudio}))

	out, err := m.Decide(context.Background(), OptionSave)
	require.NoError(t, err)

	assert.True(t, out.AskOpen)
	assert.Equal(t, saveDir, filepath.Dir(out.FilePath))
	assert.True(t, strings.HasSuffix(out.FilePath, "_guardada_20240301_093000.pdf"), out.FilePath)
	data, err := os.ReadFile(out.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
	assert.FileExists(t, temp)
	assert.Equal(t, []string{out.FilePath}, archiver.saved)

	_, pending := m.Pending()
	assert.False(t, pending)
}

func TestDecideSaveIgnoresArchiveFailure(t *testing.T) {
	t.Parallel()
	m, _ := newMachine(t, &fakeService{}, &fakeOpener{}, &fakeArchiver{err: errors.New("bucket down")})
	require.NoError(t, m.Begin(Pending{TempPDFPath: tempPDF(t, t.TempDir())}))

	out, err := m.Decide(context.Background(), OptionSave)
	require.NoError(t, err)
	assert.FileExists(t, out.FilePath)
}

func TestDecideOpen(t *testing.T) {
	t.Parallel()
	opener := &fakeOpener{}
	m, saveDir := newMachine(t, &fakeService{}, opener, nil)
	require.NoError(t, m.Begin(Pending{TempPDFPath: "/tmp/preview.pdf"}))

	out, err := m.Decide(context.Background(), OptionOpen)
	require.NoError(t, err)
	assert.Equal(t, []string{"/tmp/preview.pdf"}, opener.opened)
	assert.Contains(t, out.Text, "temporal")
	assert.NoDirExists(t, saveDir)
}

func TestDecideOpenFailureStillClears(t *testing.T) {
	t.Parallel()
	m, _ := newMachine(t, &fakeService{}, &fakeOpener{err: errors.New("no viewer")}, nil)
	require.NoError(t, m.Begin(Pending{TempPDFPath: "/tmp/preview.pdf"}))

	_, err := m.Decide(context.Background(), OptionOpen)
	require.Error(t, err)
	_, pending := m.Pending()
	assert.False(t, pending)
}

func TestDecidePersist(t *testing.T) {
	t.Parallel()

	t.Run("from pdf", func(t *testing.T) {
		t.Parallel()
		svc := &fakeService{}
		m, _ := newMachine(t, svc, &fakeOpener{}, nil)
		require.NoError(t, m.Begin(Pending{TempPDFPath: "/tmp/p.pdf", Original: OriginalContext{SourcePDF: "/in/source.pdf"}}))

		out, err := m.Decide(context.Background(), OptionPersist)
		require.NoError(t, err)
		assert.Equal(t, []string{"/in/source.pdf"}, svc.fromPDF)
		assert.Equal(t, []bool{true}, svc.persisted)
		assert.Contains(t, out.Text, "datos del alumno")
	})

	t.Run("from student", func(t *testing.T) {
		t.Parallel()
		svc := &fakeService{}
		m, _ := newMachine(t, svc, &fakeOpener{}, nil)
		require.NoError(t, m.Begin(Pending{TempPDFPath: "/tmp/p.pdf", Original: OriginalContext{StudentID: 3}}))

		out, err := m.Decide(context.Background(), OptionPersist)
		require.NoError(t, err)
		assert.Equal(t, []int64{3}, svc.fromStudent)
		assert.Equal(t, "/final/estudio.pdf", out.FilePath)
	})

	t.Run("failure surfaces message", func(t *testing.T) {
		t.Parallel()
		svc := &fakeService{err: domerrors.New(domerrors.KindInvalidInput, "op", "El PDF no tiene CURP.")}
		m, _ := newMachine(t, svc, &fakeOpener{}, nil)
		require.NoError(t, m.Begin(Pending{TempPDFPath: "/tmp/p.pdf", Original: OriginalContext{SourcePDF: "/in/x.pdf"}}))

		out, err := m.Decide(context.Background(), OptionPersist)
		require.Error(t, err)
		assert.Equal(t, "El PDF no tiene CURP.", out.Text)
		_, pending := m.Pending()
		assert.False(t, pending)
	})
}

func TestDecideDiscardAndIdle(t *testing.T) {
	t.Parallel()
	m, _ := newMachine(t, &fakeService{}, &fakeOpener{}, nil)

	_, err := m.Decide(context.Background(), OptionDiscard)
	assert.Equal(t, domerrors.KindInvalidInput, domerrors.KindOf(err))

	require.NoError(t, m.Begin(Pending{TempPDFPath: "/tmp/p.pdf"}))
	out, err := m.Decide(context.Background(), OptionDiscard)
	require.NoError(t, err)
	assert.Equal(t, OptionDiscard, out.Option)
	assert.NoError(t, m.Begin(Pending{TempPDFPath: "/tmp/q.pdf"}))
}

func TestCloseDeletesTempFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	first := tempPDF(t, dir)
	second := filepath.Join(dir, "second.pdf")
	require.NoError(t, os.WriteFile(second, []byte("x"), 0o600))

	m, _ := newMachine(t, &fakeService{}, &fakeOpener{}, nil)
	require.NoError(t, m.Begin(Pending{TempPDFPath: first}))
	_, err := m.Decide(context.Background(), OptionDiscard)
	require.NoError(t, err)
	require.NoError(t, m.Begin(Pending{TempPDFPath: second}))

	m.Close()
	assert.NoFileExists(t, first)
	assert.NoFileExists(t, second)
	_, pending := m.Pending()
	assert.False(t, pending)
}

func TestCleanerDefersBusyFiles(t *testing.T) {
	t.Parallel()
	busy := true
	c := NewCleaner(nil)
	var removed []string
	c.remove = func(path string) error {
		if busy {
			return errors.New("file in use")
		}
		removed = append(removed, path)
		return nil
	}

	c.Remove("/tmp/locked.pdf")
	assert.Equal(t, 1, c.Pending())

	busy = false
	require.NoError(t, c.Flush())
	assert.Equal(t, 0, c.Pending())
	assert.Equal(t, []string{"/tmp/locked.pdf"}, removed)
}

func TestCleanerIgnoresMissingFiles(t *testing.T) {
	t.Parallel()
	c := NewCleaner(nil)
	c.Remove(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Equal(t, 0, c.Pending())
}

func TestSystemOpenerCommand(t *testing.T) {
	t.Parallel()
	name, args := SystemOpener{Command: "evince --fullscreen"}.command("/tmp/a.pdf")
	assert.Equal(t, "evince", name)
	assert.Equal(t, []string{"--fullscreen", "/tmp/a.pdf"}, args)
}

func TestSystemOpenerOutlivesTurnContext(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script viewer")
	}
	dir := t.TempDir()
	viewer := filepath.Join(dir, "viewer.sh")
	require.NoError(t, os.WriteFile(viewer, []byte("#!/bin/sh\nsleep 0.3\ntouch \"$1\"\n"), 0o755))
	marker := filepath.Join(dir, "viewer_alive")

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, SystemOpener{Command: viewer}.Open(ctx, marker))
	cancel()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 5*time.Second, 50*time.Millisecond, "viewer stopped when the turn context ended")
}
