package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/garyellow/school-records-go/internal/logger"
	"github.com/garyellow/school-records-go/internal/preview"
)

// DefaultPrefix is the key prefix of archived constancias.
const DefaultPrefix = "constancias/"

// Manifest is stored next to each archived PDF as zstd-compressed JSON.
type Manifest struct {
	File    string          `json:"file"`
	SavedAt time.Time       `json:"saved_at"`
	Preview preview.Pending `json:"preview"`
}

// Archiver implements preview.Archiver on an ObjectStore.
type Archiver struct {
	store  ObjectStore
	prefix string
	logger *logger.Logger
	now    func() time.Time
}

var _ preview.Archiver = (*Archiver)(nil)

// NewArchiver creates an Archiver. An empty prefix selects DefaultPrefix.
func NewArchiver(store ObjectStore, prefix string, log *logger.Logger) *Archiver {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Archiver{store: store, prefix: prefix, logger: log.WithModule("archive"), now: time.Now}
}

// Keys returns the object keys used for a saved file.
func (a *Archiver) Keys(savedPath string) (pdfKey, manifestKey string) {
	base := filepath.Base(savedPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return path.Join(a.prefix, base), path.Join(a.prefix, stem+".json.zst")
}

// Archive uploads the saved PDF and its manifest. Existing objects are left
// untouched.
func (a *Archiver) Archive(ctx context.Context, savedPath string, p preview.Pending) error {
	pdfKey, manifestKey := a.Keys(savedPath)

	f, err := os.Open(savedPath)
	if err != nil {
		return fmt.Errorf("archive: open %s: %w", savedPath, err)
	}
	defer f.Close()

	created, err := a.store.PutIfAbsent(ctx, pdfKey, f, "application/pdf")
	if err != nil {
		return err
	}
	if !created {
		a.logger.InfoContext(ctx, "constancia already archived", slog.String("key", pdfKey))
		return nil
	}

	data, err := EncodeManifest(Manifest{File: pdfKey, SavedAt: a.now(), Preview: p})
	if err != nil {
		return err
	}
	if _, err := a.store.PutIfAbsent(ctx, manifestKey, bytes.NewReader(data), "application/zstd"); err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "constancia archived",
		slog.String("key", pdfKey),
		slog.Int("manifest_bytes", len(data)))
	return nil
}

// EncodeManifest serializes m as zstd-compressed JSON.
func EncodeManifest(m Manifest) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("archive: marshal manifest: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("archive: create encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

// DecodeManifest reverses EncodeManifest.
func DecodeManifest(data []byte) (Manifest, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return Manifest{}, fmt.Errorf("archive: create decoder: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return Manifest{}, fmt.Errorf("archive: decompress manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("archive: unmarshal manifest: %w", err)
	}
	return m, nil
}
