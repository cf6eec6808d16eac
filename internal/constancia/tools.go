package constancia

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Converter turns an HTML document into a PDF at outPath.
type Converter interface {
	Convert(ctx context.Context, html []byte, outPath string) error
}

// Extractor returns the plain text of a PDF.
type Extractor interface {
	Extract(ctx context.Context, pdfPath string) (string, error)
}

// CommandConverter runs an HTML-to-PDF tool reading the document on stdin,
// e.g. "wkhtmltopdf --quiet - out.pdf".
type CommandConverter struct {
	Command string
	Args    []string // Extra flags placed before the input/output operands
}

// Convert implements Converter.
func (c CommandConverter) Convert(ctx context.Context, html []byte, outPath string) error {
	name := c.Command
	if name == "" {
		name = "wkhtmltopdf"
	}
	args := append([]string{"--quiet"}, c.Args...)
	args = append(args, "-", outPath)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(html)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// CommandExtractor runs a PDF-to-text tool writing to stdout,
// e.g. "pdftotext -layout in.pdf -".
type CommandExtractor struct {
	Command string
}

// Extract implements Extractor.
func (e CommandExtractor) Extract(ctx context.Context, pdfPath string) (string, error) {
	name := e.Command
	if name == "" {
		name = "pdftotext"
	}
	cmd := exec.CommandContext(ctx, name, "-layout", "-enc", "UTF-8", pdfPath, "-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
