// Package extractor reads source PDFs into plain-text documents.
//
// Text extraction uses ledongthuc/pdf (pure Go). Extracted text is
// normalized to NFC so decomposed Turkish letters compare equal to typed
// queries.
package extractor

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"vergirag/internal/domain"
)

var _ domain.Extractor = (*PDFExtractor)(nil)

// Option configures a PDFExtractor.
type Option func(*PDFExtractor)

// WithTextCache writes every extracted text to dir/<base>.txt.
func WithTextCache(dir string) Option {
	return func(e *PDFExtractor) { e.cacheDir = dir }
}

// WithLogger sets the logger used for cache write failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *PDFExtractor) { e.logger = l }
}

// PDFExtractor implements domain.Extractor for PDF files.
type PDFExtractor struct {
	cacheDir string
	logger   *slog.Logger
}

func NewPDFExtractor(opts ...Option) *PDFExtractor {
	e := &PDFExtractor{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract returns the concatenated text of every page in page order.
// Any failure is reported as *domain.ExtractionError.
func (e *PDFExtractor) Extract(path string) (doc domain.Document, err error) {
	defer func() {
		// ledongthuc/pdf panics on some malformed object streams.
		if r := recover(); r != nil {
			doc = domain.Document{}
			err = &domain.ExtractionError{Path: path, Err: fmt.Errorf("pdf parser panic: %v", r)}
		}
	}()

	text, err := readPDF(path)
	if err != nil {
		return domain.Document{}, &domain.ExtractionError{Path: path, Err: err}
	}
	text = norm.NFC.String(text)
	e.writeCache(path, text)
	return domain.Document{ID: hashPath(path), Path: path, Content: text}, nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var text strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		text.WriteString(pageText)
	}
	return text.String(), nil
}

// CachePath returns the text artifact path for a source file.
func CachePath(cacheDir, sourcePath string) string {
	base := strings.TrimSuffix(filepath.Base(sourcePath), ".pdf")
	return filepath.Join(cacheDir, base+".txt")
}

func (e *PDFExtractor) writeCache(sourcePath, text string) {
	if e.cacheDir == "" {
		return
	}
	if err := os.MkdirAll(e.cacheDir, 0o755); err != nil {
		e.logger.Warn("text cache unavailable", "dir", e.cacheDir, "error", err)
		return
	}
	out := CachePath(e.cacheDir, sourcePath)
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		e.logger.Warn("text cache write failed", "path", out, "error", err)
		return
	}
	e.logger.Debug("pdf converted to text", "source", sourcePath, "cache", out)
}

// ListPDFs returns the sorted paths of *.pdf files directly inside dir.
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pdf") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func hashPath(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
