package pdftext

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"go.uber.org/zap"
)

// ExtractionError reports a failure to extract text from a PDF file, carrying
// the underlying cause.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting text from %q: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extractor pulls plain text out of PDF files. It is read-only: the caller
// decides where extracted text is persisted.
type Extractor struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract reads the PDF at path and returns its text, page by page. It fails
// with an *ExtractionError when the file is missing, unreadable, or yields no
// text on any page. There are no retries.
func (e *Extractor) Extract(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	defer file.Close()

	reader, err := model.NewPdfReader(file)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: fmt.Errorf("read pdf: %w", err)}
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", &ExtractionError{Path: path, Err: fmt.Errorf("get page count: %w", err)}
	}
	if numPages == 0 {
		return "", &ExtractionError{Path: path, Err: errors.New("pdf has no pages")}
	}

	var builder strings.Builder
	extracted := false

	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			e.logger.Debug("skipping unreadable page", zap.String("path", path), zap.Int("page", i), zap.Error(err))
			continue
		}

		ex, err := extractor.New(page)
		if err != nil {
			e.logger.Debug("skipping page without extractor", zap.String("path", path), zap.Int("page", i), zap.Error(err))
			continue
		}

		pageText, err := ex.ExtractText()
		if err != nil {
			e.logger.Debug("skipping page with extraction error", zap.String("path", path), zap.Int("page", i), zap.Error(err))
			continue
		}

		if pageText == "" {
			continue
		}

		extracted = true
		builder.WriteString(pageText)
		builder.WriteString("\n\n")
	}

	if !extracted {
		return "", &ExtractionError{Path: path, Err: errors.New("no text could be extracted from any page")}
	}

	return strings.TrimSpace(builder.String()), nil
}
