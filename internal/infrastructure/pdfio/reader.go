// Package pdfio reads page text out of PDF files.  It is the only package
// that touches the PDF parser; everything downstream works on plain strings.
package pdfio

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dslipak/pdf"

	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemRoute-Intelligence/pkg/errors"
	"github.com/turtacn/ChemRoute-Intelligence/pkg/types/route"
)

// pageTimeout bounds text extraction for a single page.  Malformed content
// streams can make the parser spin; a stuck page is skipped, not fatal.
const pageTimeout = 10 * time.Second

// Reader extracts per-page text from PDF files up to a configured page budget.
type Reader struct {
	maxPages int
	logger   logging.Logger
}

// NewReader returns a Reader that stops after maxPages pages of each file.
func NewReader(maxPages int, logger logging.Logger) *Reader {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Reader{maxPages: maxPages, logger: logger.Named("pdfio")}
}

// ReadPages opens the PDF at path and extracts text from up to the page
// budget.  Pages whose extraction fails or times out are recorded as empty
// strings so page indexes stay aligned with the document.
func (r *Reader) ReadPages(path string) (*route.PageCorpus, error) {
	doc, err := pdf.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodePDFOpenFailed,
			fmt.Sprintf("failed to open %s", filepath.Base(path)))
	}

	total := doc.NumPage()
	if total == 0 {
		return nil, apperrors.New(apperrors.ErrCodePDFExtractFailed,
			fmt.Sprintf("%s contains no pages", filepath.Base(path)))
	}

	budget := total
	if r.maxPages > 0 && r.maxPages < budget {
		budget = r.maxPages
	}

	corpus := &route.PageCorpus{
		SourcePDF:  path,
		Pages:      make([]string, 0, budget),
		TotalPages: total,
	}

	for i := 1; i <= budget; i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			r.logger.Warn("skipping null page", logging.String("file", filepath.Base(path)), logging.Int("page", i))
			corpus.Pages = append(corpus.Pages, "")
			continue
		}

		content, err := extractPageText(page)
		if err != nil {
			r.logger.Warn("page extraction failed",
				logging.String("file", filepath.Base(path)),
				logging.Int("page", i),
				logging.Err(err))
			content = ""
		}
		corpus.Pages = append(corpus.Pages, content)
	}

	corpus.PagesProcessed = len(corpus.Pages)
	r.logger.Debug("extracted pages",
		logging.String("file", filepath.Base(path)),
		logging.Int("total_pages", total),
		logging.Int("pages_processed", corpus.PagesProcessed))
	return corpus, nil
}

// extractPageText runs GetPlainText in a goroutine so a page that hangs or
// panics inside the parser cannot take the whole run down with it.
func extractPageText(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				resChan <- result{err: fmt.Errorf("panic during page extraction: %v", rec)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content: content, err: err}
	}()

	select {
	case res := <-resChan:
		if res.err != nil {
			return "", apperrors.Wrap(res.err, apperrors.ErrCodePDFExtractFailed, "page text extraction failed")
		}
		return res.content, nil
	case <-time.After(pageTimeout):
		return "", apperrors.New(apperrors.ErrCodePDFExtractFailed, "page text extraction timed out")
	}
}
