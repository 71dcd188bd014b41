package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/turtacn/ChemRoute-Intelligence/pkg/errors"
	"github.com/turtacn/ChemRoute-Intelligence/pkg/types/route"
)

// FileProcessor is the per-file orchestration interface the batch runs.
type FileProcessor interface {
	Process(ctx context.Context, pdfPath string) *route.ProcessResult
}

// Batch enumerates input files, processes them sequentially, and writes the
// batch report.  One file's total failure never stops the batch.
type Batch struct {
	processor FileProcessor
	metrics   *prometheus.Metrics
	args      route.RunArgs
	siMarker  string
	logger    logging.Logger
}

// NewBatch returns a Batch.  metrics may be nil.
func NewBatch(processor FileProcessor, metrics *prometheus.Metrics, args route.RunArgs, siMarker string, logger logging.Logger) *Batch {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Batch{
		processor: processor,
		metrics:   metrics,
		args:      args,
		siMarker:  siMarker,
		logger:    logger.Named("batch"),
	}
}

// Run processes every discovered input and writes the report into the output
// root.  The returned report is non-nil whenever at least one input file was
// found; a nil report with an error means the batch never started.
func (b *Batch) Run(ctx context.Context) (*route.BatchReport, error) {
	if err := os.MkdirAll(b.args.Output, 0o755); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeOutputDirError,
			fmt.Sprintf("cannot create output directory %s", b.args.Output))
	}

	files, err := FindPDFFiles(b.args.Input, b.args.IncludeSI, b.siMarker)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeNoInputFiles,
			fmt.Sprintf("no PDF files found under %s", b.args.Input))
	}

	b.logger.Info("batch starting", logging.Int("files", len(files)))
	for _, f := range files {
		b.logger.Debug("queued", logging.String("file", f))
	}

	results := make([]*route.ProcessResult, 0, len(files))
	for _, file := range files {
		results = append(results, b.processor.Process(ctx, file))
	}

	report := route.NewBatchReport(uuid.NewString(), b.args, results)
	if err := WriteReport(report, b.args.Output); err != nil {
		b.logger.Error("cannot write batch report", logging.Err(err))
	}

	b.logSummary(report)
	if b.metrics != nil {
		status := "success"
		if report.SuccessCount() == 0 {
			status = "failure"
		}
		b.metrics.BatchesTotal.WithLabelValues(status).Inc()
	}
	return report, nil
}

// logSummary emits the human-readable per-file outcome listing.
func (b *Batch) logSummary(report *route.BatchReport) {
	b.logger.Info("batch complete",
		logging.Int("succeeded", report.SuccessCount()),
		logging.Int("total", len(report.Results)),
		logging.Int("reactions", report.TotalReactions()))

	for _, result := range report.Results {
		name := filepath.Base(result.PDFFile)
		if !result.Success {
			b.logger.Warn("file failed",
				logging.String("file", name),
				logging.Any("errors", result.Errors))
			continue
		}
		fields := []logging.Field{
			logging.String("file", name),
			logging.Int("reactions", result.ReactionsExtracted),
			logging.Int("images", result.ImagesGenerated),
		}
		if result.TextInfo != nil {
			fields = append(fields, logging.Int("compounds", result.TextInfo.CompoundsFound))
		}
		if result.OutputDoc != "" {
			fields = append(fields,
				logging.String("document", filepath.Base(result.OutputDoc)),
				logging.Int64("doc_size_kb", result.DocSizeKB))
		}
		b.logger.Info("file succeeded", fields...)
	}
}

// FindPDFFiles resolves input to a list of PDFs: the file itself, or every
// .pdf under the directory recursively.  Files whose name contains siMarker
// are supplementary information and excluded unless includeSI is set.
func FindPDFFiles(input string, includeSI bool, siMarker string) ([]string, error) {
	stat, err := os.Stat(input)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInputNotFound,
			fmt.Sprintf("input path %s does not exist", input))
	}

	if !stat.IsDir() {
		if !strings.EqualFold(filepath.Ext(input), ".pdf") {
			return nil, apperrors.New(apperrors.ErrCodeInputNotPDF,
				fmt.Sprintf("input file %s is not a PDF", input))
		}
		return []string{input}, nil
	}

	var files []string
	err = filepath.WalkDir(input, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		if !includeSI && siMarker != "" && strings.Contains(entry.Name(), siMarker) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInputNotFound,
			fmt.Sprintf("cannot scan %s", input))
	}
	return files, nil
}
