// Package pipeline orchestrates per-file and batch processing: page
// extraction, text mining, reaction recognition, image rendering, and
// document assembly, with per-stage failure isolation.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/recognition"
	"github.com/turtacn/ChemRoute-Intelligence/pkg/types/route"
)

// docSuffix is appended to the input stem to form the report filename.
const docSuffix = "_合成路线.docx"

// PageReader produces a PageCorpus from a PDF file.
type PageReader interface {
	ReadPages(path string) (*route.PageCorpus, error)
}

// TextMiner derives structured text info from a corpus.
type TextMiner interface {
	Extract(corpus *route.PageCorpus) *route.ExtractedTextInfo
}

// ReactionNormalizer converts raw recognition output to ReactionRecords.
type ReactionNormalizer interface {
	Normalize(figures []recognition.FigureResult) []route.ReactionRecord
}

// DocumentAssembler writes the report document.
type DocumentAssembler interface {
	Assemble(info *route.ExtractedTextInfo, records []route.ReactionRecord,
		outputPath string, lang route.Language, templatePath string) (int64, error)
}

// ProcessorOptions carries the per-run settings the processor needs.
type ProcessorOptions struct {
	OutputDir      string         `json:"output_dir"`
	MaxPages       int            `json:"max_pages"`
	GenerateImages bool           `json:"generate_images"`
	Language       route.Language `json:"language"`
	TemplatePath   string         `json:"template,omitempty"`
	SaveRawData    bool           `json:"save_raw_data"`
}

// Processor runs the full stage sequence for one input file.  Stage faults
// are accumulated on the result; a failed stage never prevents later,
// independent stages from being attempted.
type Processor struct {
	reader     PageReader
	miner      TextMiner
	recognizer recognition.Recognizer
	normalizer ReactionNormalizer
	images     *ImageStage
	assembler  DocumentAssembler
	metrics    *prometheus.Metrics
	opts       ProcessorOptions
	logger     logging.Logger
}

// NewProcessor wires the stages together.  metrics may be nil.
func NewProcessor(
	reader PageReader,
	miner TextMiner,
	recognizer recognition.Recognizer,
	normalizer ReactionNormalizer,
	images *ImageStage,
	assembler DocumentAssembler,
	metrics *prometheus.Metrics,
	opts ProcessorOptions,
	logger logging.Logger,
) *Processor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Processor{
		reader:     reader,
		miner:      miner,
		recognizer: recognizer,
		normalizer: normalizer,
		images:     images,
		assembler:  assembler,
		metrics:    metrics,
		opts:       opts,
		logger:     logger.Named("processor"),
	}
}

// Process runs every stage for the file at pdfPath and always returns a
// ProcessResult, even when every stage failed.
func (p *Processor) Process(ctx context.Context, pdfPath string) *route.ProcessResult {
	start := time.Now()
	stem := fileStem(pdfPath)
	outputDir := filepath.Join(p.opts.OutputDir, stem)

	result := &route.ProcessResult{
		PDFFile:   pdfPath,
		OutputDir: outputDir,
		Errors:    []string{},
	}

	p.logger.Info("processing file", logging.String("file", filepath.Base(pdfPath)))

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		result.AddError(fmt.Sprintf("cannot create output directory: %v", err))
		p.observe(result, start)
		return result
	}

	info := p.mineText(pdfPath, result)
	records := p.extractReactions(ctx, pdfPath, result)

	if len(records) > 0 && p.opts.GenerateImages {
		records = p.images.Render(ctx, records, outputDir)
		result.ImagesGenerated = CountGenerated(records)
	}

	docPath := filepath.Join(outputDir, stem+docSuffix)
	size, err := p.assembler.Assemble(info, records, docPath, p.opts.Language, p.opts.TemplatePath)
	if err != nil {
		result.AddError(fmt.Sprintf("document assembly failed: %v", err))
		p.countStageError("assembly")
	} else {
		result.OutputDoc = docPath
		result.DocSizeKB = size / 1024
	}

	if p.opts.SaveRawData {
		p.saveRawData(outputDir, stem, info, records, result)
	}

	// A file succeeds only when its document was written and no stage
	// recorded a fault along the way.
	result.Success = result.OutputDoc != "" && len(result.Errors) == 0

	p.observe(result, start)
	return result
}

// mineText runs page extraction and text mining.  Both faults degrade to a
// default ExtractedTextInfo so assembly still has an input.
func (p *Processor) mineText(pdfPath string, result *route.ProcessResult) *route.ExtractedTextInfo {
	corpus, err := p.reader.ReadPages(pdfPath)
	if err != nil {
		result.AddError(fmt.Sprintf("page extraction failed: %v", err))
		p.countStageError("pdf")
		corpus = nil
	}

	info := p.miner.Extract(corpus)
	if info.Error != "" {
		result.AddError(info.Error)
		p.countStageError("textmining")
	}
	if info.SourcePDF == "" {
		info.SourcePDF = pdfPath
	}
	result.TextInfo = &route.TextInfoSummary{
		CompoundsFound:         len(info.Compounds),
		ExperimentalTextLength: len(info.ExperimentalText),
		PhysicalPropsCount:     len(info.PhysicalProps),
	}
	return info
}

// extractReactions calls the recognition service and normalizes its output.
// A recognition fault yields an empty record list, not an aborted file.
func (p *Processor) extractReactions(ctx context.Context, pdfPath string, result *route.ProcessResult) []route.ReactionRecord {
	figures, err := p.recognizer.ExtractReactions(ctx, pdfPath, p.opts.MaxPages)
	if err != nil {
		result.AddError(fmt.Sprintf("reaction recognition failed: %v", err))
		p.countStageError("recognition")
		return []route.ReactionRecord{}
	}
	records := p.normalizer.Normalize(figures)
	result.ReactionsExtracted = len(records)
	return records
}

// rawDataArtifact is the optional per-document intermediate dump.
type rawDataArtifact struct {
	TextInfo  *route.ExtractedTextInfo `json:"text_info"`
	Reactions []route.ReactionRecord   `json:"reactions"`
	Args      ProcessorOptions         `json:"processing_args"`
}

func (p *Processor) saveRawData(outputDir, stem string, info *route.ExtractedTextInfo, records []route.ReactionRecord, result *route.ProcessResult) {
	path := filepath.Join(outputDir, stem+"_raw_data.json")
	payload, err := json.MarshalIndent(rawDataArtifact{
		TextInfo:  info,
		Reactions: records,
		Args:      p.opts,
	}, "", "  ")
	if err != nil {
		result.AddError(fmt.Sprintf("cannot encode raw data: %v", err))
		return
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		result.AddError(fmt.Sprintf("cannot write raw data: %v", err))
		return
	}
	result.RawDataFile = path
}

func (p *Processor) observe(result *route.ProcessResult, start time.Time) {
	elapsed := time.Since(start)
	if p.metrics != nil {
		p.metrics.ObserveFile(result.Success, elapsed, result.ReactionsExtracted, result.ImagesGenerated)
	}
	p.logger.Info("file done",
		logging.String("file", filepath.Base(result.PDFFile)),
		logging.Bool("success", result.Success),
		logging.Int("reactions", result.ReactionsExtracted),
		logging.Int("images", result.ImagesGenerated),
		logging.Duration("elapsed", elapsed))
}

func (p *Processor) countStageError(stage string) {
	if p.metrics != nil {
		p.metrics.StageErrorsTotal.WithLabelValues(stage).Inc()
	}
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
