// Package route defines the data types exchanged between the stages of the
// synthesis-route extraction pipeline.  No pipeline logic lives here — only
// plain data types that are safe to import from any layer without creating
// circular dependencies.
package route

import (
	"encoding/json"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Language — output language selector for assembled documents
// ─────────────────────────────────────────────────────────────────────────────

// Language selects which language sections the document assembler emits.
type Language string

const (
	// LangEN emits only the source-language (original experimental text) section.
	LangEN Language = "en"

	// LangZH emits only the target-language section (translation placeholder).
	LangZH Language = "zh"

	// LangBoth emits both language sections.  This is the default.
	LangBoth Language = "both"
)

// Valid reports whether l is one of the supported selectors.
func (l Language) Valid() bool {
	switch l {
	case LangEN, LangZH, LangBoth:
		return true
	}
	return false
}

// IncludesSource reports whether the source-language section is requested.
func (l Language) IncludesSource() bool { return l == LangEN || l == LangBoth }

// IncludesTarget reports whether the target-language section is requested.
func (l Language) IncludesTarget() bool { return l == LangZH || l == LangBoth }

// ─────────────────────────────────────────────────────────────────────────────
// PageCorpus — per-page plain text for one PDF
// ─────────────────────────────────────────────────────────────────────────────

// PageCorpus is the ordered sequence of page texts extracted from one PDF,
// bounded by the configured page budget.  It is immutable once produced and
// owned by the per-file processor for the duration of processing.
type PageCorpus struct {
	// SourcePDF is the path of the PDF the corpus was read from.
	SourcePDF string

	// Pages holds the plain text of each processed page, in page order.
	// len(Pages) == PagesProcessed.
	Pages []string

	// TotalPages is the page count of the whole document.
	TotalPages int

	// PagesProcessed is the number of pages actually read.  Invariant:
	// PagesProcessed <= TotalPages and PagesProcessed <= the page budget.
	PagesProcessed int
}

// ─────────────────────────────────────────────────────────────────────────────
// ExtractedTextInfo — text-mining output
// ─────────────────────────────────────────────────────────────────────────────

// ExtractedTextInfo is the text-mining extractor's output for one document.
// When Error is non-empty every extraction field holds its zero value.
type ExtractedTextInfo struct {
	// ExperimentalText is the recovered experimental narrative, possibly empty.
	ExperimentalText string `json:"experimental_text"`

	// Compounds is the deduplicated set of compound identifiers.  Purely
	// numeric identifiers come first in numeric order, then the rest in
	// lexicographic order.
	Compounds []string `json:"compounds"`

	// PhysicalProps holds physical-property snippets, capped by configuration.
	PhysicalProps []string `json:"physical_props"`

	// CompoundDescriptions maps an identifier to a bounded context snippet
	// following its first occurrence.
	CompoundDescriptions map[string]string `json:"compound_descriptions"`

	// TotalPages and PagesProcessed carry provenance from the PageCorpus.
	TotalPages     int    `json:"total_pages"`
	PagesProcessed int    `json:"pages_processed"`
	SourcePDF      string `json:"source_pdf"`

	// Error records an extraction failure.  The extractor never raises;
	// a failure produces a default struct with this field set.
	Error string `json:"error,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// ReactionRecord — one normalised recognised transformation
// ─────────────────────────────────────────────────────────────────────────────

// ReactionRecord is one recognised reaction after normalisation.  ReactionID
// values are unique and dense (1..n) within one document's reaction list,
// assigned in acceptance order by the normaliser, not by the source model.
type ReactionRecord struct {
	// ReactionID is 1-based and sequential within a document.
	ReactionID int `json:"reaction_id"`

	// Page is the 1-based page the source figure appeared on.
	Page int `json:"page"`

	// ReactantSMILES and ProductSMILES are non-empty by construction:
	// raw entries missing either identifier are dropped before a record exists.
	ReactantSMILES string `json:"reactant_smiles"`
	ProductSMILES  string `json:"product_smiles"`

	// RawData is the source model's entry, preserved verbatim for traceability.
	RawData json.RawMessage `json:"raw_data,omitempty"`

	// ReactantImage and ProductImage are file paths set by the image stage.
	ReactantImage string `json:"reactant_image,omitempty"`
	ProductImage  string `json:"product_image,omitempty"`

	// ImagesGenerated is set only after a successful rendering attempt for
	// both endpoints.
	ImagesGenerated bool `json:"images_generated"`
}

// ─────────────────────────────────────────────────────────────────────────────
// ProcessResult — one input file's outcome
// ─────────────────────────────────────────────────────────────────────────────

// TextInfoSummary is the compact per-file text-mining summary recorded in a
// ProcessResult (counts only; the full ExtractedTextInfo goes to the optional
// raw-data artifact).
type TextInfoSummary struct {
	CompoundsFound         int `json:"compounds_found"`
	ExperimentalTextLength int `json:"experimental_text_length"`
	PhysicalPropsCount     int `json:"physical_props_count"`
}

// ProcessResult is one input file's outcome.  It is created empty when
// per-file processing starts, mutated in place as stages complete, and
// treated as read-only once handed back to the batch orchestrator.
type ProcessResult struct {
	PDFFile   string `json:"pdf_file"`
	OutputDir string `json:"output_dir"`

	// Success is true only when the output document was written and no
	// stage recorded a fault.
	Success bool `json:"success"`

	// Errors collects stage failure messages in occurrence order.
	// Empty on success.
	Errors []string `json:"errors"`

	TextInfo           *TextInfoSummary `json:"text_info,omitempty"`
	ReactionsExtracted int              `json:"reactions_extracted"`
	ImagesGenerated    int              `json:"images_generated"`

	OutputDoc   string `json:"output_doc,omitempty"`
	DocSizeKB   int64  `json:"doc_size_kb,omitempty"`
	RawDataFile string `json:"raw_data_file,omitempty"`
}

// AddError appends a stage failure message.
func (r *ProcessResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// ─────────────────────────────────────────────────────────────────────────────
// BatchReport — machine-readable run summary
// ─────────────────────────────────────────────────────────────────────────────

// RunArgs is the resolved run configuration echoed into the batch report so
// a report is interpretable without the original command line.
type RunArgs struct {
	Input          string   `json:"input"`
	Output         string   `json:"output"`
	MaxPages       int      `json:"max_pages"`
	GenerateImages bool     `json:"generate_images"`
	IncludeSI      bool     `json:"include_si"`
	Language       Language `json:"language"`
	Template       string   `json:"template,omitempty"`
	SaveRawData    bool     `json:"save_raw_data"`
}

// BatchReport is written exactly once, at the end of a batch, to a fixed-name
// file in the output root.  It is not mutated afterward.
type BatchReport struct {
	Timestamp string           `json:"timestamp"`
	RunID     string           `json:"run_id"`
	Args      RunArgs          `json:"args"`
	Results   []*ProcessResult `json:"results"`
}

// NewBatchReport stamps a report with the current time and the given run
// identity and configuration.
func NewBatchReport(runID string, args RunArgs, results []*ProcessResult) *BatchReport {
	return &BatchReport{
		Timestamp: time.Now().Format(time.RFC3339),
		RunID:     runID,
		Args:      args,
		Results:   results,
	}
}

// SuccessCount returns the number of results with Success set.
func (b *BatchReport) SuccessCount() int {
	n := 0
	for _, r := range b.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// TotalReactions returns the sum of ReactionsExtracted across results.
func (b *BatchReport) TotalReactions() int {
	n := 0
	for _, r := range b.Results {
		n += r.ReactionsExtracted
	}
	return n
}
