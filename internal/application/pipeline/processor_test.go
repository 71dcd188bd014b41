package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/recognition"
	apperrors "github.com/turtacn/ChemRoute-Intelligence/pkg/errors"
	"github.com/turtacn/ChemRoute-Intelligence/pkg/types/route"
)

type mockReader struct {
	readFn func(path string) (*route.PageCorpus, error)
}

func (m *mockReader) ReadPages(path string) (*route.PageCorpus, error) { return m.readFn(path) }

type mockMiner struct {
	extractFn func(corpus *route.PageCorpus) *route.ExtractedTextInfo
}

func (m *mockMiner) Extract(corpus *route.PageCorpus) *route.ExtractedTextInfo {
	return m.extractFn(corpus)
}

type mockRecognizer struct {
	extractFn func(ctx context.Context, pdfPath string, numPages int) ([]recognition.FigureResult, error)
}

func (m *mockRecognizer) ExtractReactions(ctx context.Context, pdfPath string, numPages int) ([]recognition.FigureResult, error) {
	return m.extractFn(ctx, pdfPath, numPages)
}

func (m *mockRecognizer) Health(ctx context.Context) error { return nil }

type mockNormalizer struct {
	normalizeFn func(figures []recognition.FigureResult) []route.ReactionRecord
}

func (m *mockNormalizer) Normalize(figures []recognition.FigureResult) []route.ReactionRecord {
	return m.normalizeFn(figures)
}

type mockAssembler struct {
	assembleFn func(info *route.ExtractedTextInfo, records []route.ReactionRecord,
		outputPath string, lang route.Language, templatePath string) (int64, error)
}

func (m *mockAssembler) Assemble(info *route.ExtractedTextInfo, records []route.ReactionRecord,
	outputPath string, lang route.Language, templatePath string) (int64, error) {
	if m.assembleFn != nil {
		return m.assembleFn(info, records, outputPath, lang, templatePath)
	}
	return 4096, os.WriteFile(outputPath, []byte("doc"), 0o644)
}

func happyReader() *mockReader {
	return &mockReader{readFn: func(path string) (*route.PageCorpus, error) {
		return &route.PageCorpus{
			SourcePDF:      path,
			Pages:          []string{"compound 3 was prepared."},
			TotalPages:     8,
			PagesProcessed: 1,
		}, nil
	}}
}

func happyMiner() *mockMiner {
	return &mockMiner{extractFn: func(corpus *route.PageCorpus) *route.ExtractedTextInfo {
		info := &route.ExtractedTextInfo{
			ExperimentalText:     "compound 3 was prepared.",
			Compounds:            []string{"3"},
			PhysicalProps:        []string{},
			CompoundDescriptions: map[string]string{},
		}
		if corpus != nil {
			info.SourcePDF = corpus.SourcePDF
			info.TotalPages = corpus.TotalPages
			info.PagesProcessed = corpus.PagesProcessed
		}
		return info
	}}
}

func happyRecognizer() *mockRecognizer {
	return &mockRecognizer{extractFn: func(ctx context.Context, pdfPath string, numPages int) ([]recognition.FigureResult, error) {
		return []recognition.FigureResult{{Page: 0}}, nil
	}}
}

func passthroughNormalizer(records []route.ReactionRecord) *mockNormalizer {
	return &mockNormalizer{normalizeFn: func(figures []recognition.FigureResult) []route.ReactionRecord {
		return records
	}}
}

func newProcessor(t *testing.T, opts ProcessorOptions, reader PageReader, miner TextMiner,
	recognizer recognition.Recognizer, normalizer ReactionNormalizer, assembler DocumentAssembler) *Processor {
	t.Helper()
	return NewProcessor(
		reader, miner, recognizer, normalizer,
		NewImageStage(&mockRenderer{}, nil),
		assembler, nil, opts, logging.NewNopLogger(),
	)
}

func TestProcessSuccess(t *testing.T) {
	outputRoot := t.TempDir()
	opts := ProcessorOptions{
		OutputDir:      outputRoot,
		MaxPages:       5,
		GenerateImages: true,
		Language:       route.LangBoth,
	}
	records := []route.ReactionRecord{
		{ReactionID: 1, Page: 1, ReactantSMILES: "CCO", ProductSMILES: "CC=O"},
	}
	p := newProcessor(t, opts, happyReader(), happyMiner(), happyRecognizer(),
		passthroughNormalizer(records), &mockAssembler{})

	result := p.Process(context.Background(), "/papers/sample.pdf")

	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	assert.Equal(t, filepath.Join(outputRoot, "sample"), result.OutputDir)
	assert.Equal(t, 1, result.ReactionsExtracted)
	assert.Equal(t, 1, result.ImagesGenerated)
	require.NotNil(t, result.TextInfo)
	assert.Equal(t, 1, result.TextInfo.CompoundsFound)
	assert.FileExists(t, result.OutputDoc)
	assert.Contains(t, filepath.Base(result.OutputDoc), "sample")
}

func TestProcessRecognitionFailureIsIsolated(t *testing.T) {
	opts := ProcessorOptions{OutputDir: t.TempDir(), MaxPages: 5, Language: route.LangBoth}
	recognizer := &mockRecognizer{extractFn: func(ctx context.Context, pdfPath string, numPages int) ([]recognition.FigureResult, error) {
		return nil, apperrors.New(apperrors.ErrCodeRecognitionUnavailable, "model host down")
	}}
	p := newProcessor(t, opts, happyReader(), happyMiner(), recognizer,
		passthroughNormalizer(nil), &mockAssembler{})

	result := p.Process(context.Background(), "/papers/sample.pdf")

	assert.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "reaction recognition failed")
	// document assembly still ran with the mined text
	assert.FileExists(t, result.OutputDoc)
	assert.Equal(t, 0, result.ReactionsExtracted)
}

func TestProcessPageExtractionFailureStillAssembles(t *testing.T) {
	opts := ProcessorOptions{OutputDir: t.TempDir(), MaxPages: 5, Language: route.LangBoth}
	reader := &mockReader{readFn: func(path string) (*route.PageCorpus, error) {
		return nil, apperrors.New(apperrors.ErrCodePDFOpenFailed, "corrupt xref")
	}}
	var assembledInfo *route.ExtractedTextInfo
	assembler := &mockAssembler{assembleFn: func(info *route.ExtractedTextInfo, records []route.ReactionRecord,
		outputPath string, lang route.Language, templatePath string) (int64, error) {
		assembledInfo = info
		return 1024, os.WriteFile(outputPath, []byte("doc"), 0o644)
	}}
	p := newProcessor(t, opts, reader, happyMiner(), happyRecognizer(),
		passthroughNormalizer(nil), assembler)

	result := p.Process(context.Background(), "/papers/broken.pdf")

	assert.False(t, result.Success)
	assert.Contains(t, result.Errors[0], "page extraction failed")
	require.NotNil(t, assembledInfo)
	assert.Equal(t, "/papers/broken.pdf", assembledInfo.SourcePDF)
}

func TestProcessAssemblyFailure(t *testing.T) {
	opts := ProcessorOptions{OutputDir: t.TempDir(), MaxPages: 5, Language: route.LangBoth}
	assembler := &mockAssembler{assembleFn: func(info *route.ExtractedTextInfo, records []route.ReactionRecord,
		outputPath string, lang route.Language, templatePath string) (int64, error) {
		return 0, apperrors.New(apperrors.ErrCodeDocWriteFailed, "disk full")
	}}
	p := newProcessor(t, opts, happyReader(), happyMiner(), happyRecognizer(),
		passthroughNormalizer(nil), assembler)

	result := p.Process(context.Background(), "/papers/sample.pdf")

	assert.False(t, result.Success)
	assert.Empty(t, result.OutputDoc)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "document assembly failed")
}

func TestProcessImagesSkippedWhenDisabled(t *testing.T) {
	opts := ProcessorOptions{OutputDir: t.TempDir(), MaxPages: 5, Language: route.LangBoth, GenerateImages: false}
	records := []route.ReactionRecord{
		{ReactionID: 1, Page: 1, ReactantSMILES: "CCO", ProductSMILES: "CC=O"},
	}
	p := newProcessor(t, opts, happyReader(), happyMiner(), happyRecognizer(),
		passthroughNormalizer(records), &mockAssembler{})

	result := p.Process(context.Background(), "/papers/sample.pdf")
	assert.Equal(t, 0, result.ImagesGenerated)
	assert.True(t, result.Success)
}

func TestProcessWritesRawDataArtifact(t *testing.T) {
	opts := ProcessorOptions{
		OutputDir:   t.TempDir(),
		MaxPages:    5,
		Language:    route.LangBoth,
		SaveRawData: true,
	}
	records := []route.ReactionRecord{
		{ReactionID: 1, Page: 2, ReactantSMILES: "CCO", ProductSMILES: "CC=O",
			RawData: json.RawMessage(`{"confidence":0.9}`)},
	}
	p := newProcessor(t, opts, happyReader(), happyMiner(), happyRecognizer(),
		passthroughNormalizer(records), &mockAssembler{})

	result := p.Process(context.Background(), "/papers/sample.pdf")

	require.NotEmpty(t, result.RawDataFile)
	assert.Equal(t, "sample_raw_data.json", filepath.Base(result.RawDataFile))

	payload, err := os.ReadFile(result.RawDataFile)
	require.NoError(t, err)

	var artifact struct {
		TextInfo  *route.ExtractedTextInfo `json:"text_info"`
		Reactions []route.ReactionRecord   `json:"reactions"`
		Args      ProcessorOptions         `json:"processing_args"`
	}
	require.NoError(t, json.Unmarshal(payload, &artifact))
	assert.Equal(t, []string{"3"}, artifact.TextInfo.Compounds)
	require.Len(t, artifact.Reactions, 1)
	assert.Equal(t, "CCO", artifact.Reactions[0].ReactantSMILES)
	assert.Equal(t, 5, artifact.Args.MaxPages)
}
