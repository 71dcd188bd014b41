package assembly

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemRoute-Intelligence/pkg/errors"
	"github.com/turtacn/ChemRoute-Intelligence/pkg/types/route"
)

// fakeBuilder records everything appended to it, in order.
type fakeBuilder struct {
	title      string
	paragraphs [][]Run
	imageRows  [][]InlineItem
	saveErr    error
	savedPath  string
}

func (f *fakeBuilder) AddTitle(text string)        { f.title = text }
func (f *fakeBuilder) AddParagraph(runs ...Run)    { f.paragraphs = append(f.paragraphs, runs) }
func (f *fakeBuilder) AddCentered(runs ...Run)     { f.paragraphs = append(f.paragraphs, runs) }
func (f *fakeBuilder) AddImageRow(items ...InlineItem) error {
	f.imageRows = append(f.imageRows, items)
	return nil
}
func (f *fakeBuilder) Save(path string) (int64, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.savedPath = path
	return 2048, nil
}

// text flattens all recorded paragraphs for containment checks.
func (f *fakeBuilder) text() string {
	var b strings.Builder
	for _, runs := range f.paragraphs {
		for _, run := range runs {
			b.WriteString(run.Text)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (f *fakeBuilder) findRun(substr string) (Run, bool) {
	for _, runs := range f.paragraphs {
		for _, run := range runs {
			if strings.Contains(run.Text, substr) {
				return run, true
			}
		}
	}
	return Run{}, false
}

type fakeFactory struct {
	builder        *fakeBuilder
	newErr         error
	templateErr    error
	templateAsked  string
	newCalled      bool
}

func (f *fakeFactory) New() (DocumentBuilder, error) {
	f.newCalled = true
	if f.newErr != nil {
		return nil, f.newErr
	}
	return f.builder, nil
}

func (f *fakeFactory) FromTemplate(path string) (DocumentBuilder, error) {
	f.templateAsked = path
	if f.templateErr != nil {
		return nil, f.templateErr
	}
	return f.builder, nil
}

func sampleInfo() *route.ExtractedTextInfo {
	return &route.ExtractedTextInfo{
		ExperimentalText: "compound 3 was prepared from the diamine.\nThe mixture was stirred overnight.",
		Compounds:        []string{"3", "12", "A1"},
		PhysicalProps:    []string{"m.p.: 158 C"},
		CompoundDescriptions: map[string]string{
			"3": "3 was prepared from the diamine",
		},
		SourcePDF:      "/papers/energetic.pdf",
		TotalPages:     12,
		PagesProcessed: 5,
	}
}

func assemble(t *testing.T, info *route.ExtractedTextInfo, records []route.ReactionRecord, lang route.Language) *fakeBuilder {
	t.Helper()
	builder := &fakeBuilder{}
	a := NewAssembler(&fakeFactory{builder: builder}, logging.NewNopLogger())
	_, err := a.Assemble(info, records, "/out/report.docx", lang, "")
	require.NoError(t, err)
	return builder
}

func TestTitleFromCompounds(t *testing.T) {
	builder := assemble(t, sampleInfo(), nil, route.LangBoth)
	assert.Equal(t, "化合物3, 12, A1的合成路线", builder.title)
}

func TestTitleTruncatesAtThreeCompounds(t *testing.T) {
	info := sampleInfo()
	info.Compounds = []string{"3", "12", "45", "A1"}
	builder := assemble(t, info, nil, route.LangBoth)
	assert.Equal(t, "化合物3, 12, 45的合成路线等", builder.title)
}

func TestTitleFallsBackToFilename(t *testing.T) {
	info := sampleInfo()
	info.Compounds = nil
	builder := assemble(t, info, nil, route.LangBoth)
	assert.Equal(t, "energetic 合成路线", builder.title)
}

func TestCompoundLedLinesAreBold(t *testing.T) {
	builder := assemble(t, sampleInfo(), nil, route.LangBoth)

	led, ok := builder.findRun("compound 3 was prepared")
	require.True(t, ok)
	assert.True(t, led.Bold)

	prose, ok := builder.findRun("stirred overnight")
	require.True(t, ok)
	assert.False(t, prose.Bold)
}

func TestExperimentalTextTruncation(t *testing.T) {
	info := sampleInfo()
	info.Compounds = nil
	info.ExperimentalText = strings.Repeat("x", 6000)
	builder := assemble(t, info, nil, route.LangBoth)

	run, ok := builder.findRun("xxx")
	require.True(t, ok)
	assert.Len(t, run.Text, 5000)
	assert.Contains(t, builder.text(), "（内容过长，已截断）")
}

func TestExperimentalTextTruncationKeepsValidUTF8(t *testing.T) {
	info := sampleInfo()
	info.Compounds = nil
	info.ExperimentalText = strings.Repeat("°", 6000)
	builder := assemble(t, info, nil, route.LangBoth)

	run, ok := builder.findRun("°°°")
	require.True(t, ok)
	assert.True(t, utf8.ValidString(run.Text))
	assert.Equal(t, ExperimentalTextCeiling, utf8.RuneCountInString(run.Text))
}

func TestMissingExperimentalTextPlaceholder(t *testing.T) {
	info := sampleInfo()
	info.ExperimentalText = ""
	builder := assemble(t, info, nil, route.LangBoth)
	assert.Contains(t, builder.text(), "（实验部分未提取到）")
}

func TestLanguageSelection(t *testing.T) {
	sourceOnly := assemble(t, sampleInfo(), nil, route.LangEN)
	assert.Contains(t, sourceOnly.text(), "原文：")
	assert.NotContains(t, sourceOnly.text(), "中文：")

	targetOnly := assemble(t, sampleInfo(), nil, route.LangZH)
	assert.NotContains(t, targetOnly.text(), "原文：")
	assert.Contains(t, targetOnly.text(), "中文：")
	assert.Contains(t, targetOnly.text(), "（待翻译）")

	both := assemble(t, sampleInfo(), nil, route.LangBoth)
	assert.Contains(t, both.text(), "原文：")
	assert.Contains(t, both.text(), "中文：")
}

func TestPropertiesSectionOnlyWhenPresent(t *testing.T) {
	withProps := assemble(t, sampleInfo(), nil, route.LangBoth)
	assert.Contains(t, withProps.text(), "物理性质数据：")
	assert.Contains(t, withProps.text(), "m.p.: 158 C")

	info := sampleInfo()
	info.PhysicalProps = nil
	without := assemble(t, info, nil, route.LangBoth)
	assert.NotContains(t, without.text(), "物理性质数据：")
}

func TestReactionSectionWithImages(t *testing.T) {
	records := []route.ReactionRecord{
		{
			ReactionID:      1,
			Page:            2,
			ReactantSMILES:  "CCO",
			ProductSMILES:   "CC=O",
			ReactantImage:   "/out/reaction_images/reaction_1_reactant.png",
			ProductImage:    "/out/reaction_images/reaction_1_product.png",
			ImagesGenerated: true,
		},
	}
	builder := assemble(t, sampleInfo(), records, route.LangBoth)

	header, ok := builder.findRun("反应 1 (第2页):")
	require.True(t, ok)
	assert.True(t, header.Italic)

	assert.Contains(t, builder.text(), "反应物: CCO... → 产物: CC=O...")

	require.Len(t, builder.imageRows, 1)
	row := builder.imageRows[0]
	require.Len(t, row, 3)
	assert.Equal(t, "/out/reaction_images/reaction_1_reactant.png", row[0].ImagePath)
	assert.Equal(t, "   →   ", row[1].Text)
	assert.Equal(t, "/out/reaction_images/reaction_1_product.png", row[2].ImagePath)
}

func TestReactionSectionMissingImages(t *testing.T) {
	records := []route.ReactionRecord{
		{ReactionID: 1, Page: 1, ReactantSMILES: "CCO", ProductSMILES: "CC=O"},
	}
	builder := assemble(t, sampleInfo(), records, route.LangBoth)

	run, ok := builder.findRun("（反应图像未生成）")
	require.True(t, ok)
	assert.Equal(t, ColorMissingImage, run.Color)
	assert.Empty(t, builder.imageRows)
}

func TestSMILESPreviewTruncation(t *testing.T) {
	long := strings.Repeat("C", 80)
	records := []route.ReactionRecord{
		{ReactionID: 1, Page: 1, ReactantSMILES: long, ProductSMILES: "CC"},
	}
	builder := assemble(t, sampleInfo(), records, route.LangBoth)

	run, ok := builder.findRun("反应物: ")
	require.True(t, ok)
	assert.Contains(t, run.Text, strings.Repeat("C", 50)+"...")
	assert.NotContains(t, run.Text, strings.Repeat("C", 51)+"...")
}

func TestNoReactionSectionWithoutRecords(t *testing.T) {
	builder := assemble(t, sampleInfo(), nil, route.LangBoth)
	assert.NotContains(t, builder.text(), "反应图：")
}

func TestSpectraPlaceholderAlwaysPresent(t *testing.T) {
	builder := assemble(t, sampleInfo(), nil, route.LangBoth)
	assert.Contains(t, builder.text(), "谱图：")
	assert.Contains(t, builder.text(), "（待补充）")
}

func TestFooter(t *testing.T) {
	builder := assemble(t, sampleInfo(), nil, route.LangBoth)

	run, ok := builder.findRun("文档生成信息")
	require.True(t, ok)
	assert.Contains(t, run.Text, "energetic.pdf")
	assert.Contains(t, run.Text, "5/12")
	assert.Contains(t, run.Text, "提取反应数 - 0")
	assert.Equal(t, FooterFontSize, run.Size)
	assert.Equal(t, ColorFooter, run.Color)
}

func TestSaveFailurePropagates(t *testing.T) {
	builder := &fakeBuilder{saveErr: apperrors.New(apperrors.ErrCodeDocWriteFailed, "disk full")}
	a := NewAssembler(&fakeFactory{builder: builder}, logging.NewNopLogger())

	_, err := a.Assemble(sampleInfo(), nil, "/out/report.docx", route.LangBoth, "")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDocWriteFailed, apperrors.GetCode(err))
}

func TestBrokenTemplateFallsBackToBlank(t *testing.T) {
	factory := &fakeFactory{
		builder:     &fakeBuilder{},
		templateErr: apperrors.New(apperrors.ErrCodeDocTemplateInvalid, "not a docx"),
	}
	a := NewAssembler(factory, logging.NewNopLogger())

	_, err := a.Assemble(sampleInfo(), nil, "/out/report.docx", route.LangBoth, "/tpl/broken.docx")
	require.NoError(t, err)
	assert.Equal(t, "/tpl/broken.docx", factory.templateAsked)
	assert.True(t, factory.newCalled)
}

func TestNilFactory(t *testing.T) {
	a := NewAssembler(nil, logging.NewNopLogger())
	_, err := a.Assemble(sampleInfo(), nil, "/out/report.docx", route.LangBoth, "")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDocUnavailable, apperrors.GetCode(err))
}
