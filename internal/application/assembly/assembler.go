// Package assembly builds the bilingual synthesis-route report from mined
// text and normalized reactions.  Every section degrades independently: a
// missing input renders that section's placeholder instead of aborting the
// document.
package assembly

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemRoute-Intelligence/pkg/errors"
	"github.com/turtacn/ChemRoute-Intelligence/pkg/types/route"
)

const (
	// ExperimentalTextCeiling bounds the source-language section.
	ExperimentalTextCeiling = 5000

	// smilesPreviewLen bounds identifier previews in the reaction section.
	smilesPreviewLen = 50

	truncationMarker      = "\n\n...（内容过长，已截断）"
	noExperimentalText    = "（实验部分未提取到）"
	translationPending    = "（待翻译）"
	spectraPending        = "（待补充）"
	missingImagePlacement = "（反应图像未生成）"
)

// Assembler writes one report document per processed PDF.
type Assembler struct {
	factory DocumentFactory
	logger  logging.Logger
}

// NewAssembler returns an Assembler writing through factory.
func NewAssembler(factory DocumentFactory, logger logging.Logger) *Assembler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Assembler{factory: factory, logger: logger.Named("assembly")}
}

// Assemble builds the report and saves it to outputPath, returning the
// written size in bytes.  A non-empty templatePath seeds the document from
// that file.  Per-image embedding failures are logged and skipped; only a
// failure of the document collaborator itself is returned as an error.
func (a *Assembler) Assemble(
	info *route.ExtractedTextInfo,
	records []route.ReactionRecord,
	outputPath string,
	lang route.Language,
	templatePath string,
) (int64, error) {
	if a.factory == nil {
		return 0, apperrors.New(apperrors.ErrCodeDocUnavailable, "no document writer configured")
	}

	builder, err := a.newBuilder(templatePath)
	if err != nil {
		return 0, err
	}

	builder.AddTitle(buildTitle(info))
	builder.AddParagraph()

	if lang.IncludesSource() {
		a.addSourceSection(builder, info)
	}
	a.addPropertiesSection(builder, info)
	if lang.IncludesTarget() {
		a.addTargetSection(builder)
	}
	a.addReactionSection(builder, records)
	a.addSpectraSection(builder)
	a.addFooter(builder, info, len(records))

	size, err := builder.Save(outputPath)
	if err != nil {
		return 0, err
	}
	a.logger.Info("report written",
		logging.String("path", outputPath),
		logging.Int64("bytes", size),
		logging.Int("reactions", len(records)))
	return size, nil
}

func (a *Assembler) newBuilder(templatePath string) (DocumentBuilder, error) {
	if templatePath == "" {
		return a.factory.New()
	}
	builder, err := a.factory.FromTemplate(templatePath)
	if err != nil {
		a.logger.Warn("template unusable, starting from a blank document",
			logging.String("template", templatePath),
			logging.Err(err))
		return a.factory.New()
	}
	return builder, nil
}

// buildTitle derives the title from up to the first three compound
// identifiers, or from the source filename when none were found.
func buildTitle(info *route.ExtractedTextInfo) string {
	if len(info.Compounds) == 0 {
		stem := strings.TrimSuffix(filepath.Base(info.SourcePDF), filepath.Ext(info.SourcePDF))
		return stem + " 合成路线"
	}
	leading := info.Compounds
	if len(leading) > 3 {
		leading = leading[:3]
	}
	title := "化合物" + strings.Join(leading, ", ") + "的合成路线"
	if len(info.Compounds) > 3 {
		title += "等"
	}
	return title
}

func (a *Assembler) addSourceSection(builder DocumentBuilder, info *route.ExtractedTextInfo) {
	builder.AddParagraph(Run{Text: "原文："})

	if info.ExperimentalText == "" {
		builder.AddParagraph(Run{Text: noExperimentalText})
		return
	}

	text := info.ExperimentalText
	if utf8.RuneCountInString(text) > ExperimentalTextCeiling {
		text = string([]rune(text)[:ExperimentalTextCeiling]) + truncationMarker
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		builder.AddParagraph(Run{Text: line, Bold: compoundLed(line, info.Compounds)})
	}
}

// compoundLed reports whether a line opens a compound's narrative, either by
// starting with a known identifier or by naming it with an explicit cue.
func compoundLed(line string, compounds []string) bool {
	trimmed := strings.TrimSpace(line)
	lower := strings.ToLower(line)
	for _, id := range compounds {
		if strings.HasPrefix(trimmed, id) || strings.Contains(lower, "compound "+strings.ToLower(id)) {
			return true
		}
	}
	return false
}

func (a *Assembler) addPropertiesSection(builder DocumentBuilder, info *route.ExtractedTextInfo) {
	if len(info.PhysicalProps) == 0 {
		return
	}
	builder.AddParagraph()
	builder.AddParagraph(Run{Text: "物理性质数据："})
	for _, prop := range info.PhysicalProps {
		builder.AddParagraph(Run{Text: prop})
	}
}

func (a *Assembler) addTargetSection(builder DocumentBuilder) {
	builder.AddParagraph()
	builder.AddParagraph(Run{Text: "中文："})
	builder.AddParagraph(Run{Text: translationPending})
}

func (a *Assembler) addReactionSection(builder DocumentBuilder, records []route.ReactionRecord) {
	if len(records) == 0 {
		return
	}
	builder.AddParagraph()
	builder.AddParagraph(Run{Text: "反应图："})
	builder.AddParagraph(Run{Text: "以下是自动提取的化学反应结构图："})

	for _, record := range records {
		builder.AddParagraph(Run{
			Text:   fmt.Sprintf("反应 %d (第%d页):", record.ReactionID, record.Page),
			Italic: true,
		})
		builder.AddParagraph(Run{
			Text: fmt.Sprintf("反应物: %s... → 产物: %s...",
				previewSMILES(record.ReactantSMILES), previewSMILES(record.ProductSMILES)),
			Size: BodyFontSize,
		})

		if record.ImagesGenerated {
			err := builder.AddImageRow(
				InlineItem{ImagePath: record.ReactantImage},
				InlineItem{Text: "   →   "},
				InlineItem{ImagePath: record.ProductImage},
			)
			if err != nil {
				a.logger.Warn("failed to embed reaction images",
					logging.Int("reaction_id", record.ReactionID),
					logging.Err(err))
			}
		} else {
			builder.AddParagraph(Run{Text: missingImagePlacement, Color: ColorMissingImage})
		}
		builder.AddParagraph()
	}
}

func previewSMILES(smiles string) string {
	runes := []rune(smiles)
	if len(runes) > smilesPreviewLen {
		return string(runes[:smilesPreviewLen])
	}
	return smiles
}

func (a *Assembler) addSpectraSection(builder DocumentBuilder) {
	builder.AddParagraph()
	builder.AddParagraph(Run{Text: "谱图："})
	builder.AddParagraph(Run{Text: spectraPending})
}

func (a *Assembler) addFooter(builder DocumentBuilder, info *route.ExtractedTextInfo, reactionCount int) {
	builder.AddParagraph()
	builder.AddParagraph(Run{Text: strings.Repeat("-", 50)})
	builder.AddParagraph(Run{
		Text: fmt.Sprintf("文档生成信息: 来源PDF - %s, 处理页数 - %d/%d, 提取反应数 - %d",
			filepath.Base(info.SourcePDF), info.PagesProcessed, info.TotalPages, reactionCount),
		Size:  FooterFontSize,
		Color: ColorFooter,
	})
}
