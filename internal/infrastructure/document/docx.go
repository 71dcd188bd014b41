// Package document writes assembled reports as .docx files.  It is a thin
// adapter over the go-docx library; all layout decisions live in the
// assembly package.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fumiama/go-docx"

	"github.com/turtacn/ChemRoute-Intelligence/internal/application/assembly"
	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemRoute-Intelligence/pkg/errors"
)

// Factory creates .docx builders.
type Factory struct {
	logger logging.Logger
}

// NewFactory returns a DocumentFactory producing .docx documents.
func NewFactory(logger logging.Logger) *Factory {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Factory{logger: logger.Named("document")}
}

// New returns a builder over a blank document with the default theme.
func (f *Factory) New() (assembly.DocumentBuilder, error) {
	return &builder{doc: docx.New().WithDefaultTheme(), logger: f.logger}, nil
}

// FromTemplate returns a builder seeded from an existing .docx file so the
// report inherits its styles.
func (f *Factory) FromTemplate(path string) (assembly.DocumentBuilder, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDocTemplateInvalid,
			fmt.Sprintf("failed to open template %s", filepath.Base(path)))
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDocTemplateInvalid, "failed to stat template")
	}

	doc, err := docx.Parse(file, info.Size())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDocTemplateInvalid,
			fmt.Sprintf("failed to parse template %s", filepath.Base(path)))
	}
	return &builder{doc: doc, logger: f.logger}, nil
}

type builder struct {
	doc    *docx.Docx
	logger logging.Logger
}

// halfPoints converts a point size to the half-point string go-docx expects.
func halfPoints(points int) string {
	return strconv.Itoa(points * 2)
}

func (b *builder) AddTitle(text string) {
	para := b.doc.AddParagraph().Justification("center")
	para.AddText(text).Size(halfPoints(assembly.TitleFontSize)).Bold()
}

func (b *builder) AddParagraph(runs ...assembly.Run) {
	b.fillParagraph(b.doc.AddParagraph(), runs)
}

func (b *builder) AddCentered(runs ...assembly.Run) {
	b.fillParagraph(b.doc.AddParagraph().Justification("center"), runs)
}

func (b *builder) AddImageRow(items ...assembly.InlineItem) error {
	para := b.doc.AddParagraph().Justification("center")
	for _, item := range items {
		if item.ImagePath == "" {
			style := item.Style
			style.Text = item.Text
			b.addRun(para, style)
			continue
		}
		if _, err := para.AddInlineDrawingFrom(item.ImagePath); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeDocWriteFailed,
				fmt.Sprintf("failed to embed %s", filepath.Base(item.ImagePath)))
		}
	}
	return nil
}

func (b *builder) fillParagraph(para *docx.Paragraph, runs []assembly.Run) {
	for _, run := range runs {
		b.addRun(para, run)
	}
}

func (b *builder) addRun(para *docx.Paragraph, run assembly.Run) {
	size := run.Size
	if size == 0 {
		size = assembly.BodyFontSize
	}
	r := para.AddText(run.Text).Size(halfPoints(size))
	if run.Bold {
		r.Bold()
	}
	if run.Italic {
		r.Italic()
	}
	if run.Color != "" {
		r.Color(run.Color)
	}
}

func (b *builder) Save(path string) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeDocWriteFailed,
			fmt.Sprintf("failed to create %s", filepath.Base(path)))
	}
	defer file.Close()

	written, err := b.doc.WriteTo(file)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeDocWriteFailed,
			fmt.Sprintf("failed to write %s", filepath.Base(path)))
	}

	b.logger.Debug("document written",
		logging.String("path", path),
		logging.Int64("bytes", written))
	return written, nil
}
