package assembly

// Font sizes in points for the three text roles a report uses.
const (
	TitleFontSize  = 16
	BodyFontSize   = 9
	FooterFontSize = 8
)

// Colors used by the assembled report, as RRGGBB hex.
const (
	ColorMissingImage = "FF0000"
	ColorFooter       = "808080"
)

// Run is one styled span of text inside a paragraph.
type Run struct {
	Text   string
	Bold   bool
	Italic bool

	// Size is the font size in points; zero means the body default.
	Size int

	// Color is an RRGGBB hex value; empty means the document default.
	Color string
}

// InlineItem is one element of a mixed text-and-image row.  When ImagePath
// is set the item is an image; otherwise Text with Style is rendered.
type InlineItem struct {
	ImagePath string
	Text      string
	Style     Run
}

// DocumentBuilder accumulates report content and writes it out as a single
// office document.  Implementations are not safe for concurrent use.
type DocumentBuilder interface {
	// AddTitle appends a centered title line.
	AddTitle(text string)

	// AddParagraph appends one paragraph made of the given styled runs.
	AddParagraph(runs ...Run)

	// AddCentered appends one centered paragraph of styled runs.
	AddCentered(runs ...Run)

	// AddImageRow appends one paragraph mixing inline images and text.
	// Items whose image file cannot be embedded report an error; content
	// added before the failing item is kept.
	AddImageRow(items ...InlineItem) error

	// Save writes the document to path and returns its size in bytes.
	Save(path string) (int64, error)
}

// DocumentFactory creates builders, either blank or seeded from a template
// document whose styles the report should inherit.
type DocumentFactory interface {
	New() (DocumentBuilder, error)
	FromTemplate(path string) (DocumentBuilder, error)
}
