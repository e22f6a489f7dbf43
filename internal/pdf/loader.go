package pdf

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/dfe-digital/nomination-uploader/internal/layout"
)

const (
	// defaultPageHeight is the US Letter height used when a page carries no
	// resolvable MediaBox
	defaultPageHeight = 792.0

	// wordGapFactor times the font size is the widest horizontal gap between
	// two glyph runs still joined into one word fragment
	wordGapFactor = 0.2
)

// Loader turns a nomination PDF into the ordered positioned-fragment
// sequence the layout engine consumes. It validates the file before reading
// it and preserves top-to-bottom, left-to-right reading order across pages.
type Loader struct {
	maxFileSize int64
}

// NewLoader creates a loader with the specified file size constraint.
func NewLoader(maxFileSize int64) *Loader {
	return &Loader{maxFileSize: maxFileSize}
}

// LoadFragments reads the PDF at path and returns one fragment per styled
// word run. Top offsets accumulate page heights so fragments on later pages
// always sort after earlier ones.
func (l *Loader) LoadFragments(path string) ([]layout.PositionedFragment, error) {
	if err := l.validateFile(path); err != nil {
		return nil, err
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var fragments []layout.PositionedFragment
	pageOffset := 0.0

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			pageOffset += defaultPageHeight
			continue
		}

		height := pageHeight(page)

		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d text: %w", pageNum, err)
		}
		for _, row := range rows {
			fragments = append(fragments, rowFragments(row, pageOffset, height)...)
		}

		pageOffset += height
	}

	return fragments, nil
}

// validateFile performs the basic file checks plus a structural validation
// of the PDF itself through pdfcpu in relaxed mode.
func (l *Loader) validateFile(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", path)
	}
	if fileInfo.Size() > l.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)", fileInfo.Size(), l.maxFileSize)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return fmt.Errorf("failed to ensure page count: %w", err)
	}

	return nil
}

// rowFragments converts one text row into word fragments, joining adjacent
// glyph runs that share a style and have sub-word gaps.
func rowFragments(row *pdf.Row, pageOffset, height float64) []layout.PositionedFragment {
	var fragments []layout.PositionedFragment

	var text strings.Builder
	var font string
	var fontSize, startX, endX, y float64

	flush := func() {
		if text.Len() == 0 {
			return
		}
		fragments = append(fragments, layout.PositionedFragment{
			Text: text.String(),
			Style: layout.NewStyle(
				fontSize,
				strings.Contains(font, "Bold"),
				pageOffset+(height-y),
				startX,
				endX-startX,
			),
		})
		text.Reset()
	}

	for _, t := range row.Content {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		sameWord := text.Len() > 0 &&
			t.Font == font &&
			t.FontSize == fontSize &&
			t.X-endX < wordGapFactor*fontSize
		if !sameWord {
			flush()
			font = t.Font
			fontSize = t.FontSize
			startX = t.X
			y = t.Y
		}
		text.WriteString(t.S)
		endX = t.X + t.W
	}
	flush()

	return fragments
}

// pageHeight resolves the page's MediaBox height, walking up the page tree
// for inherited boxes.
func pageHeight(page pdf.Page) float64 {
	node := page.V
	for depth := 0; depth < 16 && !node.IsNull(); depth++ {
		box := node.Key("MediaBox")
		if !box.IsNull() && box.Len() == 4 {
			if h := box.Index(3).Float64() - box.Index(1).Float64(); h > 0 {
				return h
			}
		}
		node = node.Key("Parent")
	}
	return defaultPageHeight
}
