package invoice

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/aq2208/gorder-pos/internal/i18n"
	"github.com/go-pdf/fpdf"
)

const (
	pageMargin  = 15.0
	lineHeight  = 6.0
	fontSize    = 10.0
	titleSize   = 16.0
	fontFamily  = "invoice"
	headerShade = 230
)

// DejaVu Sans Condensed, as shipped with go-pdf/fpdf. It covers the
// Vietnamese alphabet, which the core PDF fonts cannot encode.
var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	regularTTF []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	boldTTF []byte
)

// column widths on A4 portrait with 15mm margins (180mm usable)
var columnWidths = [6]float64{10, 32, 62, 20, 28, 28}

type Option func(*PDFRenderer)

// WithFont replaces the built-in DejaVu face with a TrueType font from disk,
// used for both regular and bold text.
func WithFont(path string) Option {
	return func(r *PDFRenderer) { r.fontPath = path }
}

func WithLocation(loc *time.Location) Option {
	return func(r *PDFRenderer) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// PDFRenderer implements usecase.InvoiceRenderer.
type PDFRenderer struct {
	tr       *i18n.Translator
	loc      *time.Location
	fontPath string
}

func NewPDFRenderer(tr *i18n.Translator, opts ...Option) *PDFRenderer {
	r := &PDFRenderer{tr: tr, loc: time.UTC}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *PDFRenderer) Render(data domain.InvoiceData) ([]byte, error) {
	doc, err := Build(data, r.tr, r.loc)
	if err != nil {
		return nil, err
	}
	out, err := r.write(doc, data.Order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRender, err)
	}
	return out, nil
}

type writer struct {
	pdf *fpdf.Fpdf
	doc Document
}

func (r *PDFRenderer) write(doc Document, created time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	// The creation date is part of the file; pin it so re-renders of the
	// same order produce the same document.
	pdf.SetCreationDate(created.UTC())
	pdf.SetCatalogSort(true)

	if r.fontPath != "" {
		pdf.AddUTF8Font(fontFamily, "", r.fontPath)
		pdf.AddUTF8Font(fontFamily, "B", r.fontPath)
	} else {
		pdf.AddUTF8FontFromBytes(fontFamily, "", regularTTF)
		pdf.AddUTF8FontFromBytes(fontFamily, "B", boldTTF)
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	pdf.SetTitle(doc.Title, true)

	w := &writer{pdf: pdf, doc: doc}

	w.header()
	w.section(doc.Customer)
	w.section(doc.Employee)
	w.items()
	w.closing()

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *writer) usableWidth() float64 {
	pw, _ := w.pdf.GetPageSize()
	return pw - 2*pageMargin
}

func (w *writer) ensureSpace(h float64, repeatColumns bool) {
	_, ph := w.pdf.GetPageSize()
	if w.pdf.GetY()+h <= ph-pageMargin {
		return
	}
	w.pdf.AddPage()
	if repeatColumns {
		w.columns()
	}
}

func (w *writer) header() {
	w.pdf.AddPage()
	w.pdf.SetFont(fontFamily, "B", titleSize)
	w.pdf.CellFormat(0, 10, w.doc.Title, "", 1, "C", false, 0, "")
	w.pdf.Ln(2)
	w.fields(w.doc.Summary)
	w.pdf.Ln(4)
}

func (w *writer) section(s Section) {
	w.ensureSpace(lineHeight*float64(len(s.Fields)+2), false)
	w.pdf.SetFont(fontFamily, "B", fontSize+1)
	w.pdf.CellFormat(0, lineHeight+1, s.Heading, "", 1, "L", false, 0, "")
	w.fields(s.Fields)
	w.pdf.Ln(4)
}

func (w *writer) fields(fs []Field) {
	labelW := 40.0
	for _, f := range fs {
		w.ensureSpace(lineHeight, false)
		w.pdf.SetFont(fontFamily, "B", fontSize)
		w.pdf.CellFormat(labelW, lineHeight, f.Label+":", "", 0, "L", false, 0, "")
		w.pdf.SetFont(fontFamily, "", fontSize)
		w.pdf.MultiCell(w.usableWidth()-labelW, lineHeight, f.Value, "", "L", false)
	}
}

func (w *writer) columns() {
	w.pdf.SetFont(fontFamily, "B", fontSize)
	w.pdf.SetFillColor(headerShade, headerShade, headerShade)
	cells := rowCells(w.doc.Columns)
	for i, c := range cells {
		w.pdf.CellFormat(columnWidths[i], lineHeight+2, c, "1", 0, "C", true, 0, "")
	}
	w.pdf.Ln(-1)
	w.pdf.SetFont(fontFamily, "", fontSize)
}

func (w *writer) items() {
	w.ensureSpace(lineHeight*3, false)
	w.pdf.SetFont(fontFamily, "B", fontSize+1)
	w.pdf.CellFormat(0, lineHeight+1, w.doc.Items, "", 1, "L", false, 0, "")
	w.columns()

	for _, row := range w.doc.Rows {
		cells := rowCells(row)
		// Long names wrap; the whole row takes the height of the name cell.
		lines := w.pdf.SplitText(row.Name, columnWidths[2]-2)
		h := lineHeight * float64(max(1, len(lines)))
		w.ensureSpace(h, true)

		x, y := w.pdf.GetXY()
		for i, c := range cells {
			if i == 2 {
				w.pdf.Rect(x, y, columnWidths[i], h, "D")
				w.pdf.MultiCell(columnWidths[i], lineHeight, c, "", "L", false)
				w.pdf.SetXY(x+columnWidths[i], y)
			} else {
				align := "L"
				if i != 1 {
					align = "R"
				}
				w.pdf.CellFormat(columnWidths[i], h, c, "1", 0, align, false, 0, "")
			}
			x += columnWidths[i]
		}
		w.pdf.SetXY(pageMargin, y+h)
	}
}

func (w *writer) closing() {
	w.ensureSpace(lineHeight*3, false)
	w.pdf.Ln(lineHeight)
	w.pdf.SetFont(fontFamily, "", fontSize+1)
	w.pdf.CellFormat(0, lineHeight, w.doc.Closing, "", 1, "C", false, 0, "")
}

func rowCells(r Row) [6]string {
	return [6]string{r.Index, r.Code, r.Name, r.Quantity, r.UnitPrice, r.Total}
}
