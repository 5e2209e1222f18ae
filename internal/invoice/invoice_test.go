package invoice

import (
	"bytes"
	"compress/zlib"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/aq2208/gorder-pos/internal/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleData(items int) domain.InvoiceData {
	var lines []domain.LineItem
	for i := 0; i < items; i++ {
		lines = append(lines, domain.LineItem{
			ProductID: "p",
			Barcode:   "01012400001",
			Name:      "Green tea " + strings.Repeat("extra long name ", i%4),
			Quantity:  2,
			UnitPrice: 15000,
			Total:     30000,
		})
	}
	total := domain.SumItems(lines)
	return domain.InvoiceData{
		Order: domain.Order{
			ID:         "3f1b6a51-0c7c-4a54-9a3e-6b9a3c0a5e11",
			CustomerID: "c1",
			EmployeeID: "e1",
			Items:      lines,
			TotalPrice: total,
			Payment:    domain.PaymentInfo{AmountPaid: total + 5000, Change: 5000},
			Status:     domain.StatusCompleted,
			CreatedAt:  time.Date(2024, 1, 1, 3, 4, 5, 0, time.UTC),
		},
		Customer:     domain.Customer{ID: "c1", Name: "Lan", Phone: "0900000001", Address: "1 Le Loi"},
		EmployeeID:   "e1",
		EmployeeName: "Minh",
	}
}

func TestBuild_Layout(t *testing.T) {
	tr := i18n.New("en", "VND")
	doc, err := Build(sampleData(2), tr, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, i18n.InvTitle, doc.Title)
	assert.Equal(t, "03:04:05 01/01/2024", doc.Summary[1].Value)
	assert.Equal(t, "60,000 VND", doc.Summary[2].Value)
	assert.Equal(t, "5,000 VND", doc.Summary[4].Value)
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, Row{"1", "01012400001", "Green tea ", "2", "15,000 VND", "30,000 VND"}, doc.Rows[0])
	assert.Equal(t, "Minh", doc.Employee.Fields[1].Value)
}

func TestBuild_Deterministic(t *testing.T) {
	tr := i18n.New("vi-VN", "VND")
	a, err := Build(sampleData(3), tr, time.UTC)
	require.NoError(t, err)
	b, err := Build(sampleData(3), tr, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuild_BlankEmployeeAllowed(t *testing.T) {
	d := sampleData(1)
	d.EmployeeName = ""
	_, err := Build(d, i18n.New("en", "VND"), nil)
	assert.NoError(t, err)
}

func TestBuild_MissingFieldsFail(t *testing.T) {
	tr := i18n.New("en", "VND")

	d := sampleData(1)
	d.Customer.Address = ""
	_, err := Build(d, tr, time.UTC)
	assert.True(t, errors.Is(err, domain.ErrRender))

	d = sampleData(1)
	d.Order.Items[0].Name = ""
	_, err = Build(d, tr, time.UTC)
	assert.True(t, errors.Is(err, domain.ErrRender))

	d = sampleData(0)
	_, err = Build(d, tr, time.UTC)
	assert.True(t, errors.Is(err, domain.ErrRender))
}

func TestPDFRenderer_Render(t *testing.T) {
	r := NewPDFRenderer(i18n.New("vi-VN", "VND"), WithLocation(time.UTC))

	out, err := r.Render(sampleData(3))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestPDFRenderer_Paginates(t *testing.T) {
	r := NewPDFRenderer(i18n.New("en", "VND"))

	short, err := r.Render(sampleData(2))
	require.NoError(t, err)
	long, err := r.Render(sampleData(120))
	require.NoError(t, err)

	assert.Equal(t, 1, bytes.Count(short, []byte("/Type /Page\n")))
	assert.Greater(t, bytes.Count(long, []byte("/Type /Page\n")), 1)
}

func TestPDFRenderer_RenderErrorKeepsSentinel(t *testing.T) {
	r := NewPDFRenderer(i18n.New("en", "VND"))
	d := sampleData(1)
	d.Customer.Phone = ""

	_, err := r.Render(d)
	assert.ErrorIs(t, err, domain.ErrRender)
}

// contentStreams inflates every compressed stream in a rendered PDF.
func contentStreams(pdf []byte) []byte {
	var out []byte
	rest := pdf
	for {
		i := bytes.Index(rest, []byte("stream\n"))
		if i < 0 {
			return out
		}
		rest = rest[i+len("stream\n"):]
		j := bytes.Index(rest, []byte("\nendstream"))
		if j < 0 {
			return out
		}
		if zr, err := zlib.NewReader(bytes.NewReader(rest[:j])); err == nil {
			if b, err := io.ReadAll(zr); err == nil {
				out = append(out, b...)
			}
		}
		rest = rest[j+len("\nendstream"):]
	}
}

func TestPDFRenderer_VietnameseText(t *testing.T) {
	d := sampleData(1)
	d.Customer.Name = "Trương Thị Lợi"
	d.Customer.Address = "12 đường Lê Lợi"
	d.Order.Items[0].Name = "Sữa bơ đậu xanh"
	r := NewPDFRenderer(i18n.New("vi-VN", "VND"))

	out, err := r.Render(d)
	require.NoError(t, err)
	assert.Contains(t, string(out), "/Encoding /Identity-H")
	assert.Contains(t, string(out), "DejaVuSansCondensed")
	assert.NotContains(t, string(out), "/WinAnsiEncoding")

	// text is written as UTF-16BE code units, so every letter survives
	text := contentStreams(out)
	for _, u := range []string{"\x01\xb0", "\x01\xa1", "\x01\x11"} { // ư ơ đ
		assert.True(t, bytes.Contains(text, []byte(u)), "missing % x", u)
	}
}

func TestPDFRenderer_MissingFontFile(t *testing.T) {
	r := NewPDFRenderer(i18n.New("en", "VND"), WithFont("/nonexistent/font.ttf"))

	_, err := r.Render(sampleData(1))
	assert.ErrorIs(t, err, domain.ErrRender)
}
