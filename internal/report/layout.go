package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"insulin-calc/internal/calculator"
	"insulin-calc/internal/history"
)

// Page geometry in millimetres on A4 portrait.
const (
	marginX      = 14.0
	imageX       = 10.0
	imageW       = 190.0
	imageH       = 95.0
	imageAdvance = 100.0
	pageBreakY   = 200.0
	topY         = 20.0
	rowHeight    = 7.0
	footerSpace  = 20.0

	disclaimer = "Informational purposes only. NOT medical advice. Always consult a healthcare professional."
)

var (
	tableHeader  = []string{"Date", "Time", "BG", "Carbs", "Total Dose"}
	columnWidths = []float64{40, 30, 42, 30, 40}
)

type layout struct {
	pdf         *fpdf.Fpdf
	tr          func(string) string
	generatedAt time.Time
	imageSeq    int
}

func newLayout(producer string, generatedAt time.Time) (*layout, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Insulin Dose History Report", true)
	pdf.SetCreator(producer, true)
	pdf.SetProducer(producer, true)
	pdf.SetCreationDate(generatedAt)
	pdf.SetAutoPageBreak(true, footerSpace-5)

	l := &layout{
		pdf:         pdf,
		tr:          pdf.UnicodeTranslatorFromDescriptor(""),
		generatedAt: generatedAt,
	}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 5, l.tr(disclaimer), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})
	return l, pdf.Error()
}

// compose lays out the four chart images followed by the detail table.
func (l *layout) compose(images [][]byte, items []history.Item, rangeDays int, loc *time.Location) error {
	if len(images) != 4 {
		return fmt.Errorf("expected 4 chart images, got %d", len(images))
	}
	pdf := l.pdf

	pdf.AddPage()
	y := topY
	pdf.SetFont("Helvetica", "", 18)
	pdf.Text(marginX, y, "Insulin Dose History Report")
	y += 8

	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(marginX, y, "Generated: "+l.generatedAt.Format("1/2/2006, 3:04:05 PM"))
	pdf.Text(marginX, y+5, fmt.Sprintf("Date Range: Last %d days (%d entries)", rangeDays, len(items)))
	y += 15

	l.image(images[0], y)
	y += imageAdvance
	if y > pageBreakY {
		pdf.AddPage()
		y = topY
	}
	l.image(images[1], y)

	pdf.AddPage()
	y = topY
	l.image(images[2], y)
	y += imageAdvance
	l.image(images[3], y)

	pdf.AddPage()
	y = topY
	pdf.SetFont("Helvetica", "", 14)
	pdf.Text(marginX, y, "Detailed History")
	pdf.SetY(y + 5)
	l.table(items, loc)

	return pdf.Error()
}

func (l *layout) image(data []byte, y float64) {
	l.imageSeq++
	name := fmt.Sprintf("chart-%d", l.imageSeq)
	opts := fpdf.ImageOptions{ImageType: "JPG"}
	l.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	l.pdf.ImageOptions(name, imageX, y, imageW, imageH, false, opts, 0, "")
}

func (l *layout) table(items []history.Item, loc *time.Location) {
	pdf := l.pdf
	_, pageH := pdf.GetPageSize()
	limit := pageH - footerSpace

	l.tableHeader()
	pdf.SetFont("Helvetica", "", 9)
	for i, item := range items {
		if pdf.GetY()+rowHeight > limit {
			pdf.AddPage()
			pdf.SetY(topY)
			l.tableHeader()
			pdf.SetFont("Helvetica", "", 9)
		}

		ts := item.Timestamp.In(loc)
		row := []string{
			ts.Format("1/2/2006"),
			ts.Format("15:04"),
			fmt.Sprintf("%s %s", calculator.FormatValue(item.Inputs.CurrentBG), item.Inputs.Unit),
			calculator.FormatValue(item.Inputs.Carbs) + "g",
			calculator.FormatDose(item.Result.TotalDose) + " u",
		}

		striped := i%2 == 1
		pdf.SetFillColor(245, 245, 245)
		pdf.SetX(marginX)
		for c, text := range row {
			pdf.CellFormat(columnWidths[c], rowHeight, l.tr(text), "", 0, "L", striped, 0, "")
		}
		pdf.Ln(rowHeight)
	}
}

func (l *layout) tableHeader() {
	pdf := l.pdf
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(41, 128, 185)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetX(marginX)
	for c, text := range tableHeader {
		pdf.CellFormat(columnWidths[c], rowHeight, text, "", 0, "L", true, 0, "")
	}
	pdf.Ln(rowHeight)
	pdf.SetTextColor(0, 0, 0)
}

func (l *layout) pages() int {
	return l.pdf.PageCount()
}

func (l *layout) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := l.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
