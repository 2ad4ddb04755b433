package export

import (
	"bytes"
	"fmt"
	"time"

	"dance-ops/internal/models"
	"dance-ops/internal/reconcile"
	"dance-ops/internal/util"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// StatementPDF renders a tuition statement from a reconciled view. Sections lists the
// student's active sections in schedule order.
func StatementPDF(st *models.Student, v *reconcile.View, sections []*models.Section, currency string, now time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Tuition statement", true)
	pdf.AddPage()

	// Core fonts are cp1252; names and locations arrive as UTF-8.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 8, "TUITION STATEMENT")
	pdf.Ln(10)
	pdf.SetDrawColor(78, 198, 224)
	pdf.SetLineWidth(0.5)
	pdf.Line(10, pdf.GetY(), 200, pdf.GetY())
	pdf.Ln(6)

	label := func(name, value string) {
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(45, 6, name)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, value)
		pdf.Ln(6)
	}
	label("Student:", tr(st.FullName()))
	if st.ParentName.Valid {
		label("Parent:", tr(st.ParentName.String))
	}
	label("Location:", tr(st.Location))
	label("Session:", tr(dash(v.SessionLabel)))
	label("Start date:", dash(util.FormatDate(v.StartDate)))
	label("Classes per week:", fmt.Sprint(v.Frequency))
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(78, 198, 224)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(40, 8, "DAY", "1", 0, "L", true, 0, "")
	pdf.CellFormat(70, 8, "CLASS", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "SESSION", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "TIME", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "STARTS", "1", 1, "C", true, 0, "")
	pdf.SetTextColor(0, 0, 0)

	pdf.SetFont("Arial", "", 9)
	pdf.SetFillColor(245, 245, 245)
	for i, sec := range sections {
		fill := i%2 == 0
		starts := util.FormatDate(v.StartDates[sec.Day])
		pdf.CellFormat(40, 7, sec.Day.Title(), "1", 0, "L", fill, 0, "")
		pdf.CellFormat(70, 7, tr(sec.Name), "1", 0, "L", fill, 0, "")
		pdf.CellFormat(25, 7, tr(sec.Label), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(25, 7, dash(sec.StartTime.String), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(30, 7, dash(starts), "1", 1, "C", fill, 0, "")
	}
	if len(sections) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.Cell(0, 10, "No active classes.")
		pdf.Ln(10)
	}
	pdf.Ln(6)

	label("Payment status:", models.GetStatusDisplayInfo(string(v.PaymentStatus)).DisplayName)
	if v.Priced {
		label("Tuition:", money(currency, v.Price))
	} else {
		label("Tuition:", "not priced, contact the office")
	}
	label("Amount paid:", money(currency, v.AmountPaid))
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(45, 8, "Amount owed:")
	pdf.Cell(0, 8, money(currency, v.AmountOwed))
	pdf.Ln(14)

	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(100, 100, 100)
	pdf.Cell(0, 5, fmt.Sprintf("Generated on %s", now.Format("January 02, 2006 at 3:04 PM")))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render statement: %w", err)
	}
	return buf.Bytes(), nil
}

func money(currency string, d decimal.Decimal) string {
	return currency + " " + d.StringFixed(2)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
