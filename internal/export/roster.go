package export

import (
	"fmt"
	"strconv"
	"strings"

	"dance-ops/internal/enrollment"
	"dance-ops/internal/models"
	"dance-ops/internal/util"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const RosterSheet = "Roster"

var rosterHeader = []interface{}{
	"Student", "Parent", "Email", "Phone", "Location", "Days", "Session",
	"Start Date", "Frequency", "Payment Status", "Amount Paid", "Amount Owed", "Priced",
}

// RosterXLSX renders one row per student from the stored view columns, followed by a
// totals row.
func RosterXLSX(students []*models.Student) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RosterSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(RosterSheet, "A1", &rosterHeader); err != nil {
		return nil, err
	}

	lastCol, err := excelize.ColumnNumberToName(len(rosterHeader))
	if err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6E6"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(RosterSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, err
	}

	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, err
	}

	totalPaid, totalOwed := decimal.Zero, decimal.Zero
	for i, st := range students {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []interface{}{
			st.FullName(),
			st.ParentName.String,
			st.ParentEmail.String,
			st.ParentPhone.String,
			st.Location,
			displayDays(st.View.SelectedDays),
			st.View.SessionLabel,
			util.FormatNullDate(st.View.StartDate),
			st.View.Frequency,
			models.GetStatusDisplayInfo(string(st.PaymentStatus)).DisplayName,
			st.AmountPaid.InexactFloat64(),
			st.View.AmountOwed.InexactFloat64(),
			yesNo(st.View.Priced),
		}
		if err := f.SetSheetRow(RosterSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		totalPaid = totalPaid.Add(st.AmountPaid)
		totalOwed = totalOwed.Add(st.View.AmountOwed)
	}

	totalRow := len(students) + 2
	cell, _ := excelize.CoordinatesToCellName(1, totalRow)
	totals := []interface{}{fmt.Sprintf("Total (%d students)", len(students))}
	for len(totals) < 10 {
		totals = append(totals, nil)
	}
	totals = append(totals, totalPaid.InexactFloat64(), totalOwed.InexactFloat64())
	if err := f.SetSheetRow(RosterSheet, cell, &totals); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(RosterSheet, "A"+itoa(totalRow), lastCol+itoa(totalRow), headerStyle); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(RosterSheet, "K2", "L"+itoa(totalRow), moneyStyle); err != nil {
		return nil, err
	}

	if err := f.SetColWidth(RosterSheet, "A", lastCol, 16); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(RosterSheet, "C", "C", 28); err != nil {
		return nil, err
	}
	if err := f.SetPanes(RosterSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}
	if len(students) > 0 {
		if err := f.AutoFilter(RosterSheet, "A1:"+lastCol+itoa(totalRow-1), nil); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write roster: %w", err)
	}
	return buf.Bytes(), nil
}

func displayDays(stored string) string {
	days, err := enrollment.SplitDays(stored)
	if err != nil {
		return stored
	}
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.Title()
	}
	return strings.Join(names, ", ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
