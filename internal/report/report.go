// Package report renders a session's trade history as a spreadsheet.
package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"papertrader/internal/domain"
)

// XLSXContentType is the MIME type of the generated workbook.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SheetName is the only sheet in the workbook.
const SheetName = "History"

var header = []string{"Day", "Date", "Action", "Amount", "Price", "Value"}

// FileName returns the download name for a session's export.
func FileName(state domain.SessionState) string {
	ticker := strings.ToLower(state.Ticker)
	if ticker == "" {
		ticker = "session"
	}
	if state.StartDate == "" {
		return ticker + "-history.xlsx"
	}
	return fmt.Sprintf("%s-%s-history.xlsx", ticker, state.StartDate)
}

// HistoryXLSX writes one row per trade record followed by the cash and share
// balances of the session.
func HistoryXLSX(state domain.SessionState) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{"#cfe2f3"},
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SheetName, "A1", "F1", headerStyle); err != nil {
		return nil, err
	}

	days := dayNumbers(state.PriceSeries)
	for i, tr := range state.TradeHistory {
		row := []any{
			days[tr.Date],
			tr.Date,
			string(tr.Action),
			tr.Amount.InexactFloat64(),
			tr.Price.InexactFloat64(),
			Value(tr).InexactFloat64(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, err
		}
	}

	footer := len(state.TradeHistory) + 3
	if err := setFooter(f, footer, "Ticker", state.Ticker); err != nil {
		return nil, err
	}
	if err := setFooter(f, footer+1, "Cash", state.CashBalance.Round(2).InexactFloat64()); err != nil {
		return nil, err
	}
	if err := setFooter(f, footer+2, "Shares", state.SharesHeld.InexactFloat64()); err != nil {
		return nil, err
	}

	_ = f.SetColWidth(SheetName, "B", "B", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setFooter(f *excelize.File, row int, label string, value any) error {
	if err := f.SetCellStr(SheetName, fmt.Sprintf("A%d", row), label); err != nil {
		return err
	}
	return f.SetCellValue(SheetName, fmt.Sprintf("B%d", row), value)
}

// dayNumbers maps each price date to its 1-based day in the window.
func dayNumbers(series []domain.PricePoint) map[string]int {
	days := make(map[string]int, len(series))
	for i, p := range series {
		days[p.Date] = i + 1
	}
	return days
}

// Value is the notional value of a trade record, rounded to cents.
func Value(tr domain.TradeRecord) decimal.Decimal {
	return tr.Price.Mul(tr.Amount).Round(2)
}
