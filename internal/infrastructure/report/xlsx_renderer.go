// Package report renders reconciliation reports as Excel workbooks.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	settlementapp "github.com/smashburgertza/astralinelogistics-sub006/internal/application/settlement"
	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary    = "Summary"
	SheetAccounts   = "Accounts"
	SheetPayments   = "Payments Without Journal"
	SheetUnexported = "Unexported Entries"

	moneyFormat = "#,##0.0000"
	timeLayout  = "2006-01-02 15:04:05"
)

// XLSXRenderer writes one sheet per report section
type XLSXRenderer struct{}

// NewXLSXRenderer creates a renderer
func NewXLSXRenderer() *XLSXRenderer {
	return &XLSXRenderer{}
}

type sheetWriter struct {
	f      *excelize.File
	header int
	money  int
	drift  int
	err    error
}

func (w *sheetWriter) set(sheet string, col, row int, value any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	switch v := value.(type) {
	case decimal.Decimal:
		w.err = w.f.SetCellFloat(sheet, cell, v.InexactFloat64(), -1, 64)
		if w.err == nil {
			w.err = w.f.SetCellStyle(sheet, cell, cell, w.money)
		}
	case time.Time:
		w.err = w.f.SetCellStr(sheet, cell, v.UTC().Format(timeLayout))
	case *time.Time:
		if v != nil {
			w.err = w.f.SetCellStr(sheet, cell, v.UTC().Format(timeLayout))
		}
	default:
		w.err = w.f.SetCellValue(sheet, cell, value)
	}
}

func (w *sheetWriter) headerRow(sheet string, titles ...string) {
	if w.err != nil {
		return
	}
	for i, title := range titles {
		w.set(sheet, i+1, 1, title)
	}
	last, _ := excelize.CoordinatesToCellName(len(titles), 1)
	if w.err == nil {
		w.err = w.f.SetCellStyle(sheet, "A1", last, w.header)
	}
	if w.err == nil {
		w.err = w.f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}
}

func (w *sheetWriter) highlight(sheet string, row, cols int) {
	if w.err != nil {
		return
	}
	last, _ := excelize.CoordinatesToCellName(cols, row)
	w.err = w.f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), last, w.drift)
}

// Render builds the workbook and returns its bytes
func (r *XLSXRenderer) Render(rep *settlementapp.ReconciliationReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	w := &sheetWriter{f: f}
	var err error
	if w.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DCE6F1"}, Pattern: 1},
	}); err != nil {
		return nil, err
	}
	if w.money, err = f.NewStyle(&excelize.Style{CustomNumFmt: ptr(moneyFormat)}); err != nil {
		return nil, err
	}
	if w.drift, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Color: "9A0511"},
		CustomNumFmt: ptr(moneyFormat),
	}); err != nil {
		return nil, err
	}

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetAccounts, SheetPayments, SheetUnexported} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	writeSummary(w, rep)
	writeAccounts(w, rep.Accounts)
	writePayments(w, rep.PaymentsWithoutJournal)
	writeUnexported(w, rep.UnexportedEntries)
	if w.err != nil {
		return nil, fmt.Errorf("failed to render reconciliation report: %w", w.err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(w *sheetWriter, rep *settlementapp.ReconciliationReport) {
	rows := [][2]any{
		{"Tenant", rep.TenantID.String()},
		{"Generated at", rep.GeneratedAt},
		{"Accounts with drift", rep.Summary.AccountsWithDrift},
		{"Payments without journal", rep.Summary.PaymentsWithoutJournal},
		{"Unexported entries", rep.Summary.UnexportedEntries},
		{"Clean", rep.Clean()},
	}
	w.headerRow(SheetSummary, "Item", "Value")
	for i, row := range rows {
		w.set(SheetSummary, 1, i+2, row[0])
		w.set(SheetSummary, 2, i+2, row[1])
	}
}

func writeAccounts(w *sheetWriter, accounts []settlementapp.AccountReconciliation) {
	titles := []string{"Account", "Ledger code", "Currency", "Opening", "Running balance", "Ledger balance", "Drift", "Last reconciled"}
	w.headerRow(SheetAccounts, titles...)
	for i, a := range accounts {
		row := i + 2
		w.set(SheetAccounts, 1, row, a.Name)
		w.set(SheetAccounts, 2, row, a.LedgerAccountCode)
		w.set(SheetAccounts, 3, row, a.Currency)
		w.set(SheetAccounts, 4, row, a.OpeningBalance)
		w.set(SheetAccounts, 5, row, a.RunningBalance)
		w.set(SheetAccounts, 6, row, a.LedgerBalance)
		w.set(SheetAccounts, 7, row, a.Drift)
		w.set(SheetAccounts, 8, row, a.LastReconciledAt)
		if a.HasDrift {
			w.highlight(SheetAccounts, row, len(titles))
		}
	}
}

func writePayments(w *sheetWriter, payments []settlementapp.PaymentResponse) {
	w.headerRow(SheetPayments, "Payment", "Settlement", "Invoice", "Method", "Reference", "Currency", "Amount", "Status", "Recorded at")
	for i, p := range payments {
		row := i + 2
		w.set(SheetPayments, 1, row, p.ID.String())
		w.set(SheetPayments, 2, row, p.SettlementID.String())
		w.set(SheetPayments, 3, row, p.InvoiceID.String())
		w.set(SheetPayments, 4, row, p.Method)
		w.set(SheetPayments, 5, row, p.Reference)
		w.set(SheetPayments, 6, row, p.Currency)
		w.set(SheetPayments, 7, row, p.Amount)
		w.set(SheetPayments, 8, row, p.Status)
		w.set(SheetPayments, 9, row, p.CreatedAt)
	}
}

func writeUnexported(w *sheetWriter, entries []settlementapp.UnexportedEntry) {
	w.headerRow(SheetUnexported, "Entry", "Invoice", "Payment", "Description", "Amount (base)", "Posted at")
	for i, e := range entries {
		row := i + 2
		w.set(SheetUnexported, 1, row, e.EntryNumber)
		w.set(SheetUnexported, 2, row, e.InvoiceID.String())
		if e.PaymentID != nil {
			w.set(SheetUnexported, 3, row, e.PaymentID.String())
		}
		w.set(SheetUnexported, 4, row, e.Description)
		w.set(SheetUnexported, 5, row, e.Amount)
		w.set(SheetUnexported, 6, row, e.PostedAt)
	}
}

func ptr[T any](v T) *T { return &v }

var _ settlementapp.ReportRenderer = (*XLSXRenderer)(nil)
