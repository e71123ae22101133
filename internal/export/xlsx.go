// Package export renders a user's ledger as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"fintrack/internal/core"
)

const (
	SheetTransactions = "Transactions"
	SheetAccounts     = "Accounts"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	transactionHeader = []any{"Ref", "Date", "Account", "Type", "Category", "Description", "Amount", "Tags", "Note"}
	accountHeader     = []any{"Name", "Type", "Currency", "Initial balance", "Balance", "Active", "DPS"}
)

// WriteTransactions writes a workbook with a transactions sheet (newest
// first) and an accounts sheet to w.
func WriteTransactions(w io.Writer, accounts []core.Account, txs []core.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetTransactions); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetAccounts); err != nil {
		return fmt.Errorf("create accounts sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E0E0E0"}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("money style: %w", err)
	}

	names := make(map[uuid.UUID]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}

	sorted := slices.Clone(txs)
	slices.SortStableFunc(sorted, func(a, b core.Transaction) int { return b.Date.Compare(a.Date) })

	rows := make([][]any, 0, len(sorted))
	for _, t := range sorted {
		amount, _ := t.Signed().Float64()
		rows = append(rows, []any{
			t.Ref, t.Date.UTC().Format(time.DateOnly), names[t.AccountID], string(t.Type),
			t.Category, t.Description, amount, strings.Join(t.Tags, ", "), t.Note,
		})
	}
	if err := writeSheet(f, SheetTransactions, transactionHeader, rows, header, money, "G"); err != nil {
		return err
	}

	rows = rows[:0]
	for _, a := range accounts {
		initial, _ := a.InitialBalance.Float64()
		balance, _ := a.CalculatedBalance.Float64()
		rows = append(rows, []any{a.Name, string(a.Type), a.Currency, initial, balance, a.IsActive, a.DPSEnabled()})
	}
	if err := writeSheet(f, SheetAccounts, accountHeader, rows, header, money, "D", "E"); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any, headerStyle, moneyStyle int, moneyCols ...string) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	if len(rows) > 0 {
		for _, col := range moneyCols {
			if err := f.SetCellStyle(sheet, col+"2", fmt.Sprintf("%s%d", col, len(rows)+1), moneyStyle); err != nil {
				return fmt.Errorf("%s money style: %w", sheet, err)
			}
		}
	}
	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 16); err != nil {
		return fmt.Errorf("%s column width: %w", sheet, err)
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}
