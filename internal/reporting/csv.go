package reporting

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// WriteStockCardCSV streams a stock card as CSV.
func WriteStockCardCSV(w io.Writer, rows []StockCardRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"entry_id", "variant_id", "warehouse_id", "entry_type", "qty_change", "ref_kind", "ref_id", "note", "occurred_at"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			printer.Sprintf("%d", row.EntryID),
			printer.Sprintf("%d", row.VariantID),
			printer.Sprintf("%d", row.WarehouseID),
			row.EntryType,
			printer.Sprintf("%.2f", row.QtyChange),
			row.RefKind,
			printer.Sprintf("%d", row.RefID),
			row.Note,
			row.OccurredAt.Format("2006-01-02 15:04:05"),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTrialBalanceCSV streams a trial balance as CSV with a totals row.
func WriteTrialBalanceCSV(w io.Writer, rows []TrialBalanceRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"account_code", "account_name", "debit", "credit"}); err != nil {
		return err
	}
	var totalDebit, totalCredit float64
	for _, row := range rows {
		record := []string{
			row.AccountCode,
			row.AccountName,
			printer.Sprintf("%.2f", row.Debit),
			printer.Sprintf("%.2f", row.Credit),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
		totalDebit += row.Debit
		totalCredit += row.Credit
	}
	if err := cw.Write([]string{"", "TOTAL", printer.Sprintf("%.2f", totalDebit), printer.Sprintf("%.2f", totalCredit)}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
