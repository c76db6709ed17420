package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	summary []StockSummaryRow
	balance []TrialBalanceRow
	card    []StockCardRow
}

func (m *memoryStore) StockSummary(context.Context, int64) ([]StockSummaryRow, error) {
	return m.summary, nil
}

func (m *memoryStore) TrialBalance(context.Context, Period) ([]TrialBalanceRow, error) {
	return m.balance, nil
}

func (m *memoryStore) StockCard(context.Context, int64, int64, Period) ([]StockCardRow, error) {
	return m.card, nil
}

func TestWriteStockCardCSV(t *testing.T) {
	rows := []StockCardRow{
		{EntryID: 1, VariantID: 10, WarehouseID: 1, EntryType: "purchase_in", QtyChange: 5, RefKind: "purchase_lot", RefID: 3, OccurredAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{EntryID: 2, VariantID: 10, WarehouseID: 1, EntryType: "sale_out", QtyChange: -2, RefKind: "sales_order", RefID: 7, OccurredAt: time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteStockCardCSV(&buf, rows))

	parsed, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, parsed, 3)
	require.Equal(t, "entry_id", parsed[0][0])
	require.Equal(t, "purchase_in", parsed[1][3])
	require.Equal(t, "-2.00", parsed[2][4])
	require.Equal(t, "sales_order", parsed[2][5])
}

func TestWriteTrialBalanceCSVTotals(t *testing.T) {
	rows := []TrialBalanceRow{
		{AccountCode: "1200", AccountName: "Inventory", Debit: 4725.00, Credit: 0},
		{AccountCode: "2100", AccountName: "Accounts Payable", Debit: 0, Credit: 4725.00},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTrialBalanceCSV(&buf, rows))

	parsed, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, parsed, 4)
	total := parsed[3]
	require.Equal(t, "TOTAL", total[1])
	require.Equal(t, total[2], total[3])
}

func TestStockCardCSVEndpoint(t *testing.T) {
	store := &memoryStore{card: []StockCardRow{
		{EntryID: 1, VariantID: 10, WarehouseID: 1, EntryType: "adjustment", QtyChange: 1, RefKind: "adjustment", RefID: 2, OccurredAt: time.Now()},
	}}
	handler := NewHandler(testLogger(), NewService(store))

	req := httptest.NewRequest("GET", "/stock-card.csv?variant_id=10", nil)
	rec := httptest.NewRecorder()
	handler.handleStockCardCSV(rec, req)

	require.Equal(t, 200, rec.Code)
	require.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "adjustment")
}

func TestStockCardCSVEndpointRequiresVariant(t *testing.T) {
	handler := NewHandler(testLogger(), NewService(&memoryStore{}))
	req := httptest.NewRequest("GET", "/stock-card.csv", nil)
	rec := httptest.NewRecorder()
	handler.handleStockCardCSV(rec, req)
	require.Equal(t, 400, rec.Code)
}
