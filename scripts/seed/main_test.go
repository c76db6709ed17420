package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func ddlFor(t *testing.T, table string) string {
	t.Helper()
	marker := "CREATE TABLE IF NOT EXISTS " + table + " ("
	for _, stmt := range schemaStatements {
		if strings.HasPrefix(stmt, marker) {
			return stmt
		}
	}
	t.Fatalf("no CREATE TABLE statement for %s", table)
	return ""
}

func TestSchemaCoversReadColumns(t *testing.T) {
	// Columns the repositories select. Dropping one here breaks reads at
	// runtime, so keep this list in sync with internal/inventory/repository.go.
	cases := map[string][]string{
		"inventory_batches": {
			"id", "variant_id", "warehouse_id", "cost_price",
			"initial_qty", "remaining_qty", "received_at", "created_at",
		},
		"stock_ledger": {
			"id", "variant_id", "warehouse_id", "batch_id", "entry_type",
			"qty_change", "ref_kind", "ref_id", "note", "occurred_at", "created_at",
		},
		"journal_entries": {
			"id", "number", "date", "source_module", "source_id",
			"memo", "posted_by", "posted_at", "reverses_id", "created_at",
		},
		"journal_lines": {
			"id", "je_id", "account_id", "debit", "credit", "created_at",
		},
	}
	for table, cols := range cases {
		ddl := ddlFor(t, table)
		for _, col := range cols {
			require.Contains(t, ddl, "\n\t\t"+col+" ", "%s missing column %s", table, col)
		}
	}
}
