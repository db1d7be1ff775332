package memory

import (
	"context"
	"testing"

	"ledger/internal/sheets"
)

func TestMirror_UpsertAndClear(t *testing.T) {
	m := New()
	ctx := context.Background()

	if _, err := m.UpsertRow(ctx, sheets.Row{HistoryID: 2, Content: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.UpsertRow(ctx, sheets.Row{HistoryID: 1, Content: "b"}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.UpsertRow(ctx, sheets.Row{HistoryID: 2, Content: "c"}); err != nil {
		t.Fatal(err)
	}

	rows := m.Rows()
	if len(rows) != 2 || rows[0].HistoryID != 1 || rows[1].Content != "c" {
		t.Fatalf("rows = %+v", rows)
	}

	if err := m.ClearRow(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if err := m.ClearRow(ctx, 2); err != nil {
		t.Fatal("clearing twice must not fail")
	}
	if len(m.Rows()) != 1 {
		t.Fatalf("rows after clear = %+v", m.Rows())
	}

	if _, err := m.UpsertRow(ctx, sheets.Row{}); err == nil {
		t.Fatal("expected error for zero id")
	}
}
