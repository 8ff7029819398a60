package memory

import (
	"context"
	"testing"

	"salesreport/internal/core"
)

func TestExporterExportAndReports(t *testing.T) {
	e := New()
	rep := core.Report{
		Months:   []core.Month{core.NewMonth(2023, 1)},
		TopItems: []core.ItemRank{{Name: "Beans", Units: 2}},
		Units:    map[string][]int64{"Beans": {2}},
		Revenue:  []core.Money{{Cents: 2400}},
	}

	ref, err := e.ExportReport(context.Background(), rep)
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}
	ref, _ = e.ExportReport(context.Background(), rep)
	if ref != "mem:2" {
		t.Fatalf("expected mem:2, got %q", ref)
	}
	if got := e.Reports(); len(got) != 2 || got[0].TopItems[0].Name != "Beans" {
		t.Fatalf("unexpected reports: %+v", got)
	}
}

func TestExporterRejectsEmptyReport(t *testing.T) {
	e := New()
	if _, err := e.ExportReport(context.Background(), core.Report{}); err == nil {
		t.Fatal("expected error for empty report")
	}
	if len(e.Reports()) != 0 {
		t.Fatal("empty report must not be stored")
	}
}
