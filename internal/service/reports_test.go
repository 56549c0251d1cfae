package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"trackersms/internal/domain"
	"trackersms/internal/store"
	"trackersms/internal/store/memstore"
)

func seedHistory(t *testing.T, st *memstore.Store, modelID int64, status string, at time.Time, phone string) {
	t.Helper()
	_, err := st.InsertHistory(context.Background(), store.HistoryInsert{
		PhoneNumber: phone,
		ModelID:     modelID,
		CommandText: "STATUS123456",
		Status:      status,
		Notes:       `said "hi", left`,
		SentAt:      at,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestStats(t *testing.T) {
	reg, st := newRegistry()
	tk := mustModel(t, reg, "TK103")
	gt := mustModel(t, reg, "GT06")

	seedHistory(t, st, tk.ID, "sent", fixedNow.Add(-time.Hour), "+5511999999999")
	seedHistory(t, st, tk.ID, "sent", fixedNow.Add(-25*time.Hour), "+5511999999999")
	seedHistory(t, st, gt.ID, "failed", fixedNow.Add(-26*time.Hour), "+5511888888888")
	seedHistory(t, st, gt.ID, "sent", fixedNow.Add(-30*24*time.Hour), "+5511777777777")

	r := &Reports{Store: st, Now: func() time.Time { return fixedNow }}
	stats, err := r.Stats(context.Background(), 0)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PeriodDays != domain.DefaultStatsPeriod {
		t.Fatalf("expected default period, got %d", stats.PeriodDays)
	}
	s := stats.Summary
	if s.Total != 3 || s.Sent != 2 || s.Failed != 1 || s.UniquePhones != 2 || s.ModelsUsed != 2 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.SuccessRate != 66.67 {
		t.Fatalf("expected 66.67, got %v", s.SuccessRate)
	}
	if len(stats.Daily) != 2 || stats.Daily[0].Date != "2026-05-10" || stats.Daily[1].Total != 2 {
		t.Fatalf("unexpected daily rows: %+v", stats.Daily)
	}
	if len(stats.TopModels) != 2 || stats.TopModels[0].ModelName != "TK103" || stats.TopModels[0].Count != 2 {
		t.Fatalf("unexpected top models: %+v", stats.TopModels)
	}
}

func TestStatsPeriodBounds(t *testing.T) {
	_, st := newRegistry()
	r := &Reports{Store: st, Now: func() time.Time { return fixedNow }}
	for _, p := range []int{-1, 366} {
		if _, err := r.Stats(context.Background(), p); domain.KindOf(err) != domain.KindValidation {
			t.Fatalf("period %d: expected validation error, got %v", p, err)
		}
	}
	stats, err := r.Stats(context.Background(), 1)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Summary.SuccessRate != 0 || stats.Daily == nil || stats.TopModels == nil {
		t.Fatalf("empty window should give zero rate and empty lists: %+v", stats)
	}
}

func TestSuccessRateRounding(t *testing.T) {
	cases := []struct {
		sent, total int64
		want        float64
	}{
		{0, 0, 0},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{9, 10, 90},
	}
	for _, c := range cases {
		if got := successRate(c.sent, c.total); got != c.want {
			t.Fatalf("successRate(%d, %d) = %v, want %v", c.sent, c.total, got, c.want)
		}
	}
}

func TestExportAndWriteCSV(t *testing.T) {
	reg, st := newRegistry()
	tk := mustModel(t, reg, "TK103")
	seedHistory(t, st, tk.ID, "sent", fixedNow.Add(-time.Hour), "+5511999999999")
	seedHistory(t, st, tk.ID, "sent", fixedNow.Add(-40*24*time.Hour), "+5511888888888")

	r := &Reports{Store: st, Now: func() time.Time { return fixedNow }}
	rows, err := r.Export(context.Background(), 0)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("default window should hold one row, got %d", len(rows))
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", buf.String())
	}
	if lines[0] != `"Phone Number","Model","Command","Status","Sent At","Notes","Details"` {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	want := `"+5511999999999","TK103","STATUS123456","sent","2026-05-10T08:30:00Z","said ""hi"", left",""`
	if lines[1] != want {
		t.Fatalf("unexpected row:\n got %s\nwant %s", lines[1], want)
	}
}

func TestCSVFilename(t *testing.T) {
	if got := CSVFilename(fixedNow); got != "sms-history-2026-05-10.csv" {
		t.Fatalf("unexpected filename %q", got)
	}
}
