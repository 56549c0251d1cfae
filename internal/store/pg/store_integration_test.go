//go:build integration
// +build integration

package pg

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"trackersms/internal/domain"
	"trackersms/internal/store"
)

func TestModelNameUnique(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStore(t)
	defer cleanup()

	now := time.Now().UTC()
	if _, err := s.CreateModel(ctx, domain.ModelInput{Name: "TK103"}, now); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := s.CreateModel(ctx, domain.ModelInput{Name: "TK103"}, now)
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}

func TestCommandPairUniqueAndScopedToModel(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStore(t)
	defer cleanup()

	now := time.Now().UTC()
	a, _ := s.CreateModel(ctx, domain.ModelInput{Name: "A"}, now)
	b, _ := s.CreateModel(ctx, domain.ModelInput{Name: "B"}, now)

	if _, err := s.CreateCommand(ctx, domain.CommandInput{ModelID: a.ID, CommandText: "RESET"}, now); err != nil {
		t.Fatalf("create a: %v", err)
	}
	if _, err := s.CreateCommand(ctx, domain.CommandInput{ModelID: b.ID, CommandText: "RESET"}, now); err != nil {
		t.Fatalf("same text under another model must be allowed: %v", err)
	}
	_, err := s.CreateCommand(ctx, domain.CommandInput{ModelID: a.ID, CommandText: "RESET"}, now)
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	_, err = s.CreateCommand(ctx, domain.CommandInput{ModelID: 999999, CommandText: "X"}, now)
	if !errors.Is(err, store.ErrMissingReference) {
		t.Fatalf("expected missing reference, got %v", err)
	}
}

func TestListModelsCountsCommands(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStore(t)
	defer cleanup()

	now := time.Now().UTC()
	m, _ := s.CreateModel(ctx, domain.ModelInput{Name: "GT06", Description: "tracker"}, now)
	_, _ = s.CreateCommand(ctx, domain.CommandInput{ModelID: m.ID, CommandText: "RESET#"}, now)
	_, _ = s.CreateCommand(ctx, domain.CommandInput{ModelID: m.ID, CommandText: "WHERE#", Description: "position"}, now)
	_, _ = s.CreateModel(ctx, domain.ModelInput{Name: "Empty"}, now)

	models, err := s.ListModels(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	counts := map[string]int{}
	for _, m := range models {
		counts[m.Name] = m.CommandCount
	}
	if counts["GT06"] != 2 || counts["Empty"] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	cmds, err := s.ListCommandsByModel(ctx, m.ID)
	if err != nil {
		t.Fatalf("list commands: %v", err)
	}
	if len(cmds) != 2 || cmds[1].CommandText != "WHERE#" || cmds[1].Description != "position" || cmds[1].ModelName != "GT06" {
		t.Fatalf("unexpected commands: %+v", cmds)
	}
}

func TestUpdateAndDeleteNotFound(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStore(t)
	defer cleanup()

	now := time.Now().UTC()
	if _, err := s.UpdateModel(ctx, 424242, domain.ModelInput{Name: "X"}, now); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.DeleteModel(ctx, 424242); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.UpdateCommand(ctx, 424242, domain.CommandInput{CommandText: "X"}, now); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.DeleteCommand(ctx, 424242); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.GetCommand(ctx, 424242); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHistoryFiltersNeverIncreaseCount(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStore(t)
	defer cleanup()

	now := time.Now().UTC()
	m, _ := s.CreateModel(ctx, domain.ModelInput{Name: "TK103"}, now)
	for i := 0; i < 12; i++ {
		status := string(domain.StatusSent)
		if i%3 == 0 {
			status = string(domain.StatusFailed)
		}
		_, err := s.InsertHistory(ctx, store.HistoryInsert{
			PhoneNumber:  fmt.Sprintf("+55119999900%02d", i),
			ModelID:      m.ID,
			CommandText:  "STATUS123456",
			Status:       status,
			Notes:        "batch",
			ResponseData: map[string]any{"i": i},
			SentAt:       now.Add(-time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("insert history: %v", err)
		}
	}

	var tableCount int64
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM sms_history`).Scan(&tableCount); err != nil {
		t.Fatalf("count: %v", err)
	}
	_, total, err := s.ListHistory(ctx, domain.HistoryFilter{}, 1, 50)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != tableCount {
		t.Fatalf("unfiltered total %d != table count %d", total, tableCount)
	}

	from := now.Add(-5 * time.Hour)
	filters := []domain.HistoryFilter{
		{Status: "failed"},
		{ModelID: &m.ID},
		{PhoneNumber: "99900"},
		{DateFrom: &from},
		{Search: "status"},
		{Status: "failed", Search: "nothing-matches"},
	}
	for _, f := range filters {
		_, n, err := s.ListHistory(ctx, f, 1, 50)
		if err != nil {
			t.Fatalf("list %+v: %v", f, err)
		}
		if n > total {
			t.Fatalf("filter %+v increased count: %d > %d", f, n, total)
		}
	}

	rows, n, err := s.ListHistory(ctx, domain.HistoryFilter{Status: "failed"}, 2, 2)
	if err != nil {
		t.Fatalf("list failed page: %v", err)
	}
	if n != 4 || len(rows) != 2 {
		t.Fatalf("expected 4 failed rows and a page of 2, got %d/%d", n, len(rows))
	}
	if rows[0].SentAt.Before(rows[1].SentAt) {
		t.Fatalf("rows must be newest first")
	}
	if rows[0].ModelName != "TK103" || len(rows[0].ResponseData) == 0 {
		t.Fatalf("expected joined model name and payload: %+v", rows[0])
	}
}

func TestHistorySurvivesModelDeletion(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStore(t)
	defer cleanup()

	now := time.Now().UTC()
	m, _ := s.CreateModel(ctx, domain.ModelInput{Name: "Temp"}, now)
	if _, err := s.InsertHistory(ctx, store.HistoryInsert{
		PhoneNumber: "+5511999999999", ModelID: m.ID, CommandText: "RESET", Status: "sent", SentAt: now,
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.DeleteModel(ctx, m.ID); err != nil {
		t.Fatalf("delete model: %v", err)
	}
	rows, _, err := s.ListHistory(ctx, domain.HistoryFilter{ModelID: &m.ID}, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].ModelID == nil || *rows[0].ModelID != m.ID || rows[0].ModelName != "" {
		t.Fatalf("expected orphaned row with preserved model id: %+v", rows)
	}
}

func TestStatsAndExport(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStore(t)
	defer cleanup()

	now := time.Now().UTC()
	a, _ := s.CreateModel(ctx, domain.ModelInput{Name: "A"}, now)
	b, _ := s.CreateModel(ctx, domain.ModelInput{Name: "B"}, now)
	insert := func(phone string, model int64, status string, at time.Time) {
		t.Helper()
		if _, err := s.InsertHistory(ctx, store.HistoryInsert{
			PhoneNumber: phone, ModelID: model, CommandText: "C", Status: status, SentAt: at,
		}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	insert("+5511000000001", a.ID, "sent", now)
	insert("+5511000000001", a.ID, "failed", now)
	insert("+5511000000002", b.ID, "sent", now.Add(-24*time.Hour))
	insert("+5511000000003", a.ID, "sent", now.Add(-40*24*time.Hour))

	since := now.Add(-7 * 24 * time.Hour)
	sum, err := s.SummaryStats(ctx, since)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Total != 3 || sum.Sent != 2 || sum.Failed != 1 || sum.UniquePhones != 2 || sum.ModelsUsed != 2 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	daily, err := s.DailyStats(ctx, since)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	var dailyTotal int64
	for _, d := range daily {
		dailyTotal += d.Total
	}
	if dailyTotal != 3 {
		t.Fatalf("daily totals must add up to the summary, got %d", dailyTotal)
	}

	top, err := s.TopModels(ctx, since, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].ModelName != "A" || top[0].Count != 2 {
		t.Fatalf("unexpected top models: %+v", top)
	}

	rows, err := s.ExportHistory(ctx, since)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 export rows, got %d", len(rows))
	}
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStore(t)
	defer cleanup()

	if err := s.EnsureSchema(ctx, true); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := s.EnsureSchema(ctx, true); err != nil {
		t.Fatalf("seed again: %v", err)
	}
	models, err := s.ListModels(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(models) != len(demoModels) {
		t.Fatalf("expected %d seeded models, got %d", len(demoModels), len(models))
	}
}

func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = os.Getenv("DB_DSN")
	}
	if dsn == "" {
		t.Skip("TEST_DB_DSN or DB_DSN not set")
	}

	schemaName := fmt.Sprintf("test_%d", time.Now().UnixNano())
	admin, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect admin db: %v", err)
	}
	if _, err := admin.Exec(context.Background(), "CREATE SCHEMA "+schemaName); err != nil {
		admin.Close()
		t.Fatalf("create schema: %v", err)
	}

	dbDSN, err := withSearchPath(dsn, schemaName)
	if err != nil {
		admin.Close()
		t.Fatalf("build dsn: %v", err)
	}
	db, err := pgxpool.New(context.Background(), dbDSN)
	if err != nil {
		admin.Close()
		t.Fatalf("connect test db: %v", err)
	}

	s := New(db)
	if err := s.EnsureSchema(context.Background(), false); err != nil {
		db.Close()
		admin.Close()
		t.Fatalf("apply schema: %v", err)
	}

	cleanup := func() {
		db.Close()
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schemaName+" CASCADE")
		admin.Close()
	}
	return s, cleanup
}

func withSearchPath(dsn, schema string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	q := u.Query()
	opts := q.Get("options")
	if opts != "" {
		opts = opts + " -c search_path=" + schema
	} else {
		opts = "-c search_path=" + schema
	}
	q.Set("options", opts)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
