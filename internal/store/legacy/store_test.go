package legacy

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"trackersms/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&SmsMessage{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return New(db)
}

func TestCreateAndListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		in := CreateInput{Phone: "+5511999999999", Message: fmt.Sprintf("msg %d", i), Sender: "ops"}
		if _, err := s.Create(ctx, in, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	if got[0].Message != "msg 2" || got[0].Status != StatusPending {
		t.Fatalf("unexpected first message: %+v", got[0])
	}

	limited, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(limited))
	}
}

func TestCreateInputNormalize(t *testing.T) {
	in, err := CreateInput{Phone: " +5511999999999 ", Message: " hi "}.Normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if in.Phone != "+5511999999999" || in.Message != "hi" {
		t.Fatalf("unexpected input: %+v", in)
	}
	if _, err := (CreateInput{Phone: "+5511999999999"}).Normalize(); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation error for missing message, got %v", err)
	}
	if _, err := (CreateInput{Phone: "12", Message: "x"}).Normalize(); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation error for bad phone, got %v", err)
	}
}
