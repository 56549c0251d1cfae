// Package legacy serves the pre-history sms_messages table kept for the
// /api/sms endpoints. It is independent of the history store.
package legacy

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"trackersms/internal/domain"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
	StatusPending    = "pending"
)

type SmsMessage struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Phone     string    `gorm:"size:20;not null" json:"phone"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Sender    string    `gorm:"size:100" json:"sender"`
	Status    string    `gorm:"size:20;not null;default:pending" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SmsMessage) TableName() string { return "sms_messages" }

type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{DB: db} }

// OpenOnPool opens gorm on top of an existing pgx pool so both stores share
// one set of connections. The returned *sql.DB is closed by the caller
// before the pool itself.
func OpenOnPool(pool *pgxpool.Pool) (*gorm.DB, *sql.DB, error) {
	sqlDB := stdlib.OpenDBFromPool(pool)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, err
	}
	return db, sqlDB, nil
}

// List returns the newest messages first.
func (s *Store) List(ctx context.Context, limit int) ([]SmsMessage, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	out := []SmsMessage{}
	err := s.DB.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}

type CreateInput struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

func (in CreateInput) Normalize() (CreateInput, error) {
	in.Phone = domain.NormalizePhone(in.Phone)
	in.Message = strings.TrimSpace(in.Message)
	in.Sender = strings.TrimSpace(in.Sender)
	if in.Phone == "" || in.Message == "" {
		return in, domain.Validation("Phone and message are required", nil)
	}
	if !domain.ValidPhone(in.Phone) {
		return in, domain.Validation("Invalid phone number format", map[string]any{"invalidNumbers": []string{in.Phone}})
	}
	return in, nil
}

func (s *Store) Create(ctx context.Context, in CreateInput, now time.Time) (SmsMessage, error) {
	m := SmsMessage{
		Phone:     in.Phone,
		Message:   in.Message,
		Sender:    in.Sender,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.DB.WithContext(ctx).Create(&m).Error; err != nil {
		return SmsMessage{}, err
	}
	return m, nil
}
