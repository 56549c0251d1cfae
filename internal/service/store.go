package service

import (
	"context"
	"time"

	"trackersms/internal/domain"
	"trackersms/internal/store"
)

type ModelStore interface {
	ListModels(ctx context.Context) ([]domain.DeviceModel, error)
	GetModel(ctx context.Context, id int64) (domain.DeviceModel, error)
	CreateModel(ctx context.Context, in domain.ModelInput, now time.Time) (domain.DeviceModel, error)
	UpdateModel(ctx context.Context, id int64, in domain.ModelInput, now time.Time) (domain.DeviceModel, error)
	DeleteModel(ctx context.Context, id int64) error
	CountCommands(ctx context.Context, modelID int64) (int, error)
}

type CommandStore interface {
	ListCommands(ctx context.Context) ([]domain.Command, error)
	ListCommandsByModel(ctx context.Context, modelID int64) ([]domain.Command, error)
	GetCommand(ctx context.Context, id int64) (domain.Command, error)
	CreateCommand(ctx context.Context, in domain.CommandInput, now time.Time) (domain.Command, error)
	UpdateCommand(ctx context.Context, id int64, in domain.CommandInput, now time.Time) (domain.Command, error)
	DeleteCommand(ctx context.Context, id int64) error
}

type RegistryStore interface {
	ModelStore
	CommandStore
}

type HistoryStore interface {
	GetModel(ctx context.Context, id int64) (domain.DeviceModel, error)
	InsertHistory(ctx context.Context, in store.HistoryInsert) (int64, error)
	ListHistory(ctx context.Context, f domain.HistoryFilter, page, limit int) ([]domain.SmsHistory, int64, error)
}

type ReportStore interface {
	DailyStats(ctx context.Context, since time.Time) ([]domain.DailyStat, error)
	SummaryStats(ctx context.Context, since time.Time) (domain.StatsSummary, error)
	TopModels(ctx context.Context, since time.Time, limit int) ([]domain.ModelUsage, error)
	ExportHistory(ctx context.Context, since time.Time) ([]domain.ExportRow, error)
}

// EventPublisher receives an audit event for every stored history row.
type EventPublisher interface {
	PublishHistory(ctx context.Context, ev domain.HistoryEvent) error
}
