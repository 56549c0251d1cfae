package domain

import (
	"math"
	"time"
)

const (
	DefaultPage        = 1
	DefaultPageLimit   = 50
	MaxPageLimit       = 500
	DefaultStatsPeriod = 7
	DefaultCSVPeriod   = 30
	MaxPeriodDays      = 365
	TopModelsLimit     = 10
)

// HistoryFilter holds the optional history filters; zero values mean "not supplied".
type HistoryFilter struct {
	Status      string     `json:"status,omitempty"`
	ModelID     *int64     `json:"modelId,omitempty"`
	PhoneNumber string     `json:"phoneNumber,omitempty"`
	DateFrom    *time.Time `json:"dateFrom,omitempty"`
	DateTo      *time.Time `json:"dateTo,omitempty"`
	Search      string     `json:"search,omitempty"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// ClampPage applies the page defaults: page at least 1, limit 0 means the
// default and anything else is held to 1..MaxPageLimit. Page is capped so
// that (page-1)*limit always fits in an int.
func ClampPage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	switch {
	case limit == 0:
		limit = DefaultPageLimit
	case limit < 1:
		limit = 1
	case limit > MaxPageLimit:
		limit = MaxPageLimit
	}
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}
	return page, limit
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}

type HistoryPage struct {
	Rows       []SmsHistory
	Pagination Pagination
}

type DailyStat struct {
	Date         string `json:"date"`
	Total        int64  `json:"total"`
	Sent         int64  `json:"sent"`
	Failed       int64  `json:"failed"`
	Pending      int64  `json:"pending"`
	UniquePhones int64  `json:"uniquePhones"`
	ModelsUsed   int64  `json:"modelsUsed"`
}

type StatsSummary struct {
	Total        int64   `json:"total"`
	Sent         int64   `json:"sent"`
	Failed       int64   `json:"failed"`
	Pending      int64   `json:"pending"`
	UniquePhones int64   `json:"uniquePhones"`
	ModelsUsed   int64   `json:"modelsUsed"`
	SuccessRate  float64 `json:"successRate"`
}

type ModelUsage struct {
	ModelID   int64  `json:"modelId"`
	ModelName string `json:"modelName"`
	Count     int64  `json:"count"`
}

type Stats struct {
	PeriodDays int          `json:"period"`
	Since      time.Time    `json:"since"`
	Daily      []DailyStat  `json:"daily"`
	Summary    StatsSummary `json:"summary"`
	TopModels  []ModelUsage `json:"topModels"`
}

// ExportRow is one flattened history row for CSV export.
type ExportRow struct {
	PhoneNumber string
	ModelName   string
	CommandText string
	Status      string
	SentAt      time.Time
	Notes       string
	Details     string
}

// HistoryEvent is published after a history row is stored.
type HistoryEvent struct {
	HistoryID   int64     `json:"historyId"`
	PhoneNumber string    `json:"phoneNumber"`
	ModelID     int64     `json:"modelId"`
	ModelName   string    `json:"modelName"`
	CommandText string    `json:"commandText"`
	Status      string    `json:"status"`
	MessageID   string    `json:"messageId,omitempty"`
	SentAt      time.Time `json:"sentAt"`
}
