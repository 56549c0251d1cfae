package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"trackersms/internal/domain"
	"trackersms/internal/util"
)

var csvHeader = []string{"Phone Number", "Model", "Command", "Status", "Sent At", "Notes", "Details"}

// Reports aggregates and exports the history log over a trailing window.
type Reports struct {
	Store ReportStore
	Now   func() time.Time
}

func (r *Reports) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return util.NowUTC()
}

// window validates periodDays (0 selects def) and returns the window start.
func (r *Reports) window(periodDays, def int) (int, time.Time, error) {
	if periodDays == 0 {
		periodDays = def
	}
	if periodDays < 1 || periodDays > domain.MaxPeriodDays {
		return 0, time.Time{}, domain.Validation(
			fmt.Sprintf("Period must be between 1 and %d days", domain.MaxPeriodDays), nil)
	}
	return periodDays, r.now().Add(-time.Duration(periodDays) * 24 * time.Hour), nil
}

func (r *Reports) Stats(ctx context.Context, periodDays int) (domain.Stats, error) {
	periodDays, since, err := r.window(periodDays, domain.DefaultStatsPeriod)
	if err != nil {
		return domain.Stats{}, err
	}

	daily, err := r.Store.DailyStats(ctx, since)
	if err != nil {
		return domain.Stats{}, err
	}
	summary, err := r.Store.SummaryStats(ctx, since)
	if err != nil {
		return domain.Stats{}, err
	}
	top, err := r.Store.TopModels(ctx, since, domain.TopModelsLimit)
	if err != nil {
		return domain.Stats{}, err
	}
	if daily == nil {
		daily = []domain.DailyStat{}
	}
	if top == nil {
		top = []domain.ModelUsage{}
	}
	summary.SuccessRate = successRate(summary.Sent, summary.Total)

	return domain.Stats{
		PeriodDays: periodDays,
		Since:      since,
		Daily:      daily,
		Summary:    summary,
		TopModels:  top,
	}, nil
}

// successRate is sent/total as a percentage with two decimals.
func successRate(sent, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(sent)/float64(total)*10000) / 100
}

// Export returns the rows of the CSV report window.
func (r *Reports) Export(ctx context.Context, periodDays int) ([]domain.ExportRow, error) {
	_, since, err := r.window(periodDays, domain.DefaultCSVPeriod)
	if err != nil {
		return nil, err
	}
	return r.Store.ExportHistory(ctx, since)
}

// CSVFilename names an export produced at t.
func CSVFilename(t time.Time) string {
	return "sms-history-" + t.UTC().Format("2006-01-02") + ".csv"
}

// WriteCSV writes a header and one line per row with every field quoted.
func WriteCSV(w io.Writer, rows []domain.ExportRow) error {
	bw := bufio.NewWriter(w)
	writeLine(bw, csvHeader)
	for _, row := range rows {
		writeLine(bw, []string{
			row.PhoneNumber,
			row.ModelName,
			row.CommandText,
			row.Status,
			row.SentAt.UTC().Format(time.RFC3339),
			row.Notes,
			row.Details,
		})
	}
	return bw.Flush()
}

func writeLine(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}
