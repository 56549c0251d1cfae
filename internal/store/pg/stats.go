package pg

import (
	"context"
	"time"

	"trackersms/internal/domain"
)

func (s *Store) DailyStats(ctx context.Context, since time.Time) ([]domain.DailyStat, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT to_char(date_trunc('day', sent_at AT TIME ZONE 'UTC'), 'YYYY-MM-DD') AS day,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'sent'),
		       COUNT(*) FILTER (WHERE status = 'failed'),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(DISTINCT phone_number),
		       COUNT(DISTINCT model_id)
		FROM sms_history
		WHERE sent_at >= $1
		GROUP BY day
		ORDER BY day DESC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.DailyStat{}
	for rows.Next() {
		var d domain.DailyStat
		if err := rows.Scan(&d.Date, &d.Total, &d.Sent, &d.Failed, &d.Pending, &d.UniquePhones, &d.ModelsUsed); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SummaryStats leaves SuccessRate for the caller.
func (s *Store) SummaryStats(ctx context.Context, since time.Time) (domain.StatsSummary, error) {
	var sum domain.StatsSummary
	err := s.DB.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'sent'),
		       COUNT(*) FILTER (WHERE status = 'failed'),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(DISTINCT phone_number),
		       COUNT(DISTINCT model_id)
		FROM sms_history
		WHERE sent_at >= $1
	`, since).Scan(&sum.Total, &sum.Sent, &sum.Failed, &sum.Pending, &sum.UniquePhones, &sum.ModelsUsed)
	return sum, err
}

func (s *Store) TopModels(ctx context.Context, since time.Time, limit int) ([]domain.ModelUsage, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT m.id, m.name, COUNT(h.id) AS usage
		FROM sms_history h
		JOIN device_models m ON m.id = h.model_id
		WHERE h.sent_at >= $1
		GROUP BY m.id, m.name
		ORDER BY usage DESC, m.name
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ModelUsage{}
	for rows.Next() {
		var u domain.ModelUsage
		if err := rows.Scan(&u.ModelID, &u.ModelName, &u.Count); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
