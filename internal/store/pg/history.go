package pg

import (
	"context"
	"encoding/json"
	"time"

	"trackersms/internal/domain"
	"trackersms/internal/store"
)

func (s *Store) InsertHistory(ctx context.Context, in store.HistoryInsert) (int64, error) {
	var payload []byte
	if in.ResponseData != nil {
		b, err := json.Marshal(in.ResponseData)
		if err != nil {
			return 0, err
		}
		payload = b
	}
	var id int64
	err := s.DB.QueryRow(ctx, `
		INSERT INTO sms_history (phone_number, model_id, command_text, status, sent_at, details, notes, response_data)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`, in.PhoneNumber, in.ModelID, in.CommandText, in.Status, in.SentAt,
		nullIfEmpty(in.Details), nullIfEmpty(in.Notes), payload).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (s *Store) ListHistory(ctx context.Context, f domain.HistoryFilter, page, limit int) ([]domain.SmsHistory, int64, error) {
	q := BuildHistoryQuery(f, page, limit)

	var total int64
	if err := s.DB.QueryRow(ctx, q.CountSQL, q.CountArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.Query(ctx, q.ListSQL, q.ListArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []domain.SmsHistory{}
	for rows.Next() {
		var h domain.SmsHistory
		var payload []byte
		if err := rows.Scan(&h.ID, &h.PhoneNumber, &h.ModelID, &h.ModelName, &h.CommandText, &h.Status,
			&h.SentAt, &h.Details, &h.Notes, &payload); err != nil {
			return nil, 0, err
		}
		if len(payload) > 0 {
			h.ResponseData = json.RawMessage(payload)
		}
		out = append(out, h)
	}
	return out, total, rows.Err()
}

func (s *Store) ExportHistory(ctx context.Context, since time.Time) ([]domain.ExportRow, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT h.phone_number, COALESCE(m.name,''), h.command_text, h.status, h.sent_at,
		       COALESCE(h.notes,''), COALESCE(h.details,'')
		FROM sms_history h
		LEFT JOIN device_models m ON m.id = h.model_id
		WHERE h.sent_at >= $1
		ORDER BY h.sent_at DESC, h.id DESC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ExportRow{}
	for rows.Next() {
		var r domain.ExportRow
		if err := rows.Scan(&r.PhoneNumber, &r.ModelName, &r.CommandText, &r.Status, &r.SentAt, &r.Notes, &r.Details); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
