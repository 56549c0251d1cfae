package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"trackersms/internal/dispatch"
	"trackersms/internal/domain"
	"trackersms/internal/observability"
	"trackersms/internal/store"
	"trackersms/internal/util"
)

// Messaging runs the send workflow and serves the history log.
type Messaging struct {
	Store         HistoryStore
	Dispatcher    dispatch.Dispatcher
	Events        EventPublisher
	MaxRecipients int
	Now           func() time.Time
}

func (m *Messaging) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return util.NowUTC()
}

// Send dispatches one command to every number and records one history row per
// dispatch. Validation happens up front: a request with any invalid number
// writes nothing.
func (m *Messaging) Send(ctx context.Context, req domain.SendRequest) (domain.SendResponse, error) {
	if len(req.PhoneNumbers) == 0 {
		return domain.SendResponse{}, domain.Validation("Phone numbers array is required", nil)
	}
	if req.ModelID <= 0 {
		return domain.SendResponse{}, domain.Validation("Model ID is required", nil)
	}
	command := strings.TrimSpace(req.CommandText)
	if command == "" {
		return domain.SendResponse{}, domain.Validation("Command text is required", nil)
	}
	if m.MaxRecipients > 0 && len(req.PhoneNumbers) > m.MaxRecipients {
		return domain.SendResponse{}, domain.Validation(
			fmt.Sprintf("At most %d phone numbers are allowed per request", m.MaxRecipients),
			map[string]int{"max": m.MaxRecipients, "received": len(req.PhoneNumbers)},
		)
	}
	if bad := domain.InvalidPhones(req.PhoneNumbers); len(bad) > 0 {
		return domain.SendResponse{}, domain.Validation("Invalid phone number format", map[string]any{"invalidNumbers": bad})
	}

	model, err := m.Store.GetModel(ctx, req.ModelID)
	if err != nil {
		return domain.SendResponse{}, translate(err, msgModelNotFound, msgModelExists)
	}

	notes := strings.TrimSpace(req.Notes)
	resp := domain.SendResponse{
		Results: []domain.SendResult{},
		Summary: domain.SendSummary{Total: len(req.PhoneNumbers)},
	}

	for i, raw := range req.PhoneNumbers {
		if ctx.Err() != nil {
			for _, rest := range req.PhoneNumbers[i:] {
				resp.Errors = append(resp.Errors, domain.SendError{PhoneNumber: domain.NormalizePhone(rest), Error: "request cancelled before dispatch"})
				resp.Summary.Failed++
			}
			break
		}

		phone := domain.NormalizePhone(raw)
		out := m.Dispatcher.Send(ctx, phone, command, model.Name)

		status := domain.StatusSent
		if !out.Success {
			status = domain.StatusFailed
		}
		sentAt := m.now()

		historyID, err := m.Store.InsertHistory(ctx, store.HistoryInsert{
			PhoneNumber:  phone,
			ModelID:      model.ID,
			CommandText:  command,
			Status:       string(status),
			Details:      out.Details,
			Notes:        notes,
			ResponseData: out,
			SentAt:       sentAt,
		})
		if err != nil {
			slog.Error("insert sms history failed",
				"err", err,
				"phone_number", phone,
				"model_id", model.ID,
				"dispatch_success", out.Success,
			)
			resp.Errors = append(resp.Errors, domain.SendError{PhoneNumber: phone, Error: "Failed to record message history"})
			resp.Summary.Failed++
			continue
		}
		observability.HistoryRows.WithLabelValues(string(status)).Inc()

		resp.Results = append(resp.Results, domain.SendResult{
			PhoneNumber: phone,
			Status:      string(status),
			MessageID:   out.MessageID,
			Details:     out.Details,
			HistoryID:   historyID,
		})
		if out.Success {
			resp.Summary.Sent++
		} else {
			resp.Summary.Failed++
		}

		m.publish(ctx, domain.HistoryEvent{
			HistoryID:   historyID,
			PhoneNumber: phone,
			ModelID:     model.ID,
			ModelName:   model.Name,
			CommandText: command,
			Status:      string(status),
			MessageID:   out.MessageID,
			SentAt:      sentAt,
		})
	}
	return resp, nil
}

func (m *Messaging) publish(ctx context.Context, ev domain.HistoryEvent) {
	if m.Events == nil {
		return
	}
	if err := m.Events.PublishHistory(ctx, ev); err != nil {
		observability.HistoryEvents.WithLabelValues("error").Inc()
		slog.Warn("publish history event failed", "err", err, "history_id", ev.HistoryID)
		return
	}
	observability.HistoryEvents.WithLabelValues("ok").Inc()
}

type HistoryQuery struct {
	Filter domain.HistoryFilter
	Page   int
	Limit  int
}

func (m *Messaging) History(ctx context.Context, q HistoryQuery) (domain.HistoryPage, error) {
	if q.Filter.DateFrom != nil && q.Filter.DateTo != nil && q.Filter.DateTo.Before(*q.Filter.DateFrom) {
		return domain.HistoryPage{}, domain.Validation("dateTo must not be before dateFrom", nil)
	}
	page, limit := domain.ClampPage(q.Page, q.Limit)

	rows, total, err := m.Store.ListHistory(ctx, q.Filter, page, limit)
	if err != nil {
		return domain.HistoryPage{}, err
	}
	if rows == nil {
		rows = []domain.SmsHistory{}
	}
	return domain.HistoryPage{Rows: rows, Pagination: domain.NewPagination(page, limit, total)}, nil
}
