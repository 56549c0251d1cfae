// Package memstore is an in-memory stand-in for the Postgres store with the
// same sentinel errors and ordering. It backs unit tests of the service and
// HTTP layers.
package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"trackersms/internal/domain"
	"trackersms/internal/store"
)

type Store struct {
	mu sync.Mutex

	models   map[int64]domain.DeviceModel
	commands map[int64]domain.Command
	history  []domain.SmsHistory

	nextModel   int64
	nextCommand int64
	nextHistory int64

	// FailInsert makes InsertHistory fail for the numbers it matches.
	FailInsert func(phone string) bool
}

func New() *Store {
	return &Store{
		models:   map[int64]domain.DeviceModel{},
		commands: map[int64]domain.Command{},
	}
}

var ErrInsertFailed = errors.New("memstore: insert failed")

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) withCount(m domain.DeviceModel) domain.DeviceModel {
	m.CommandCount = 0
	for _, c := range s.commands {
		if c.ModelID == m.ID {
			m.CommandCount++
		}
	}
	return m
}

func (s *Store) ListModels(ctx context.Context) ([]domain.DeviceModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.DeviceModel, 0, len(s.models))
	for _, m := range s.models {
		out = append(out, s.withCount(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetModel(ctx context.Context, id int64) (domain.DeviceModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[id]
	if !ok {
		return domain.DeviceModel{}, store.ErrNotFound
	}
	return s.withCount(m), nil
}

func (s *Store) nameTaken(name string, except int64) bool {
	for _, m := range s.models {
		if m.Name == name && m.ID != except {
			return true
		}
	}
	return false
}

func (s *Store) CreateModel(ctx context.Context, in domain.ModelInput, now time.Time) (domain.DeviceModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTaken(in.Name, 0) {
		return domain.DeviceModel{}, store.ErrDuplicate
	}
	s.nextModel++
	m := domain.DeviceModel{ID: s.nextModel, Name: in.Name, Description: in.Description, CreatedAt: now, UpdatedAt: now}
	s.models[m.ID] = m
	return m, nil
}

func (s *Store) UpdateModel(ctx context.Context, id int64, in domain.ModelInput, now time.Time) (domain.DeviceModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[id]
	if !ok {
		return domain.DeviceModel{}, store.ErrNotFound
	}
	if s.nameTaken(in.Name, id) {
		return domain.DeviceModel{}, store.ErrDuplicate
	}
	m.Name, m.Description, m.UpdatedAt = in.Name, in.Description, now
	s.models[id] = m
	for cid, c := range s.commands {
		if c.ModelID == id {
			c.ModelName = m.Name
			s.commands[cid] = c
		}
	}
	return s.withCount(m), nil
}

// DeleteModel cascades to commands, like the foreign key does.
func (s *Store) DeleteModel(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.models[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.models, id)
	for cid, c := range s.commands {
		if c.ModelID == id {
			delete(s.commands, cid)
		}
	}
	return nil
}

func (s *Store) CountCommands(ctx context.Context, modelID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withCount(domain.DeviceModel{ID: modelID}).CommandCount, nil
}

func (s *Store) sortedCommands(keep func(domain.Command) bool) []domain.Command {
	out := []domain.Command{}
	for _, c := range s.commands {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ModelName != out[j].ModelName {
			return out[i].ModelName < out[j].ModelName
		}
		return out[i].CommandText < out[j].CommandText
	})
	return out
}

func (s *Store) ListCommands(ctx context.Context) ([]domain.Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedCommands(func(domain.Command) bool { return true }), nil
}

func (s *Store) ListCommandsByModel(ctx context.Context, modelID int64) ([]domain.Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedCommands(func(c domain.Command) bool { return c.ModelID == modelID }), nil
}

func (s *Store) GetCommand(ctx context.Context, id int64) (domain.Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commands[id]
	if !ok {
		return domain.Command{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) pairTaken(modelID int64, text string, except int64) bool {
	for _, c := range s.commands {
		if c.ModelID == modelID && c.CommandText == text && c.ID != except {
			return true
		}
	}
	return false
}

func (s *Store) CreateCommand(ctx context.Context, in domain.CommandInput, now time.Time) (domain.Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[in.ModelID]
	if !ok {
		return domain.Command{}, store.ErrMissingReference
	}
	if s.pairTaken(in.ModelID, in.CommandText, 0) {
		return domain.Command{}, store.ErrDuplicate
	}
	s.nextCommand++
	c := domain.Command{
		ID:          s.nextCommand,
		ModelID:     m.ID,
		ModelName:   m.Name,
		CommandText: in.CommandText,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.commands[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCommand(ctx context.Context, id int64, in domain.CommandInput, now time.Time) (domain.Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commands[id]
	if !ok {
		return domain.Command{}, store.ErrNotFound
	}
	if s.pairTaken(c.ModelID, in.CommandText, id) {
		return domain.Command{}, store.ErrDuplicate
	}
	c.CommandText, c.Description, c.UpdatedAt = in.CommandText, in.Description, now
	s.commands[id] = c
	return c, nil
}

func (s *Store) DeleteCommand(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.commands[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.commands, id)
	return nil
}

func (s *Store) InsertHistory(ctx context.Context, in store.HistoryInsert) (int64, error) {
	if s.FailInsert != nil && s.FailInsert(in.PhoneNumber) {
		return 0, ErrInsertFailed
	}
	var payload json.RawMessage
	if in.ResponseData != nil {
		b, err := json.Marshal(in.ResponseData)
		if err != nil {
			return 0, err
		}
		payload = b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHistory++
	modelID := in.ModelID
	s.history = append(s.history, domain.SmsHistory{
		ID:           s.nextHistory,
		PhoneNumber:  in.PhoneNumber,
		ModelID:      &modelID,
		CommandText:  in.CommandText,
		Status:       in.Status,
		SentAt:       in.SentAt,
		Details:      in.Details,
		Notes:        in.Notes,
		ResponseData: payload,
	})
	return s.nextHistory, nil
}

func (s *Store) modelName(id *int64) string {
	if id == nil {
		return ""
	}
	return s.models[*id].Name
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func (s *Store) matches(h domain.SmsHistory, f domain.HistoryFilter) bool {
	if v := strings.TrimSpace(f.Status); v != "" && h.Status != v {
		return false
	}
	if f.ModelID != nil && (h.ModelID == nil || *h.ModelID != *f.ModelID) {
		return false
	}
	if v := strings.TrimSpace(f.PhoneNumber); v != "" && !containsFold(h.PhoneNumber, v) {
		return false
	}
	if f.DateFrom != nil && h.SentAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && h.SentAt.After(*f.DateTo) {
		return false
	}
	if v := strings.TrimSpace(f.Search); v != "" &&
		!containsFold(h.CommandText, v) && !containsFold(h.Notes, v) && !containsFold(s.modelName(h.ModelID), v) {
		return false
	}
	return true
}

// newestFirst returns the kept rows with model names joined, newest first.
func (s *Store) newestFirst(keep func(domain.SmsHistory) bool) []domain.SmsHistory {
	out := []domain.SmsHistory{}
	for _, h := range s.history {
		if keep(h) {
			h.ModelName = s.modelName(h.ModelID)
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].SentAt.After(out[j].SentAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) ListHistory(ctx context.Context, f domain.HistoryFilter, page, limit int) ([]domain.SmsHistory, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.newestFirst(func(h domain.SmsHistory) bool { return s.matches(h, f) })
	total := int64(len(all))

	start := (page - 1) * limit
	if start >= len(all) {
		return []domain.SmsHistory{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *Store) since(t time.Time) []domain.SmsHistory {
	return s.newestFirst(func(h domain.SmsHistory) bool { return !h.SentAt.Before(t) })
}

func (s *Store) DailyStats(ctx context.Context, since time.Time) ([]domain.DailyStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var days []string
	byDay := map[string]*domain.DailyStat{}
	phones := map[string]map[string]bool{}
	models := map[string]map[int64]bool{}
	for _, h := range s.since(since) {
		day := h.SentAt.UTC().Format("2006-01-02")
		d, ok := byDay[day]
		if !ok {
			d = &domain.DailyStat{Date: day}
			byDay[day] = d
			phones[day] = map[string]bool{}
			models[day] = map[int64]bool{}
			days = append(days, day)
		}
		count(&d.Total, &d.Sent, &d.Failed, &d.Pending, h.Status)
		phones[day][h.PhoneNumber] = true
		if h.ModelID != nil {
			models[day][*h.ModelID] = true
		}
	}

	out := make([]domain.DailyStat, 0, len(days))
	for _, day := range days {
		d := byDay[day]
		d.UniquePhones = int64(len(phones[day]))
		d.ModelsUsed = int64(len(models[day]))
		out = append(out, *d)
	}
	return out, nil
}

func count(total, sent, failed, pending *int64, status string) {
	*total++
	switch domain.HistoryStatus(status) {
	case domain.StatusSent:
		*sent++
	case domain.StatusFailed:
		*failed++
	case domain.StatusPending:
		*pending++
	}
}

func (s *Store) SummaryStats(ctx context.Context, since time.Time) (domain.StatsSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum domain.StatsSummary
	phones := map[string]bool{}
	models := map[int64]bool{}
	for _, h := range s.since(since) {
		count(&sum.Total, &sum.Sent, &sum.Failed, &sum.Pending, h.Status)
		phones[h.PhoneNumber] = true
		if h.ModelID != nil {
			models[*h.ModelID] = true
		}
	}
	sum.UniquePhones = int64(len(phones))
	sum.ModelsUsed = int64(len(models))
	return sum, nil
}

func (s *Store) TopModels(ctx context.Context, since time.Time, limit int) ([]domain.ModelUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	usage := map[int64]int64{}
	for _, h := range s.since(since) {
		if h.ModelID == nil {
			continue
		}
		if _, ok := s.models[*h.ModelID]; ok {
			usage[*h.ModelID]++
		}
	}
	out := make([]domain.ModelUsage, 0, len(usage))
	for id, n := range usage {
		out = append(out, domain.ModelUsage{ModelID: id, ModelName: s.models[id].Name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ModelName < out[j].ModelName
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ExportHistory(ctx context.Context, since time.Time) ([]domain.ExportRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.ExportRow{}
	for _, h := range s.since(since) {
		out = append(out, domain.ExportRow{
			PhoneNumber: h.PhoneNumber,
			ModelName:   h.ModelName,
			CommandText: h.CommandText,
			Status:      h.Status,
			SentAt:      h.SentAt,
			Notes:       h.Notes,
			Details:     h.Details,
		})
	}
	return out, nil
}

// HistoryCount is the number of stored history rows.
func (s *Store) HistoryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}
