package httpserver

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"trackersms/internal/domain"
	"trackersms/internal/service"
)

const dateOnly = "2006-01-02"

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validation(ErrInvalidID, nil)
	}
	return id, nil
}

// queryInt returns 0 when the parameter is absent.
func queryInt(q url.Values, name string) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.Validation("Invalid "+name+" parameter", map[string]any{"parameter": name, "value": v})
	}
	return n, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339. A date-only upper bound covers
// the whole day.
func parseDate(name, v string, endOfDay bool) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateOnly, v); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, domain.Validation("Invalid "+name+" parameter", map[string]any{"parameter": name, "value": v})
	}
	return &t, nil
}

func parseHistoryQuery(q url.Values) (service.HistoryQuery, error) {
	var out service.HistoryQuery
	var err error

	if out.Page, err = queryInt(q, "page"); err != nil {
		return out, err
	}
	if out.Limit, err = queryInt(q, "limit"); err != nil {
		return out, err
	}

	f := domain.HistoryFilter{
		Status:      strings.TrimSpace(q.Get("status")),
		PhoneNumber: strings.TrimSpace(q.Get("phoneNumber")),
		Search:      strings.TrimSpace(q.Get("search")),
	}
	if v := strings.TrimSpace(q.Get("modelId")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return out, domain.Validation("Invalid modelId parameter", map[string]any{"parameter": "modelId", "value": v})
		}
		f.ModelID = &id
	}
	if f.DateFrom, err = parseDate("dateFrom", q.Get("dateFrom"), false); err != nil {
		return out, err
	}
	if f.DateTo, err = parseDate("dateTo", q.Get("dateTo"), true); err != nil {
		return out, err
	}
	out.Filter = f
	return out, nil
}
