package httpserver

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"trackersms/internal/domain"
	"trackersms/internal/service"
	"trackersms/internal/store/legacy"
	"trackersms/internal/util"
)

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return util.NowUTC()
}

type sendResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Results []domain.SendResult `json:"results"`
	Errors  []domain.SendError  `json:"errors,omitempty"`
	Summary domain.SendSummary  `json:"summary"`
}

func (a *API) handleSend(w http.ResponseWriter, r *http.Request) {
	var req domain.SendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, bodyError(err))
		return
	}
	resp, err := a.Messaging.Send(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	slog.Info("sms batch dispatched",
		"model_id", req.ModelID,
		"total", resp.Summary.Total,
		"sent", resp.Summary.Sent,
		"failed", resp.Summary.Failed,
		"request_id", RequestIDFrom(r.Context()),
	)
	writeJSON(w, http.StatusOK, sendResponse{
		Success: true,
		Message: fmt.Sprintf("Processed %d phone numbers: %d sent, %d failed", resp.Summary.Total, resp.Summary.Sent, resp.Summary.Failed),
		Results: resp.Results,
		Errors:  resp.Errors,
		Summary: resp.Summary,
	})
}

type historyResponse struct {
	Success    bool                 `json:"success"`
	Data       []domain.SmsHistory  `json:"data"`
	Pagination domain.Pagination    `json:"pagination"`
	Filters    domain.HistoryFilter `json:"filters"`
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	q, err := parseHistoryQuery(r.URL.Query())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	page, err := a.Messaging.History(r.Context(), q)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Success:    true,
		Data:       page.Rows,
		Pagination: page.Pagination,
		Filters:    q.Filter,
	})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	period, err := queryInt(r.URL.Query(), "period")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	stats, err := a.Reports.Stats(r.Context(), period)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, stats, "")
}

func (a *API) handleCSV(w http.ResponseWriter, r *http.Request) {
	period, err := queryInt(r.URL.Query(), "period")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	rows, err := a.Reports.Export(r.Context(), period)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := service.WriteCSV(&buf, rows); err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+service.CSVFilename(a.now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (a *API) handlePDF(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     false,
		"implemented": false,
		"message":     "PDF export is not implemented yet; use the CSV export instead",
	})
}

func (a *API) handleLegacyList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r.URL.Query(), "limit")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	msgs, err := a.Legacy.List(r.Context(), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	okList(w, msgs, len(msgs))
}

func (a *API) handleLegacyCreate(w http.ResponseWriter, r *http.Request) {
	var in legacy.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.fail(w, r, bodyError(err))
		return
	}
	in, err := in.Normalize()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	msg, err := a.Legacy.Create(r.Context(), in, a.now())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, msg, "Message stored")
}
