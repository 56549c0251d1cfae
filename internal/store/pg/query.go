package pg

import (
	"strconv"
	"strings"

	"trackersms/internal/domain"
)

// Clause is one predicate term. Every '?' in SQL is bound to Arg; SQL itself
// is always a constant written in this package, never user input.
type Clause struct {
	Tag string
	SQL string
	Arg any
}

// Predicate is an ordered list of clauses joined with AND.
type Predicate struct {
	clauses []Clause
}

func (p *Predicate) Add(tag, sql string, arg any) {
	p.clauses = append(p.clauses, Clause{Tag: tag, SQL: sql, Arg: arg})
}

func (p *Predicate) Tags() []string {
	tags := make([]string, 0, len(p.clauses))
	for _, c := range p.clauses {
		tags = append(tags, c.Tag)
	}
	return tags
}

// Render returns the WHERE fragment (empty when there are no clauses) and
// the bound args, numbering placeholders from $1.
func (p *Predicate) Render() (string, []any) {
	if len(p.clauses) == 0 {
		return "", nil
	}
	args := make([]any, 0, len(p.clauses))
	parts := make([]string, 0, len(p.clauses))
	for _, c := range p.clauses {
		args = append(args, c.Arg)
		parts = append(parts, strings.ReplaceAll(c.SQL, "?", "$"+strconv.Itoa(len(args))))
	}
	return "WHERE " + strings.Join(parts, " AND "), args
}

const historySelect = `
	SELECT h.id, h.phone_number, h.model_id, COALESCE(m.name,''), h.command_text, h.status,
	       h.sent_at, COALESCE(h.details,''), COALESCE(h.notes,''), h.response_data
	FROM sms_history h
	LEFT JOIN device_models m ON m.id = h.model_id`

const historyCount = `
	SELECT COUNT(*)
	FROM sms_history h
	LEFT JOIN device_models m ON m.id = h.model_id`

// HistoryPredicate AND-s only the filters that were supplied.
func HistoryPredicate(f domain.HistoryFilter) *Predicate {
	p := &Predicate{}
	if s := strings.TrimSpace(f.Status); s != "" {
		p.Add("status", "h.status = ?", s)
	}
	if f.ModelID != nil {
		p.Add("model", "h.model_id = ?", *f.ModelID)
	}
	if s := strings.TrimSpace(f.PhoneNumber); s != "" {
		p.Add("phone", "h.phone_number ILIKE ?", "%"+escapeLike(s)+"%")
	}
	if f.DateFrom != nil {
		p.Add("date_from", "h.sent_at >= ?", f.DateFrom.UTC())
	}
	if f.DateTo != nil {
		p.Add("date_to", "h.sent_at <= ?", f.DateTo.UTC())
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p.Add("search", "(h.command_text ILIKE ? OR h.notes ILIKE ? OR m.name ILIKE ?)", "%"+escapeLike(s)+"%")
	}
	return p
}

type HistoryQuery struct {
	ListSQL   string
	ListArgs  []any
	CountSQL  string
	CountArgs []any
}

// BuildHistoryQuery renders the page query and the matching count query
// from the same predicate.
func BuildHistoryQuery(f domain.HistoryFilter, page, limit int) HistoryQuery {
	where, args := HistoryPredicate(f).Render()

	countSQL := historyCount
	listSQL := historySelect
	if where != "" {
		countSQL += "\n\t" + where
		listSQL += "\n\t" + where
	}

	n := len(args)
	listSQL += "\n\tORDER BY h.sent_at DESC, h.id DESC" +
		"\n\tLIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2)

	listArgs := make([]any, 0, n+2)
	listArgs = append(listArgs, args...)
	listArgs = append(listArgs, limit, (page-1)*limit)

	return HistoryQuery{
		ListSQL:   listSQL,
		ListArgs:  listArgs,
		CountSQL:  countSQL,
		CountArgs: args,
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
