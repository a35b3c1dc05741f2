package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/kalambet/jobtrack/internal/job"
)

// DefaultLimit is the page size used when the request does not carry a usable one.
const DefaultLimit = 10

// allValues is the request value meaning "do not constrain this field".
const allValues = "all"

// Params is the raw, untyped parameter bag of a list request, exactly as it
// arrived from a URL query string or a tool call.
type Params struct {
	Search string
	Status string
	Type   string
	Sort   string
	Page   string
	Limit  string
}

// ParamsFromValues extracts list parameters from a URL query. Both the short
// names (status, type) and the long ones (jobStatus, jobType) are accepted;
// the short name wins when both are present.
func ParamsFromValues(v url.Values) Params {
	return Params{
		Search: v.Get("search"),
		Status: firstNonEmpty(v.Get("status"), v.Get("jobStatus")),
		Type:   firstNonEmpty(v.Get("type"), v.Get("jobType")),
		Sort:   v.Get("sort"),
		Page:   v.Get("page"),
		Limit:  v.Get("limit"),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// SortKey names one of the fixed list orderings.
type SortKey string

const (
	SortNewest SortKey = "newest"
	SortOldest SortKey = "oldest"
	SortAZ     SortKey = "a-z"
	SortZA     SortKey = "z-a"
)

// Field is a sortable record column.
type Field string

const (
	FieldCreatedAt Field = "created_at"
	FieldPosition  Field = "position"
)

// Ordering is the concrete ordering a SortKey resolves to. Stores break ties
// on the record id in the same direction so paging stays deterministic.
type Ordering struct {
	Field Field
	Desc  bool
}

var orderings = map[SortKey]Ordering{
	SortNewest: {Field: FieldCreatedAt, Desc: true},
	SortOldest: {Field: FieldCreatedAt, Desc: false},
	SortAZ:     {Field: FieldPosition, Desc: false},
	SortZA:     {Field: FieldPosition, Desc: true},
}

// Filter selects the records of one owner, optionally narrowed by a search
// term, a status and an employment type. All constraints are ANDed.
type Filter struct {
	OwnerID string
	// Search matches company or position, case-insensitively, anywhere in the value.
	Search string
	Status *job.Status
	Type   *job.Type
}

// Match reports whether r satisfies every constraint of f.
func (f Filter) Match(r job.Record) bool {
	if r.OwnerID != f.OwnerID {
		return false
	}
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	if f.Type != nil && r.Type != *f.Type {
		return false
	}
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.Company), term) &&
			!strings.Contains(strings.ToLower(r.Position), term) {
			return false
		}
	}
	return true
}

// Page is a resolved pagination window.
type Page struct {
	Number int
	Limit  int
	Skip   int
}

func newPage(number, limit int) Page {
	return Page{Number: number, Limit: limit, Skip: skipFor(number, limit)}
}

// skipFor returns (number-1)*limit, saturating instead of overflowing.
func skipFor(number, limit int) int {
	if number <= 1 || limit <= 0 {
		return 0
	}
	if number-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (number - 1) * limit
}

// Query is the canonical form of a list request.
type Query struct {
	Filter   Filter
	Sort     SortKey
	Ordering Ordering
	Page     Page
}

// Build resolves raw list parameters into a Query scoped to ownerID.
// It never fails: unusable values fall back to their defaults.
func Build(ownerID string, p Params) Query {
	f := Filter{
		OwnerID: ownerID,
		Search:  strings.TrimSpace(p.Search),
	}
	if st, ok := parseStatus(p.Status); ok {
		f.Status = &st
	}
	if typ, ok := parseType(p.Type); ok {
		f.Type = &typ
	}

	key := SortKey(strings.TrimSpace(p.Sort))
	ord, ok := orderings[key]
	if !ok {
		key = SortNewest
		ord = orderings[SortNewest]
	}

	return Query{
		Filter:   f,
		Sort:     key,
		Ordering: ord,
		Page:     newPage(positiveInt(p.Page, 1), positiveInt(p.Limit, DefaultLimit)),
	}
}

func parseStatus(s string) (job.Status, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == allValues {
		return "", false
	}
	return job.ParseStatus(s)
}

func parseType(s string) (job.Type, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == allValues {
		return "", false
	}
	return job.ParseType(s)
}

func positiveInt(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// TotalPages returns ceil(total/limit).
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pages
}
