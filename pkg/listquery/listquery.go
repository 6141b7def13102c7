// Package listquery turns raw list request parameters (search, sort,
// direction, page) into a validated squirrel query plus the pagination
// metadata and filter echo returned to the client.
//
// Sort fields are resolved through a per-kind allow-list of predeclared
// column expressions. A requested field that is not in the allow-list is
// dropped and the default ordering applies; the requested string itself is
// never handed to the query builder.
package listquery

import (
	"math"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

const (
	// DefaultPerPage is the fixed page size for list endpoints.
	DefaultPerPage = 10

	DirectionAsc  = "asc"
	DirectionDesc = "desc"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Params carries the list parameters as received from the caller.
type Params struct {
	Search    string
	Sort      string
	Direction string
	Page      int
}

// Filters is the filter state echoed back so clients can keep it across navigation.
type Filters struct {
	Search    string `json:"search"`
	Sort      string `json:"sort"`
	Direction string `json:"direction"`
}

// Pagination describes the returned page. From and To are 1-indexed and nil
// when the page is empty.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	LastPage    int  `json:"last_page"`
	PerPage     int  `json:"per_page"`
	Total       int  `json:"total"`
	From        *int `json:"from"`
	To          *int `json:"to"`
}

// Page is one page of records together with its pagination and filter echo.
type Page[T any] struct {
	Items      []T
	Pagination Pagination
	Filters    Filters
}

// NewPage assembles a Page for items fetched with q out of total matches.
func NewPage[T any](q Query, items []T, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Pagination: q.Paginate(total, len(items)), Filters: q.Filters()}
}

// Definition declares how one record kind may be searched and sorted.
type Definition struct {
	// SearchColumns are matched case-insensitively by substring, OR-ed together.
	SearchColumns []string
	// Sortable maps an accepted sort field name to its column expression.
	Sortable map[string]string
	// DefaultOrder is used when no valid sort field is requested.
	DefaultOrder []string
	// TieBreaker is appended to requested orderings to keep pages stable.
	TieBreaker string
	PerPage    int
}

// Query is a normalised list request ready to be applied to a select builder.
type Query struct {
	params    Params
	columns   []string
	pattern   string
	order     []string
	direction string
	page      int
	perPage   int
	sorted    bool
}

// Prepare validates p against the definition. It never fails: unusable
// values fall back to defaults.
func (d Definition) Prepare(p Params) Query {
	q := Query{
		params:    p,
		columns:   d.SearchColumns,
		direction: normaliseDirection(p.Direction),
		page:      p.Page,
		perPage:   d.PerPage,
	}
	if q.perPage <= 0 {
		q.perPage = DefaultPerPage
	}
	if q.page < 1 {
		q.page = 1
	}
	if maxPage := math.MaxInt32 / q.perPage; q.page > maxPage {
		q.page = maxPage
	}
	if term := strings.TrimSpace(p.Search); term != "" && len(d.SearchColumns) > 0 {
		q.pattern = "%" + likeEscaper.Replace(term) + "%"
	}

	if column, ok := d.Sortable[p.Sort]; ok && p.Sort != "" {
		dir := strings.ToUpper(q.direction)
		q.order = []string{column + " " + dir}
		if d.TieBreaker != "" && d.TieBreaker != column {
			q.order = append(q.order, d.TieBreaker+" "+dir)
		}
		q.sorted = true
	} else {
		q.order = append([]string(nil), d.DefaultOrder...)
	}
	return q
}

// Filter applies only the search restriction; used for COUNT queries.
func (q Query) Filter(b sq.SelectBuilder) sq.SelectBuilder {
	if q.pattern == "" {
		return b
	}
	if len(q.columns) == 1 {
		return b.Where(sq.ILike{q.columns[0]: q.pattern})
	}
	or := make(sq.Or, 0, len(q.columns))
	for _, column := range q.columns {
		or = append(or, sq.ILike{column: q.pattern})
	}
	return b.Where(or)
}

// Order applies the resolved ordering.
func (q Query) Order(b sq.SelectBuilder) sq.SelectBuilder {
	return b.OrderBy(q.order...)
}

// Apply applies search, ordering and the page window.
func (q Query) Apply(b sq.SelectBuilder) sq.SelectBuilder {
	return q.Order(q.Filter(b)).Limit(uint64(q.perPage)).Offset(uint64(q.Offset()))
}

// Filters returns the filter echo for the response.
func (q Query) Filters() Filters {
	return Filters{
		Search:    q.params.Search,
		Sort:      q.params.Sort,
		Direction: q.direction,
	}
}

// Paginate builds pagination metadata for a page holding count of total rows.
func (q Query) Paginate(total, count int) Pagination {
	last := int(math.Ceil(float64(total) / float64(q.perPage)))
	if last < 1 {
		last = 1
	}
	p := Pagination{CurrentPage: q.page, LastPage: last, PerPage: q.perPage, Total: total}
	if count > 0 {
		from := q.Offset() + 1
		to := from + count - 1
		p.From = &from
		p.To = &to
	}
	return p
}

// Page returns the normalised 1-based page number.
func (q Query) Page() int { return q.page }

// PerPage returns the page size.
func (q Query) PerPage() int { return q.perPage }

// Offset returns the number of rows skipped before the current page.
func (q Query) Offset() int { return (q.page - 1) * q.perPage }

// Sorted reports whether a requested sort field was accepted.
func (q Query) Sorted() bool { return q.sorted }

// Ordering returns the ORDER BY terms that will be applied.
func (q Query) Ordering() []string { return append([]string(nil), q.order...) }

func normaliseDirection(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), DirectionAsc) {
		return DirectionAsc
	}
	return DirectionDesc
}
